package web

import (
	"fmt"
	"net/http"

	"github.com/chkd/chkd/internal/store"
)

// repoFrom resolves the repo named by the repoPath or repoId query
// parameter.
func (s *Server) repoFrom(r *http.Request) (*store.Repo, error) {
	if id := r.URL.Query().Get("repoId"); id != "" {
		return s.engine.Repo(id)
	}
	path := r.URL.Query().Get("repoPath")
	if path == "" {
		return nil, fmt.Errorf("repoPath or repoId query parameter required")
	}
	return s.engine.RepoByPath(path)
}

func (s *Server) handleListRepos(w http.ResponseWriter, _ *http.Request) {
	repos, err := s.engine.Repos()
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, repos)
}

func (s *Server) handleAddRepo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path          string `json:"path"`
		DisplayName   string `json:"displayName"`
		DefaultBranch string `json:"defaultBranch"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	repo, err := s.engine.AddRepo(req.Path, req.DisplayName, req.DefaultBranch)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, repo)
}

func (s *Server) handleUpdateRepo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName   *string `json:"displayName"`
		DefaultBranch *string `json:"defaultBranch"`
		Enabled       *bool   `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	repo, err := s.engine.UpdateRepo(r.PathValue("id"), req.DisplayName, req.DefaultBranch, req.Enabled)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, repo)
}

func (s *Server) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRepo(r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}
