package web

import "net/http"

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	activeOnly := r.URL.Query().Get("activeOnly") != "false"
	signals, err := s.engine.Signals(repo.ID, activeOnly)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, signals)
}

func (s *Server) handleDismissSignal(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DismissSignal(r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (s *Server) handleDismissAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	repo, err := s.engine.RepoByPath(req.RepoPath)
	if err != nil {
		respondErr(w, err)
		return
	}
	n, err := s.engine.DismissAllSignals(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"dismissed": n})
}

func (s *Server) handleMigratePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
		File     string `json:"file"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	parsed, err := s.engine.MigratePreview(req.RepoPath, req.File)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, parsed)
}

func (s *Server) handleMigrateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
		File     string `json:"file"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	result, err := s.engine.MigrateRun(req.RepoPath, req.File)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleListBugs(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	bugs, err := s.engine.Bugs(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, bugs)
}

func (s *Server) handleAddBug(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string  `json:"repoPath"`
		Title    string  `json:"title"`
		ItemID   *string `json:"itemId"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	repo, err := s.engine.RepoByPath(req.RepoPath)
	if err != nil {
		respondErr(w, err)
		return
	}
	bug, err := s.engine.AddBug(repo.ID, req.Title, req.ItemID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, bug)
}

func (s *Server) handleFixBug(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.FixBug(r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (s *Server) handleListQuickWins(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	wins, err := s.engine.QuickWins(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, wins)
}

func (s *Server) handleAddQuickWin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
		Title    string `json:"title"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	repo, err := s.engine.RepoByPath(req.RepoPath)
	if err != nil {
		respondErr(w, err)
		return
	}
	win, err := s.engine.AddQuickWin(repo.ID, req.Title)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, win)
}

func (s *Server) handleCompleteQuickWin(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CompleteQuickWin(r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}
