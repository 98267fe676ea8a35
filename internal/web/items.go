package web

import (
	"net/http"
	"strconv"

	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/item"
	"github.com/chkd/chkd/internal/store"
)

// itemFrom resolves the item addressed by the displayId path value,
// scoped to the repo from the query string.
func (s *Server) itemFrom(r *http.Request) (*engine.ItemDetail, error) {
	repo, err := s.repoFrom(r)
	if err != nil {
		return nil, err
	}
	return s.engine.Item(repo.ID, r.PathValue("displayId"))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var area *item.Area
	if a := r.URL.Query().Get("area"); a != "" {
		v := item.Area(a)
		area = &v
	}
	items, err := s.engine.Items(repo.ID, area)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, detail)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath        string   `json:"repoPath"`
		Area            string   `json:"area"`
		Title           string   `json:"title"`
		Description     *string  `json:"description"`
		Story           *string  `json:"story"`
		KeyRequirements []string `json:"keyRequirements"`
		FilesToChange   []string `json:"filesToChange"`
		Testing         []string `json:"testing"`
		Priority        string   `json:"priority"`
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
	detail, err := s.engine.CreateItem(engine.CreateItemInput{
		RepoID:          repo.ID,
		Area:            req.Area,
		Title:           req.Title,
		Description:     req.Description,
		Story:           req.Story,
		KeyRequirements: req.KeyRequirements,
		FilesToChange:   req.FilesToChange,
		Testing:         req.Testing,
		Priority:        req.Priority,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, detail)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title           *string  `json:"title"`
		Description     *string  `json:"description"`
		Story           *string  `json:"story"`
		KeyRequirements []string `json:"keyRequirements"`
		FilesToChange   []string `json:"filesToChange"`
		Testing         []string `json:"testing"`
		Status          *string  `json:"status"`
		Priority        *string  `json:"priority"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	upd := store.ItemUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Story:           req.Story,
		KeyRequirements: req.KeyRequirements,
		FilesToChange:   req.FilesToChange,
		Testing:         req.Testing,
	}
	if req.Status != nil {
		v := item.Status(*req.Status)
		upd.Status = &v
	}
	if req.Priority != nil {
		v := item.Priority(*req.Priority)
		upd.Priority = &v
	}
	updated, err := s.engine.UpdateItem(detail.ID, upd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.engine.DeleteItem(detail.ID); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	parent, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	child, err := s.engine.AddChild(parent.ID, req.Title, req.Description)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, child)
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Area string `json:"area"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	moved, err := s.engine.MoveItem(detail.ID, req.Area)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, moved)
}

func (s *Server) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Priority string `json:"priority"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	updated, err := s.engine.SetPriority(detail.ID, req.Priority)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

func (s *Server) handleSetTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	tags, err := s.engine.SetItemTags(detail.ID, req.Tags)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, tags)
}

func (s *Server) handleTBCCheck(w http.ResponseWriter, r *http.Request) {
	detail, err := s.itemFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	missing, err := s.engine.TBCCheck(detail.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"missing": missing, "complete": len(missing) == 0})
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	items, err := s.engine.SearchItems(repo.ID, r.URL.Query().Get("q"), limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var area *item.Area
	if a := r.URL.Query().Get("area"); a != "" {
		v := item.Area(a)
		area = &v
	}
	progress, err := s.engine.Progress(repo.ID, area)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, progress)
}
