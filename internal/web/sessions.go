package web

import (
	"net/http"

	"github.com/chkd/chkd/internal/session"
	"github.com/chkd/chkd/internal/store"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	view, err := s.engine.Session(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath  string `json:"repoPath"`
		TaskID    string `json:"taskId"`
		TaskTitle string `json:"taskTitle"`
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
	view, err := s.engine.StartSession(repo.ID, req.TaskID, req.TaskTitle)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
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
	view, err := s.engine.CompleteSession(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
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
	view, err := s.engine.ClearSession(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentTask *string `json:"currentTask"`
		CurrentItem *string `json:"currentItem"`
		Status      *string `json:"status"`
		Mode        *string `json:"mode"`
		ClearMode   bool    `json:"clearMode"`
		Iteration   *int    `json:"iteration"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	upd := session.Update{
		CurrentTask: req.CurrentTask,
		CurrentItem: req.CurrentItem,
		ClearMode:   req.ClearMode,
		Iteration:   req.Iteration,
	}
	if req.Status != nil {
		v := store.SessionStatus(*req.Status)
		upd.Status = &v
	}
	if req.Mode != nil {
		v := store.SessionMode(*req.Mode)
		upd.Mode = &v
	}
	view, err := s.engine.UpdateSession(repo.ID, upd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleWorkingOn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
		Item     string `json:"item"`
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
	view, err := s.engine.WorkingOn(repo.ID, req.Item)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleAlsoDid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
		Text     string `json:"text"`
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
	view, err := s.engine.AlsoDid(repo.ID, req.Text)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleGetAnchor(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	track, err := s.engine.Anchor(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, track)
}

func (s *Server) handleSetAnchor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath string `json:"repoPath"`
		Item     string `json:"item"`
		SetBy    string `json:"setBy"`
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
	view, err := s.engine.SetAnchor(repo.ID, req.Item, req.SetBy)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleClearAnchor(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	view, err := s.engine.ClearAnchor(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, s.engine.QueueList(repo.ID))
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
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
	qi, err := s.engine.QueueAdd(repo.ID, req.Title)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, qi)
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.engine.QueueRemove(repo.ID, r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}
