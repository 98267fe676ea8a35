package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/registry"
	"github.com/chkd/chkd/internal/store"
)

var errBadThreshold = fmt.Errorf("thresholdMinutes must be a positive integer")

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	workers, err := s.engine.Workers(repo.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, workers)
}

func (s *Server) handleDeadWorkers(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoFrom(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var threshold time.Duration
	if raw := r.URL.Query().Get("thresholdMinutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondErr(w, errBadThreshold)
			return
		}
		threshold = time.Duration(n) * time.Minute
	}
	workers, err := s.engine.DeadWorkers(repo.ID, threshold)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, workers)
}

func (s *Server) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := s.engine.Worker(r.PathValue("id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, worker)
}

func (s *Server) handleSpawnWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoPath      string  `json:"repoPath"`
		TaskID        string  `json:"taskId"`
		TaskTitle     string  `json:"taskTitle"`
		Username      string  `json:"username"`
		NextTaskID    *string `json:"nextTaskId"`
		NextTaskTitle *string `json:"nextTaskTitle"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	worker, err := s.engine.SpawnWorker(r.Context(), engine.SpawnRequest{
		RepoPath:      req.RepoPath,
		TaskID:        req.TaskID,
		TaskTitle:     req.TaskTitle,
		Username:      req.Username,
		NextTaskID:    req.NextTaskID,
		NextTaskTitle: req.NextTaskTitle,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, worker)
}

func (s *Server) handleUpdateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   *string `json:"status"`
		Message  *string `json:"message"`
		Progress *int    `json:"progress"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	in := registry.UpdateInput{Message: req.Message, Progress: req.Progress}
	if req.Status != nil {
		v := store.WorkerStatus(*req.Status)
		in.Status = &v
	}
	worker, err := s.engine.UpdateWorker(r.PathValue("id"), in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, worker)
}

func (s *Server) handleDeleteWorker(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if err := s.engine.DeleteWorker(r.Context(), r.PathValue("id"), force); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	worker, err := s.engine.Heartbeat(r.PathValue("id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, worker)
}

func (s *Server) handleCompleteWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AutoMerge *bool `json:"autoMerge"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	autoMerge := true
	if req.AutoMerge != nil {
		autoMerge = *req.AutoMerge
	}
	result, err := s.engine.CompleteWorker(r.Context(), r.PathValue("id"), autoMerge)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleResolveWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string   `json:"strategy"`
		Files    []string `json:"files"`
	}
	if err := decode(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	result, err := s.engine.ResolveWorker(r.Context(), r.PathValue("id"), req.Strategy, req.Files)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}
