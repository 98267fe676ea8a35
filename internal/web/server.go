// Package web exposes the coordinator over HTTP/JSON. Every response
// uses the envelope {"success":true,"data":...} or
// {"success":false,"error":"..."}.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/engine"
)

// Server is the HTTP front of the engine.
type Server struct {
	addr       string
	engine     *engine.Engine
	log        zerolog.Logger
	httpServer *http.Server
	listener   net.Listener
}

// New builds the server and its route table. Does not listen; call
// Start for that.
func New(addr string, eng *engine.Engine, log zerolog.Logger) *Server {
	s := &Server{addr: addr, engine: eng, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/repos", s.handleListRepos)
	mux.HandleFunc("POST /api/repos", s.handleAddRepo)
	mux.HandleFunc("PATCH /api/repos/{id}", s.handleUpdateRepo)
	mux.HandleFunc("DELETE /api/repos/{id}", s.handleDeleteRepo)

	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.handleCreateItem)
	mux.HandleFunc("GET /api/items/search", s.handleSearchItems)
	mux.HandleFunc("GET /api/items/progress", s.handleProgress)
	mux.HandleFunc("GET /api/items/{displayId}", s.handleGetItem)
	mux.HandleFunc("PATCH /api/items/{displayId}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{displayId}", s.handleDeleteItem)
	mux.HandleFunc("POST /api/items/{displayId}/children", s.handleAddChild)
	mux.HandleFunc("POST /api/items/{displayId}/move", s.handleMoveItem)
	mux.HandleFunc("PUT /api/items/{displayId}/priority", s.handleSetPriority)
	mux.HandleFunc("PUT /api/items/{displayId}/tags", s.handleSetTags)
	mux.HandleFunc("GET /api/items/{displayId}/tbc", s.handleTBCCheck)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("PATCH /api/session", s.handleUpdateSession)
	mux.HandleFunc("POST /api/session/start", s.handleStartSession)
	mux.HandleFunc("POST /api/session/complete", s.handleCompleteSession)
	mux.HandleFunc("POST /api/session/clear", s.handleClearSession)
	mux.HandleFunc("POST /api/session/working-on", s.handleWorkingOn)
	mux.HandleFunc("POST /api/session/also-did", s.handleAlsoDid)
	mux.HandleFunc("GET /api/session/anchor", s.handleGetAnchor)
	mux.HandleFunc("PUT /api/session/anchor", s.handleSetAnchor)
	mux.HandleFunc("DELETE /api/session/anchor", s.handleClearAnchor)
	mux.HandleFunc("GET /api/session/queue", s.handleQueueList)
	mux.HandleFunc("POST /api/session/queue", s.handleQueueAdd)
	mux.HandleFunc("DELETE /api/session/queue/{id}", s.handleQueueRemove)

	mux.HandleFunc("GET /api/workers", s.handleListWorkers)
	mux.HandleFunc("POST /api/workers", s.handleSpawnWorker)
	mux.HandleFunc("GET /api/workers/dead", s.handleDeadWorkers)
	mux.HandleFunc("GET /api/workers/{id}", s.handleGetWorker)
	mux.HandleFunc("PATCH /api/workers/{id}", s.handleUpdateWorker)
	mux.HandleFunc("DELETE /api/workers/{id}", s.handleDeleteWorker)
	mux.HandleFunc("POST /api/workers/{id}/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /api/workers/{id}/complete", s.handleCompleteWorker)
	mux.HandleFunc("POST /api/workers/{id}/resolve", s.handleResolveWorker)

	mux.HandleFunc("GET /api/signals", s.handleListSignals)
	mux.HandleFunc("DELETE /api/signals/{id}", s.handleDismissSignal)
	mux.HandleFunc("POST /api/signals/dismiss-all", s.handleDismissAll)

	mux.HandleFunc("POST /api/migrate/preview", s.handleMigratePreview)
	mux.HandleFunc("POST /api/migrate/run", s.handleMigrateRun)

	mux.HandleFunc("GET /api/bugs", s.handleListBugs)
	mux.HandleFunc("POST /api/bugs", s.handleAddBug)
	mux.HandleFunc("POST /api/bugs/{id}/fix", s.handleFixBug)
	mux.HandleFunc("GET /api/quick-wins", s.handleListQuickWins)
	mux.HandleFunc("POST /api/quick-wins", s.handleAddQuickWin)
	mux.HandleFunc("POST /api/quick-wins/{id}/complete", s.handleCompleteQuickWin)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. Non-blocking; the server runs in a goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()
	s.log.Info().Str("addr", s.addr).Msg("listening")
	return nil
}

// Stop shuts the server down, draining in-flight requests until the
// context expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
