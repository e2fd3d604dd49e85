// Package api exposes a small read-only status API for the scheduler.
//
// It serves snapshots only; all mutation goes through the media list and
// the config file. Intended for localhost binding.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"postbot/internal/scheduler"
	logx "postbot/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string // default "127.0.0.1:8686"
}

type Server struct {
	httpServer *http.Server
	sched      *scheduler.Service
	log        logx.Logger
}

// New constructs the status server. Returns nil when disabled.
func New(cfg Config, sched *scheduler.Service, log logx.Logger) *Server {
	if !cfg.Enabled {
		return nil
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:8686"
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{sched: sched, log: log}
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/windows", s.handleWindows)
	r.Get("/api/media", s.handleMedia)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled. Safe to call on a nil server.
func (s *Server) Start(ctx context.Context) {
	if s == nil {
		return
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()
	go func() {
		s.log.Info("status api listening", logx.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status api failed", logx.Err(err))
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sched.Snapshot(r.Context()))
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sched.Snapshot(r.Context()).Windows)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sched.Snapshot(r.Context()).Media)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("status api encode failed", logx.Err(err))
	}
}
