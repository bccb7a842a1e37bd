// Package server exposes the agent over HTTP: Prometheus exposition on
// /metrics plus a small JSON API for the latest snapshot and stored history.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/edgewatch/internal/export"
	"github.com/HerbHall/edgewatch/internal/store"
	"github.com/HerbHall/edgewatch/internal/version"
)

// Server is the agent's HTTP server.
type Server struct {
	httpServer *http.Server
	exporter   *export.Exporter
	store      *store.SQLiteStore
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server. st may be nil when snapshot persistence is disabled;
// the history endpoint then reports 503.
func New(addr string, exp *export.Exporter, st *store.SQLiteStore, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		exporter: exp,
		store:    st,
		logger:   logger,
		mux:      mux,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	registry := prometheus.NewRegistry()
	registry.MustRegister(s.exporter)

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/v1/history", s.handleHistory)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the route multiplexer, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "edgewatch",
		"version": version.Map(),
	})
}

// handleSnapshot returns the most recent collection snapshot, or 204 while
// no cycle has produced data yet.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, collectedAt := s.exporter.Latest()
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collected_at": collectedAt.UTC(),
		"metrics":      snap,
	})
}

// handleHistory returns stored records, filtered by the optional "name" and
// "since" (RFC 3339) query parameters. "since" defaults to one hour ago.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "snapshot history is disabled",
		})
		return
	}

	since := time.Now().Add(-time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("invalid since parameter: %v", err),
			})
			return
		}
		since = parsed
	}

	records, err := s.store.History(r.Context(), r.URL.Query().Get("name"), since)
	if err != nil {
		s.logger.Warn("history query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to query history",
		})
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
