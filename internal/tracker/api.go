package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the round tracker.
type APIServer struct {
	server  *http.Server
	tracker *Tracker
	logger  *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(tracker *Tracker, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		tracker: tracker,
		logger:  logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *APIServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		UUID         string  `json:"uuid"`
		Authority    string  `json:"authority"`
		CurrentRound *uint64 `json:"current_round"`
		KnownRounds  int     `json:"known_rounds"`
		StartTime    string  `json:"start_time"`
		Uptime       string  `json:"uptime"`
	}{
		UUID:        s.tracker.UUID,
		Authority:   s.tracker.cfg.Miner.Authority,
		KnownRounds: s.tracker.ledger.Len(),
		StartTime:   s.tracker.StartTime.Format(time.RFC3339),
		Uptime:      time.Since(s.tracker.StartTime).String(),
	}
	if id, ok := s.tracker.CurrentRound(); ok {
		status.CurrentRound = &id
	}

	s.writeJSON(w, status)
}

func (s *APIServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.tracker.ledger.CurrentHistoryStats())
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
