package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ore-miner-bot-go/internal/models"
)

const defaultRoundsLimit = 100

// RoundStore is the part of the round archive the UI reads.
type RoundStore interface {
	ListRounds(ctx context.Context, limit int) ([]models.RoundRecord, error)
	LastRound(ctx context.Context) (models.RoundRecord, bool, error)
	Statistics(ctx context.Context) (models.HistoryStats, error)
	StatisticsSince(ctx context.Context, since string) (models.HistoryStats, error)
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store RoundStore
	now   func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store RoundStore) *APIHandler {
	return &APIHandler{log: log, store: store, now: time.Now}
}

// Routes registers the API endpoints.
func (h *APIHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rounds", h.RoundsHandler)
	mux.HandleFunc("/api/last", h.LastRoundHandler)
	mux.HandleFunc("/api/statistics", h.StatisticsHandler)
	return mux
}

// RoundsHandler returns archived rounds, most recent first.
func (h *APIHandler) RoundsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRoundsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rounds, err := h.store.ListRounds(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get rounds from database", zap.Error(err))
		http.Error(w, "Failed to get rounds", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, rounds)
}

// LastRoundHandler returns the most recent archived round.
func (h *APIHandler) LastRoundHandler(w http.ResponseWriter, r *http.Request) {
	round, ok, err := h.store.LastRound(r.Context())
	if err != nil {
		h.log.Error("Failed to get last round from database", zap.Error(err))
		http.Error(w, "Failed to get last round", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "No rounds recorded", http.StatusNotFound)
		return
	}

	h.writeJSON(w, round)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h models.HistoryStats `json:"since_24h"`
	AllTime  models.HistoryStats `json:"all_time"`
}

// StatisticsHandler returns the round history statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	allTime, err := h.store.Statistics(r.Context())
	if err != nil {
		h.log.Error("Failed to calculate statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	since := h.now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	recent, err := h.store.StatisticsSince(r.Context(), since)
	if err != nil {
		h.log.Error("Failed to calculate 24h statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, StatisticsResponse{Since24h: recent, AllTime: allTime})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}
