package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ore-miner-bot-go/internal/database"
	"ore-miner-bot-go/internal/models"
)

func setupHandler(t *testing.T) (*APIHandler, *database.RoundArchive) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	archive := database.NewRoundArchive(db)
	h := NewAPIHandler(zap.NewNop(), archive)
	h.now = func() time.Time { return time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC) }
	return h, archive
}

func seed(t *testing.T, archive *database.RoundArchive) {
	ctx := context.Background()
	for _, r := range []models.RoundRecord{
		{RoundID: 1, Timestamp: "2025-03-01T00:00:00Z", Status: models.StatusDeployed, DeployedSol: 10, GainedSol: 3, GainedOre: 4, Result: models.ResultSuccess},
		{RoundID: 2, Timestamp: "2025-03-02T00:00:00Z", Status: models.StatusSkipped, Result: models.ResultSkipped},
		{RoundID: 3, Timestamp: "2025-03-02T06:00:00Z", Status: models.StatusDeployed, DeployedSol: 10, GainedSol: -2, Result: models.ResultFailure},
	} {
		require.NoError(t, archive.SaveRound(ctx, r))
	}
}

func TestRoundsHandler(t *testing.T) {
	h, archive := setupHandler(t)
	seed(t, archive)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rounds?limit=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var rounds []models.RoundRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rounds))
	require.Len(t, rounds, 2)
	assert.Equal(t, uint64(3), rounds[0].RoundID)

	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rounds?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastRoundHandler(t *testing.T) {
	h, archive := setupHandler(t)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/last", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seed(t, archive)
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/last", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var round models.RoundRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &round))
	assert.Equal(t, uint64(3), round.RoundID)
}

func TestStatisticsHandler(t *testing.T) {
	h, archive := setupHandler(t)
	seed(t, archive)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StatisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.InDelta(t, 50.0, resp.AllTime.WinRate, 1e-9)
	assert.InDelta(t, 4.0/19.0, resp.AllTime.ProfitLossRatio, 1e-9)

	// Only round 3 falls inside the last 24 hours.
	assert.InDelta(t, 0.0, resp.Since24h.WinRate, 1e-9)
	assert.InDelta(t, 10.0, resp.Since24h.TotalDeployedSol, 1e-9)
}
