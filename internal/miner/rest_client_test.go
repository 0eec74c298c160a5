package miner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ore-miner-bot-go/internal/config"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	rc := &RestClient{
		client:  resty.New().SetBaseURL(server.URL),
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		backoff: func(int) time.Duration { return time.Millisecond },
	}

	return rc, server
}

func TestGetServerTime(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		expectedTime := time.Now().UnixMilli()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/time", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"serverTime": %d}`, expectedTime)
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		serverTime, err := rc.GetServerTime(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, expectedTime, serverTime)
	})

	t.Run("APIError", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "internal"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		serverTime, err := rc.GetServerTime(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get server time")
		assert.Contains(t, err.Error(), "request failed")
		assert.Equal(t, int64(0), serverTime)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&calls))
	})
}

func TestGetMinerState(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/miner/Auth111", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"authority":"Auth111","round_id":42,"rewards_sol":"1.000000001","rewards_ore":"12.5","deployed_sol":"0.01"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		state, err := rc.GetMinerState(context.Background(), "Auth111")
		require.NoError(t, err)
		assert.Equal(t, uint64(42), state.RoundID)

		sol, err := state.RewardSol()
		require.NoError(t, err)
		assert.Equal(t, "1.000000001", sol.String())

		deployed, err := state.Deployed()
		require.NoError(t, err)
		assert.Equal(t, "0.01", deployed.String())
	})

	t.Run("Retries after rate limit", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"round_id":7,"rewards_sol":"0","rewards_ore":"0","deployed_sol":"0"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		state, err := rc.GetMinerState(context.Background(), "Auth111")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), state.RoundID)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("Client error is not retried", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.GetMinerState(context.Background(), "Unknown")
		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Malformed amount", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"round_id":7,"rewards_sol":"lots","rewards_ore":"0"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.GetMinerState(context.Background(), "Auth111")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rewards_sol")
	})

	t.Run("Cancelled context", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		rc, server := setupTestServer(handler)
		defer server.Close()
		rc.backoff = func(int) time.Duration { return time.Hour }

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := rc.GetMinerState(ctx, "Auth111")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewRestClient(t *testing.T) {
	cfg := &config.Miner{BaseURL: "http://localhost:1", RateLimit: 5, RateLimitBurst: 1}
	rc := NewRestClient(cfg, zap.NewNop())

	assert.NotNil(t, rc)
	assert.Equal(t, cfg.BaseURL, rc.client.BaseURL)
	assert.Equal(t, rate.Limit(5), rc.limiter.Limit())
}
