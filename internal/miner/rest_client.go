package miner

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ore-miner-bot-go/internal/config"
)

const maxRetries = 3

// Client defines the interface for the miner state API.
type Client interface {
	GetServerTime(ctx context.Context) (int64, error)
	GetMinerState(ctx context.Context, authority string) (*MinerState, error)
}

// RestClient is a client for the miner state REST API.
// It implements the Client interface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff func(attempt int) time.Duration
}

// ensure RestClient implements the interface
var _ Client = (*RestClient)(nil)

// NewRestClient creates a new miner API client.
func NewRestClient(cfg *config.Miner, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:  client,
		logger:  logger.Named("miner-client"),
		limiter: limiter,
		backoff: exponentialBackoff,
	}
}

// exponentialBackoff waits 1s, 2s, 4s between attempts.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// MinerState is the miner account as reported by the API. Amounts are decimal strings.
type MinerState struct {
	Authority   string `json:"authority"`
	RoundID     uint64 `json:"round_id"`
	RewardsSol  string `json:"rewards_sol"`
	RewardsOre  string `json:"rewards_ore"`
	DeployedSol string `json:"deployed_sol"` // stake placed in RoundID so far
}

// RewardSol parses the accumulated primary reward.
func (s *MinerState) RewardSol() (decimal.Decimal, error) {
	return parseAmount("rewards_sol", s.RewardsSol)
}

// RewardOre parses the accumulated secondary reward.
func (s *MinerState) RewardOre() (decimal.Decimal, error) {
	return parseAmount("rewards_ore", s.RewardsOre)
}

// Deployed parses the stake placed in the current round.
func (s *MinerState) Deployed() (decimal.Decimal, error) {
	return parseAmount("deployed_sol", s.DeployedSol)
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}

// GetServerTime fetches the current server time.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime(ctx context.Context) (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// GetMinerState fetches the miner account of the given authority.
func (c *RestClient) GetMinerState(ctx context.Context, authority string) (*MinerState, error) {
	req := c.client.R().
		SetPathParam("authority", authority).
		SetResult(&MinerState{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/miner/{authority}", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get miner state: %w", err)
	}

	state := resp.Result().(*MinerState)
	for _, parse := range []func() (decimal.Decimal, error){state.RewardSol, state.RewardOre, state.Deployed} {
		if _, err := parse(); err != nil {
			return nil, fmt.Errorf("failed to get miner state: %w", err)
		}
	}
	return state, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx)
	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			if !shouldRetry {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			err = fmt.Errorf("request failed with status %s", resp.Status())
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if i == maxRetries-1 {
			break
		}
		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
