// Package remote implements the client for a hosted completion API. One
// request carries one prompt; transient failures are retried under the
// configured policy and only a caller cancellation exits the loop early.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/pkg/limiter"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
)

// defaultBaseURL is used when the configuration does not name an endpoint.
const defaultBaseURL = "https://api.aleph-alpha.com"

// completionRequest is the wire format of one completion call.
type completionRequest struct {
	Model                            string   `json:"model"`
	Prompt                           string   `json:"prompt"`
	MaximumTokens                    int      `json:"maximum_tokens"`
	Temperature                      float32  `json:"temperature"`
	StopSequences                    []string `json:"stop_sequences,omitempty"`
	FrequencyPenalty                 float32  `json:"frequency_penalty"`
	RepetitionPenaltiesIncludePrompt bool     `json:"repetition_penalties_include_prompt"`
}

// completionResponse carries the completions returned by the API.
type completionResponse struct {
	Completions []struct {
		Completion string `json:"completion"`
	} `json:"completions"`
}

// Client sends single-prompt completion requests to a hosted model.
type Client struct {
	cfg        *config.ModelConfig
	httpClient *http.Client
	baseURL    string
	token      string
	retry      *limiter.RetryManager
	breaker    *limiter.Breaker
	rate       *limiter.RateLimiter
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics
}

// NewClient creates a remote completion client. The API credential is read
// from cfg.APITokenFile; a missing or unreadable file fails construction
// instead of deferring the failure to the first request.
func NewClient(cfg *config.ModelConfig, log *logging.Logger, met *metrics.PipelineMetrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APITokenFile == "" {
		return nil, fmt.Errorf("%w: api_token_file is required for the remote backend", core.ErrInvalidConfig)
	}
	tokenBytes, err := os.ReadFile(cfg.APITokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read api token file %s: %w", cfg.APITokenFile, err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return nil, fmt.Errorf("%w: api token file %s is empty", core.ErrInvalidConfig, cfg.APITokenFile)
	}

	if log == nil {
		log = logging.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		baseURL: baseURL,
		token:   token,
		breaker: limiter.NewBreaker(limiter.DefaultCircuitBreakerConfig("remote-"+cfg.ModelUsed), func(name, from, to string) {
			log.Warn("circuit breaker state changed", "name", name, "from", from, "to", to)
		}),
		rate:    limiter.NewRateLimiter(cfg.MaxRPM),
		logger:  log,
		metrics: met,
	}
	c.retry = limiter.NewRetryManager(&limiter.RetryConfig{
		MaxRetries:    cfg.Retry.MaxRetries,
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		Jitter:        true,
	}, c.onRetry)

	return c, nil
}

// onRetry logs each failed attempt before the client re-enters the request.
func (c *Client) onRetry(attempt int, err error) {
	c.logger.LogRetry(c.cfg.ModelUsed, attempt, err)
	if c.metrics != nil {
		c.metrics.RecordRetry(c.cfg.ModelUsed)
	}
}

// Complete sends one prompt and returns the first completion's text. Every
// failure except a cancellation re-enters the request under the retry
// policy; a cancellation is logged and propagated to the caller.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.retry.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		if err := c.rate.Wait(ctx); err != nil {
			return nil, err
		}
		return c.breaker.Execute(func() (interface{}, error) {
			return c.complete(ctx, prompt)
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			c.logger.LogCancellation(c.cfg.ModelUsed, err)
		}
		if c.metrics != nil {
			c.metrics.RecordRequest(c.cfg.ModelUsed, "error")
		}
		return "", err
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(c.cfg.ModelUsed, "success")
	}
	return result.(string), nil
}

// complete performs a single request attempt.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(completionRequest{
		Model:                            c.cfg.ModelUsed,
		Prompt:                           prompt,
		MaximumTokens:                    c.cfg.GenMaxLen,
		Temperature:                      c.cfg.Temp,
		StopSequences:                    c.cfg.StopSequences,
		FrequencyPenalty:                 c.cfg.FrequencyPenalty,
		RepetitionPenaltiesIncludePrompt: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/complete", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Completions) == 0 {
		return "", fmt.Errorf("completion response carried no completions")
	}
	return parsed.Completions[0].Completion, nil
}
