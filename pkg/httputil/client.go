package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rwaltman/basisengine/pkg/logger"
)

// Client is an HTTP client wrapper with retry, request logging and an
// optional token-bucket rate limit against the upstream gateway.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	retry      RetryConfig
	limiter    *rate.Limiter
}

// RetryConfig holds retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// New creates an HTTP client with the given timeout and default retries.
func New(log *logger.Logger, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Enabled:      true,
		},
	}
}

// WithRateLimit caps outbound requests at perSec with the given burst.
func (c *Client) WithRateLimit(perSec float64, burst int) *Client {
	if perSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
	return c
}

// WithRetry overrides retry behavior.
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retry.MaxRetries = maxRetries
	c.retry.InitialDelay = initialDelay
	c.retry.Enabled = true
	return c
}

// DisableRetry disables automatic retry.
func (c *Client) DisableRetry() *Client {
	c.retry.Enabled = false
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.Do(req)
}

// Post performs a POST request with body.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// Do executes a request, waiting for a rate token first and retrying
// transient failures with exponential backoff.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	attempts := 1
	if c.retry.Enabled {
		attempts += c.retry.MaxRetries
	}

	var lastErr error
	delay := c.retry.InitialDelay
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.WithFields(map[string]interface{}{
				"url":     req.URL.String(),
				"attempt": attempt + 1,
				"error":   err.Error(),
			}).Warn("HTTP request failed")
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			c.logger.WithFields(map[string]interface{}{
				"url":     req.URL.String(),
				"status":  resp.StatusCode,
				"attempt": attempt + 1,
			}).Warn("HTTP request returned retryable status")
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"url":      req.URL.String(),
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
		}).Debug("HTTP request completed")

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}
