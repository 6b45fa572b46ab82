package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// HTTPClientConfig configures the shared source HTTP client.
type HTTPClientConfig struct {
	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum request burst.
	BurstSize int

	// MaxRetries is the maximum retry count for transient failures.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// APIKey is an optional key sent in APIKeyHeader.
	APIKey string

	// APIKeyHeader names the header carrying APIKey.
	APIKeyHeader string
}

// HTTPClient wraps http.Client with rate limiting and retries on 429
// and 5xx responses. Safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a rate-limited HTTP client.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PaperRecommendationService/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do executes a request with rate limiting and retries. The limiter
// is consulted before every attempt. Retries honor the Retry-After
// header on 429 responses. Callers must set GetBody on requests whose
// body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.config.MaxRetries {
				if err := c.waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}
			return nil, lastErr
		}

		if c.shouldRetry(resp.StatusCode) {
			retryDelay := c.getRetryDelay(resp)

			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}

			if attempt < c.config.MaxRetries {
				lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
				if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}

			return nil, fmt.Errorf("max retries exhausted after %d attempts, last status: %d", c.config.MaxRetries+1, resp.StatusCode)
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay honors the Retry-After header, as seconds or HTTP
// date, falling back to the configured delay.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
