// Package backend is the HTTP client for the learning platform that owns
// the quiz catalog, attempt grading, and user profiles.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

var (
	// ErrNotFound is returned for a 404 from the backend
	ErrNotFound = errors.New("backend: not found")

	// ErrRateLimited is returned when the local rate limiter rejects a call
	ErrRateLimited = errors.New("backend: rate limit exceeded")
)

// StatusError is a non-2xx response from the backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Config configures a backend Client
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// RatePerSecond caps outgoing calls (default: 10)
	RatePerSecond int

	// MaxAttempts for idempotent calls (default: 3)
	MaxAttempts int

	// RetryDelay is the initial backoff delay (default: 500ms)
	RetryDelay time.Duration

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit (default: 5)
	FailureThreshold int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the backend REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	circuitBreaker circuitbreaker.CircuitBreaker[*response]
	retrier        retry.Retry[*response]
	rateLimit      ratelimit.RateLimiter
}

type response struct {
	status int
	body   []byte
}

// NewClient creates a backend client with circuit breaking, rate limiting
// and retries on idempotent calls.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}

	threshold := cfg.FailureThreshold
	c.circuitBreaker = circuitbreaker.New[*response](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= threshold
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			c.logger.Warn("backend circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	c.retrier = retry.New[*response](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.RetryDelay,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})

	c.rateLimit = ratelimit.New(&ratelimit.Config{
		Rate:     cfg.RatePerSecond,
		Burst:    cfg.RatePerSecond * 2,
		Interval: time.Second,
	})

	return c
}

// Close releases resources held by the client
func (c *Client) Close() error {
	return c.rateLimit.Close()
}

// do performs a request. Only idempotent calls are retried; every call
// passes the rate limiter and the circuit breaker. 4xx responses do not
// count as breaker failures.
func (c *Client) do(ctx context.Context, method, path string, payload any, idempotent bool) ([]byte, error) {
	if !c.rateLimit.Allow(ctx, "backend") {
		return nil, ErrRateLimited
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	call := func(ctx context.Context) (*response, error) {
		resp, err := c.send(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		if resp.status >= 500 || resp.status == http.StatusTooManyRequests {
			return nil, &StatusError{StatusCode: resp.status, Body: string(resp.body)}
		}
		return resp, nil
	}

	operation := call
	if idempotent {
		operation = func(ctx context.Context) (*response, error) {
			return c.retrier.Do(ctx, call)
		}
	}

	resp, err := c.circuitBreaker.Execute(ctx, operation)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	switch {
	case resp.status == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.status >= 400:
		return nil, fmt.Errorf("%s %s: %w", method, path, &StatusError{StatusCode: resp.status, Body: string(resp.body)})
	}

	return resp.body, nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &response{status: resp.StatusCode, body: data}, nil
}

// isRetryable reports whether a failed call may be repeated
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
