package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-flow/internal/httpcache"
)

// BackoffConfig controls the retry schedule. The delay before retry n (n >= 1)
// is Factor * 2^(n-1) seconds, capped at MaxInterval.
type BackoffConfig struct {
	MaxRetries  int
	Factor      float64
	MaxInterval time.Duration
}

// Delay returns the wait before the given retry (1-based).
func (b BackoffConfig) Delay(retry int) time.Duration {
	if retry < 1 || b.Factor <= 0 {
		return 0
	}
	secs := b.Factor * math.Pow(2, float64(retry-1))
	d := time.Duration(secs * float64(time.Second))
	if b.MaxInterval > 0 && d > b.MaxInterval {
		d = b.MaxInterval
	}
	return d
}

// ClientConfig bundles cache and resilience settings for the upstream client.
type ClientConfig struct {
	CachePath   string
	CacheExpiry time.Duration
	Timeout     time.Duration
	Backoff     BackoffConfig

	// Transport overrides the network transport under the cache (tests).
	Transport http.RoundTripper
}

// Client is an HTTP client with a response cache, retries and a circuit
// breaker. It is owned by the caller and must be closed.
type Client struct {
	http    *http.Client
	cache   *httpcache.Transport
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	sleep   func(ctx context.Context, d time.Duration) error
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// NewClient builds a Client. The cache database is created at cfg.CachePath.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.Factor < 0 {
		return nil, errInvalidConfig
	}

	cache, err := httpcache.New(cfg.CachePath, cfg.CacheExpiry, cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip only after the retry budget of a whole request is exhausted twice.
			return counts.ConsecutiveFailures > uint32(2*(cfg.Backoff.MaxRetries+1))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("WARN: circuit %s: %s -> %s", name, from, to)
		},
	})

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cache,
		},
		cache:   cache,
		backoff: cfg.Backoff,
		circuit: cb,
		sleep:   sleepContext,
	}, nil
}

// Close releases the response cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

// Do executes the request built by buildRequest with retries, backoff and the
// circuit breaker. The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode == http.StatusTooManyRequests {
				drain(resp)
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				drain(resp)
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				// Client errors are not retried.
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d: %s", errUnexpected, resp.StatusCode, msg)
			}
			return resp, nil
		}

		// The caller gave up; a per-attempt timeout leaves ctx live.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !retryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt+1, lastErr)
		}
		attempt++

		delay := c.backoff.Delay(attempt)
		log.Printf("DEBUG: request failed (%v); retry %d/%d in %s", err, attempt, c.backoff.MaxRetries, delay)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// retryable assumes the caller's context is still live.
func retryable(err error) bool {
	if errors.Is(err, errRateLimited) || errors.Is(err, errServerError) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return containsAny(err.Error(),
		"connection reset", "connection refused", "broken pipe", "timeout", "EOF", "no such host")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
