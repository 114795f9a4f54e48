package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kofiasare/sankofa/internal/log"
)

// RetryConfig configures the retry behavior for LLM calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// String matching because neither Genkit nor the provider SDKs expose
// typed errors for transient failures. Re-evaluate if that changes.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// permanentError marks an error that must not be retried even when its
// text matches a transient pattern.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// RetryClient decorates a Client with exponential backoff on transient
// failures, proactive rate limiting on every attempt, and a circuit
// breaker that opens after repeated exhausted calls.
type RetryClient struct {
	inner   Client
	cfg     RetryConfig
	breaker *CircuitBreaker
	limiter *rate.Limiter
	logger  log.Logger
}

// NewRetryClient wraps inner. A nil limiter installs the default of 10
// requests per second with a burst of 30; a nil logger discards output.
func NewRetryClient(inner Client, cfg RetryConfig, limiter *rate.Limiter, logger log.Logger) *RetryClient {
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &RetryClient{
		inner:   inner,
		cfg:     cfg,
		breaker: NewCircuitBreaker(CircuitBreakerConfig{}),
		limiter: limiter,
		logger:  logger,
	}
}

// Generate implements Client.
func (c *RetryClient) Generate(ctx context.Context, req Request) (string, error) {
	var result string
	err := c.do(ctx, func() error {
		var err error
		result, err = c.inner.Generate(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// GenerateStream implements Client. An attempt is retried only when no
// chunk has reached the caller yet; once text has been delivered a
// retry would repeat it, so the failure is surfaced instead.
func (c *RetryClient) GenerateStream(ctx context.Context, req Request, callback StreamCallback) (string, error) {
	var result string
	delivered := false
	wrapped := func(ctx context.Context, chunk string) error {
		delivered = true
		if callback == nil {
			return nil
		}
		return callback(ctx, chunk)
	}

	err := c.do(ctx, func() error {
		var err error
		result, err = c.inner.GenerateStream(ctx, req, wrapped)
		if err != nil && delivered {
			return &permanentError{err: err}
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// do guards fn with the circuit breaker and delegates to the retry loop.
// The breaker counts final outcomes rather than individual attempts, so a
// call that recovers on retry does not move it toward open.
func (c *RetryClient) do(ctx context.Context, fn func() error) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.Warn("rejecting llm call, circuit breaker open",
			"state", c.breaker.State().String())
		return fmt.Errorf("llm service unavailable: %w", err)
	}

	if err := c.retry(ctx, fn); err != nil {
		c.breaker.Failure()
		return err
	}
	c.breaker.Success()
	return nil
}

// retry runs fn with rate limiting and exponential backoff. Each attempt
// waits on the limiter, including retries.
func (c *RetryClient) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := c.cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		err := fn()
		if err == nil {
			c.logger.Debug("llm call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return nil
		}

		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("llm call: %w", perm.err)
		}
		if !retryableError(err) {
			return fmt.Errorf("llm call: %w", err)
		}

		if attempt == c.cfg.MaxRetries {
			break
		}

		c.logger.Debug("retrying after transient error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.cfg.MaxInterval)
		}
	}

	return fmt.Errorf("llm call after %d retries (elapsed: %v): %w",
		c.cfg.MaxRetries, time.Since(start), lastErr)
}
