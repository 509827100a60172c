package bybit

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig controls backoff for transient API failures
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// call runs fn through the circuit breaker with exponential backoff on
// retryable errors. The last error is returned once retries are exhausted.
func (c *Client) call(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.breaker.Call(fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == c.retry.MaxRetries || !IsRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoffDelay(attempt)):
		}
	}
	return lastErr
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.retry.InitialDelay) * math.Pow(c.retry.BackoffFactor, float64(attempt)))
	if delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	if c.retry.Jitter {
		delay += time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
	}
	return delay
}

// CircuitBreaker trips after consecutive failures so a dead venue is not
// hammered during an outage.
type CircuitBreaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	lastFailTime time.Time
	open         bool
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Call executes fn unless the breaker is open and still cooling down
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.open {
		if time.Since(cb.lastFailTime) < cb.resetTimeout {
			cb.mu.Unlock()
			return apiError(503, "circuit breaker open")
		}
		// Half-open: allow one probe through
		cb.open = false
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		cb.lastFailTime = time.Now()
		if cb.failures >= cb.maxFailures {
			cb.open = true
		}
		return err
	}
	cb.failures = 0
	return nil
}
