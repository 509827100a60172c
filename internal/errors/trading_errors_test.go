package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRiskViolationNotRetryable verifies risk breaches are terminal for the request
func TestRiskViolationNotRetryable(t *testing.T) {
	err := NewRiskViolation("position", "open", "leverage 25x exceeds max 20x")

	assert.False(t, err.IsRetryable())
	assert.False(t, err.IsFatal())
	assert.True(t, IsRiskViolation(err))
	assert.Equal(t, RecoveryActionSkip, err.GetRecoveryAction())
}

// TestInvalidTransitionDetection verifies lifecycle errors carry the right category
func TestInvalidTransitionDetection(t *testing.T) {
	err := NewInvalidTransition("position", "close", "position already CLOSED")

	assert.True(t, IsInvalidTransition(err))
	assert.False(t, IsRiskViolation(err))
	assert.Contains(t, err.Error(), "TRANSITION")
}

// TestCategorizeErrorHeuristics verifies string based categorization of raw errors
func TestCategorizeErrorHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		raw      error
		category ErrorCategory
	}{
		{"timeout", errors.New("context deadline exceeded"), ErrorCategoryTimeout},
		{"network", errors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"rate limit", errors.New("too many requests"), ErrorCategoryRateLimit},
		{"auth", errors.New("invalid api key"), ErrorCategoryCredentials},
		{"balance", errors.New("insufficient balance"), ErrorCategoryOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categorized := CategorizeError(tt.raw, "exchange", "place_order")
			assert.Equal(t, tt.category, categorized.Category)
		})
	}
}

// TestWrapErrorUnwrap verifies errors.Is works through the wrapper
func TestWrapErrorUnwrap(t *testing.T) {
	base := errors.New("underlying failure")
	wrapped := WrapError(base, ErrorCategoryExchange, "exchange", "get_klines")

	assert.True(t, errors.Is(wrapped, base))
	assert.Equal(t, base, wrapped.Unwrap())
}

// TestFatalCategories verifies which categories halt the engine
func TestFatalCategories(t *testing.T) {
	assert.True(t, NewFatalError("engine", "start", "boom").IsFatal())
	assert.True(t, NewCredentialsError("exchange", "connect", "bad key").IsFatal())
	assert.True(t, NewConfigurationError("config", "load", "missing symbol").IsFatal())
	assert.False(t, NewNetworkError("exchange", "poll", errors.New("reset")).IsFatal())
}

// TestErrorStatsWindow verifies the bounded recent error window
func TestErrorStatsWindow(t *testing.T) {
	stats := NewErrorStats(3)
	for i := 0; i < 5; i++ {
		stats.RecordError(NewNetworkError("exchange", "poll", errors.New("reset")))
	}

	assert.Equal(t, 5, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 3)
	assert.Equal(t, 1.0, stats.GetErrorRate(ErrorCategoryNetwork))
	assert.True(t, stats.HasRecentErrors(ErrorCategoryNetwork, 3))
}
