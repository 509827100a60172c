package performance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocoin/futures-trader/internal/market"
)

func trade(strategy string, condition market.Condition, pnl float64) TradeResult {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	return TradeResult{
		ID:        "t",
		Strategy:  strategy,
		Condition: condition,
		Side:      "LONG",
		PnL:       pnl,
		OpenedAt:  now.Add(-time.Hour),
		ClosedAt:  now,
	}
}

// TestRecordTradeCounts verifies win/loss bookkeeping
func TestRecordTradeCounts(t *testing.T) {
	eval := NewEvaluator(0.9, 5)

	eval.RecordTrade(trade("breakout", market.ConditionBreakout, 100))
	eval.RecordTrade(trade("breakout", market.ConditionBreakout, -40))
	eval.RecordTrade(trade("breakout", market.ConditionTrendingUp, 60))

	rec := eval.Snapshot("breakout", "")
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.TotalTrades)
	assert.Equal(t, 2, rec.WinningTrades)
	assert.Equal(t, 1, rec.LosingTrades)
	assert.InDelta(t, 120.0, rec.TotalPnL, 1e-9)
	assert.InDelta(t, 2.0/3.0, rec.WinRate(), 1e-9)
	assert.InDelta(t, 4.0, rec.ProfitFactor(), 1e-9)

	byCondition := eval.Snapshot("breakout", market.ConditionBreakout)
	require.NotNil(t, byCondition)
	assert.Equal(t, 2, byCondition.TotalTrades)
}

// TestScoreNeutralBelowMinTrades verifies the small sample fallback
func TestScoreNeutralBelowMinTrades(t *testing.T) {
	eval := NewEvaluator(0.9, 5)

	assert.Equal(t, 50.0, eval.Score("unknown", ""))

	for i := 0; i < 4; i++ {
		eval.RecordTrade(trade("scalping", market.ConditionRanging, 10))
	}
	assert.Equal(t, 50.0, eval.Score("scalping", ""))

	eval.RecordTrade(trade("scalping", market.ConditionRanging, 10))
	assert.NotEqual(t, 50.0, eval.Score("scalping", ""))
}

// TestScoreOrdersStrategies verifies a winning strategy outscores a losing one
func TestScoreOrdersStrategies(t *testing.T) {
	eval := NewEvaluator(0.9, 5)

	for i := 0; i < 10; i++ {
		eval.RecordTrade(trade("winner", market.ConditionTrendingUp, 50))
		eval.RecordTrade(trade("loser", market.ConditionTrendingUp, -50))
	}

	assert.Greater(t, eval.Score("winner", ""), eval.Score("loser", ""))
	assert.Greater(t, eval.Score("winner", market.ConditionTrendingUp), 50.0)
}

// TestConsecutiveStreaks verifies streak tracking and reset
func TestConsecutiveStreaks(t *testing.T) {
	eval := NewEvaluator(0.9, 5)

	for i := 0; i < 3; i++ {
		eval.RecordTrade(trade("grid", market.ConditionRanging, -10))
	}
	assert.Equal(t, 3, eval.ConsecutiveLosses("grid"))

	eval.RecordTrade(trade("grid", market.ConditionRanging, 20))
	assert.Equal(t, 0, eval.ConsecutiveLosses("grid"))

	rec := eval.Snapshot("grid", "")
	assert.Equal(t, 3, rec.MaxConsecutiveLosses)
	assert.Equal(t, 1, rec.ConsecutiveWins)
}

// TestRecencyDecayFavorsRecentOutcomes verifies old results fade under EWMA
func TestRecencyDecayFavorsRecentOutcomes(t *testing.T) {
	eval := NewEvaluator(0.5, 1)

	// Old wins followed by recent losses
	for i := 0; i < 5; i++ {
		eval.RecordTrade(trade("fading", "", 10))
	}
	afterWins := eval.Snapshot("fading", "").RecencyScore
	for i := 0; i < 5; i++ {
		eval.RecordTrade(trade("fading", "", -10))
	}
	afterLosses := eval.Snapshot("fading", "").RecencyScore

	assert.Greater(t, afterWins, 0.9)
	assert.Less(t, afterLosses, 0.1)
}

// TestMaxDrawdown verifies the peak to trough calculation
func TestMaxDrawdown(t *testing.T) {
	eval := NewEvaluator(0.9, 5)

	// +100, +50 (peak 150), -120, -30 (trough 0), +60
	for _, pnl := range []float64{100, 50, -120, -30, 60} {
		eval.RecordTrade(trade("dd", "", pnl))
	}

	rec := eval.Snapshot("dd", "")
	assert.InDelta(t, 150.0, rec.MaxDrawdown, 1e-9)
}

// TestConcurrentAccess verifies RecordTrade and Score are safe under contention
func TestConcurrentAccess(t *testing.T) {
	eval := NewEvaluator(0.9, 5)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if w%2 == 0 {
					eval.RecordTrade(trade("concurrent", market.ConditionRanging, float64(i%3)-1))
				} else {
					_ = eval.Score("concurrent", "")
					_ = eval.SnapshotAll()
				}
			}
		}(w)
	}
	wg.Wait()

	rec := eval.Snapshot("concurrent", "")
	require.NotNil(t, rec)
	assert.Equal(t, 400, rec.TotalTrades)
}

// TestRestoreRoundTrip verifies persisted records reload into place
func TestRestoreRoundTrip(t *testing.T) {
	eval := NewEvaluator(0.9, 5)
	for i := 0; i < 6; i++ {
		eval.RecordTrade(trade("saved", market.ConditionBreakout, 25))
	}
	records := eval.SnapshotAll()

	restored := NewEvaluator(0.9, 5)
	restored.Restore(records)

	rec := restored.Snapshot("saved", "")
	require.NotNil(t, rec)
	assert.Equal(t, 6, rec.TotalTrades)
	assert.Equal(t, 6, restored.TradeCount("saved"))
}
