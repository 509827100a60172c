package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
	"github.com/autocoin/futures-trader/internal/recommend"
)

type stubGate struct {
	active bool
}

func (g *stubGate) HasActivePosition() bool {
	return g.active
}

func testConfig() config.SelectorConfig {
	return config.SelectorConfig{
		Cooldown:             4 * time.Hour,
		MinTradesPerPeriod:   5,
		ConfidenceThreshold:  0.7,
		MinImprovement:       0.15,
		MaxConsecutiveLosses: 3,
		HistoryLimit:         100,
	}
}

func recommendation(strategy string, score, confidence float64) *recommend.Recommendation {
	return &recommend.Recommendation{
		Strategy:   strategy,
		Score:      score,
		Confidence: confidence,
	}
}

// TestProposeApprovesOnImprovement verifies the happy path auto switch
func TestProposeApprovesOnImprovement(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "scalping")

	decision := s.Propose(recommendation("trend_following", 0.85, 0.8), 0.5, 0)

	require.NotNil(t, decision)
	assert.True(t, decision.Approved)
	assert.Equal(t, "scalping", decision.From)
	assert.Equal(t, "trend_following", decision.To)
	assert.Equal(t, "trend_following", s.ActiveStrategy())
	assert.NotEmpty(t, decision.ID)
	assert.Contains(t, decision.Reason, "score improvement")
}

// TestProposeApprovesOnLosingStreak verifies switching away from a cold strategy
// even without a large score improvement
func TestProposeApprovesOnLosingStreak(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")

	decision := s.Propose(recommendation("scalping", 0.55, 0.75), 0.5, 3)

	require.NotNil(t, decision)
	assert.True(t, decision.Approved)
	assert.Contains(t, decision.Reason, "consecutive losses")
	assert.Equal(t, "scalping", s.ActiveStrategy())
}

// TestProposeRejectsOpenPosition verifies positions block any auto switch
func TestProposeRejectsOpenPosition(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{active: true}, "breakout")

	decision := s.Propose(recommendation("scalping", 0.9, 0.9), 0.3, 5)

	require.NotNil(t, decision)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "open position")
	assert.Equal(t, "breakout", s.ActiveStrategy())
}

// TestProposeRejectsDuringCooldown verifies the minimum time between switches
func TestProposeRejectsDuringCooldown(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }

	first := s.Propose(recommendation("scalping", 0.9, 0.9), 0.3, 0)
	require.True(t, first.Approved)

	// Two hours later, well inside the four hour cooldown
	s.nowFunc = func() time.Time { return base.Add(2 * time.Hour) }
	second := s.Propose(recommendation("grid", 0.95, 0.95), 0.3, 5)

	require.NotNil(t, second)
	assert.False(t, second.Approved)
	assert.Contains(t, second.Reason, "cooldown")
	assert.Equal(t, "scalping", s.ActiveStrategy())
}

// TestProposeRejectsTooFewTrades verifies the sample size guard after cooldown
func TestProposeRejectsTooFewTrades(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }

	require.True(t, s.Propose(recommendation("scalping", 0.9, 0.9), 0.3, 0).Approved)

	s.nowFunc = func() time.Time { return base.Add(5 * time.Hour) }
	s.RecordTrade()
	s.RecordTrade()
	decision := s.Propose(recommendation("grid", 0.95, 0.95), 0.3, 5)

	require.NotNil(t, decision)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "trades since last switch")
}

// TestProposeRejectsLowConfidence verifies the confidence threshold
func TestProposeRejectsLowConfidence(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")

	decision := s.Propose(recommendation("scalping", 0.9, 0.7), 0.3, 0)

	require.NotNil(t, decision)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "confidence")
}

// TestProposeRejectsSmallImprovement verifies improvement gating without a streak
func TestProposeRejectsSmallImprovement(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")

	decision := s.Propose(recommendation("scalping", 0.55, 0.8), 0.5, 2)

	require.NotNil(t, decision)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "improvement")
}

// TestProposeSameStrategyIsNoop verifies no history entry for same-strategy picks
func TestProposeSameStrategyIsNoop(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")

	decision := s.Propose(recommendation("breakout", 0.9, 0.9), 0.5, 0)

	assert.Nil(t, decision)
	assert.Empty(t, s.History())
}

// TestManualSwitchBypassesScoreChecks verifies operators skip confidence and
// improvement gates but not the position gate
func TestManualSwitchBypassesScoreChecks(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")

	decision, err := s.ManualSwitch("grid", "ops", "maintenance window")

	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.True(t, decision.Manual)
	assert.Equal(t, "ops", decision.Operator)
	assert.Equal(t, "grid", s.ActiveStrategy())
}

// TestManualSwitchBlockedByPosition verifies the open position gate holds
// for manual switches too
func TestManualSwitchBlockedByPosition(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{active: true}, "breakout")

	decision, err := s.ManualSwitch("grid", "ops", "try anyway")

	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
	assert.False(t, decision.Approved)
	assert.Equal(t, "breakout", s.ActiveStrategy())
}

// TestManualSwitchToActiveFails verifies switching to the current strategy errors
func TestManualSwitchToActiveFails(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")

	_, err := s.ManualSwitch("breakout", "ops", "noop")

	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
}

// TestEmergencyStopBlocksAllSwitching verifies the kill switch
func TestEmergencyStopBlocksAllSwitching(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")
	s.SetEmergencyStop(true)

	auto := s.Propose(recommendation("scalping", 0.9, 0.9), 0.3, 5)
	require.NotNil(t, auto)
	assert.False(t, auto.Approved)

	_, err := s.ManualSwitch("grid", "ops", "during stop")
	assert.Error(t, err)

	s.SetEmergencyStop(false)
	decision := s.Propose(recommendation("scalping", 0.9, 0.9), 0.3, 5)
	assert.True(t, decision.Approved)
}

// TestHistoryRecordsEveryEvaluation verifies approved and rejected decisions
// both land in the immutable history
func TestHistoryRecordsEveryEvaluation(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }

	s.Propose(recommendation("scalping", 0.9, 0.9), 0.3, 0)  // approved
	s.Propose(recommendation("grid", 0.95, 0.95), 0.3, 5)    // cooldown reject

	history := s.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].Approved)
	assert.False(t, history[1].Approved)
	assert.NotEqual(t, history[0].ID, history[1].ID)
}

// TestRestoreRoundTrip verifies persisted selector state reloads
func TestRestoreRoundTrip(t *testing.T) {
	s := NewSelector(testConfig(), &stubGate{}, "breakout")
	switchTime := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	history := []Decision{{ID: "abc", From: "grid", To: "breakout", Approved: true, Timestamp: switchTime}}

	s.Restore("trend_following", switchTime, 7, history)

	assert.Equal(t, "trend_following", s.ActiveStrategy())
	assert.Equal(t, switchTime, s.LastSwitch())
	assert.Equal(t, history, s.History())
}
