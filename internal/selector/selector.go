package selector

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
	"github.com/autocoin/futures-trader/internal/recommend"
)

// Decision is one switch evaluation, approved or rejected. History entries
// are never mutated after being appended.
type Decision struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Approved       bool      `json:"approved"`
	Manual         bool      `json:"manual"`
	Operator       string    `json:"operator,omitempty"`
	Reason         string    `json:"reason"`
	Confidence     float64   `json:"confidence"`
	CurrentScore   float64   `json:"current_score"`
	CandidateScore float64   `json:"candidate_score"`
}

// PositionGate reports whether any position blocks a strategy switch
type PositionGate interface {
	HasActivePosition() bool
}

// Selector owns the active strategy and enforces the switch guardrails.
// All methods are safe for concurrent use.
type Selector struct {
	mu sync.Mutex

	cfg  config.SelectorConfig
	gate PositionGate

	active            string
	lastSwitch        time.Time
	tradesSinceSwitch int
	history           []Decision
	emergencyStop     bool

	nowFunc func() time.Time
}

// NewSelector creates a selector starting on the initial strategy
func NewSelector(cfg config.SelectorConfig, gate PositionGate, initial string) *Selector {
	return &Selector{
		cfg:     cfg,
		gate:    gate,
		active:  initial,
		nowFunc: time.Now,
	}
}

// ActiveStrategy returns the currently selected strategy name
func (s *Selector) ActiveStrategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RecordTrade counts a completed trade against the active switch period
func (s *Selector) RecordTrade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradesSinceSwitch++
}

// SetEmergencyStop blocks or unblocks all switching
func (s *Selector) SetEmergencyStop(stop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergencyStop = stop
}

// Propose evaluates an automatic switch to the recommended strategy.
// Only evaluations where the candidate differs from the active strategy are
// recorded; same-strategy recommendations return nil.
func (s *Selector) Propose(rec *recommend.Recommendation, currentScore float64, consecutiveLosses int) *Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Strategy == s.active {
		return nil
	}

	decision := Decision{
		ID:             uuid.NewString(),
		Timestamp:      s.nowFunc(),
		From:           s.active,
		To:             rec.Strategy,
		Confidence:     rec.Confidence,
		CurrentScore:   currentScore,
		CandidateScore: rec.Score,
	}

	if reason, ok := s.rejectReason(rec, currentScore, consecutiveLosses, decision.Timestamp); !ok {
		decision.Reason = reason
		s.append(decision)
		return &decision
	}

	improvement := rec.Score - currentScore
	if consecutiveLosses >= s.cfg.MaxConsecutiveLosses && improvement <= s.cfg.MinImprovement {
		decision.Reason = fmt.Sprintf("consecutive losses: %d losing trades on %s", consecutiveLosses, s.active)
	} else {
		decision.Reason = fmt.Sprintf("score improvement %.2f over active strategy", improvement)
	}

	decision.Approved = true
	s.applySwitch(decision)
	return &decision
}

// rejectReason runs the guardrails in order and returns the first failure
func (s *Selector) rejectReason(rec *recommend.Recommendation, currentScore float64, consecutiveLosses int, now time.Time) (string, bool) {
	if s.emergencyStop {
		return "emergency stop active", false
	}
	if s.gate != nil && s.gate.HasActivePosition() {
		return "open position blocks switching", false
	}
	if !s.lastSwitch.IsZero() {
		if elapsed := now.Sub(s.lastSwitch); elapsed < s.cfg.Cooldown {
			return fmt.Sprintf("cooldown: %s remaining", (s.cfg.Cooldown - elapsed).Round(time.Second)), false
		}
		if s.tradesSinceSwitch < s.cfg.MinTradesPerPeriod {
			return fmt.Sprintf("only %d trades since last switch, need %d", s.tradesSinceSwitch, s.cfg.MinTradesPerPeriod), false
		}
	}
	if rec.Confidence <= s.cfg.ConfidenceThreshold {
		return fmt.Sprintf("confidence %.2f at or below threshold %.2f", rec.Confidence, s.cfg.ConfidenceThreshold), false
	}
	improvement := rec.Score - currentScore
	if improvement <= s.cfg.MinImprovement && consecutiveLosses < s.cfg.MaxConsecutiveLosses {
		return fmt.Sprintf("improvement %.2f below %.2f and no losing streak", improvement, s.cfg.MinImprovement), false
	}
	return "", true
}

// ManualSwitch forces a switch requested by an operator. The open-position
// gate still applies; confidence, improvement, and streak checks do not.
func (s *Selector) ManualSwitch(to, operator, reason string) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := Decision{
		ID:        uuid.NewString(),
		Timestamp: s.nowFunc(),
		From:      s.active,
		To:        to,
		Manual:    true,
		Operator:  operator,
		Reason:    reason,
	}

	if s.emergencyStop {
		decision.Reason = "emergency stop active"
		s.append(decision)
		return &decision, errors.NewInvalidTransition("selector", "manual_switch", "emergency stop active")
	}
	if to == s.active {
		decision.Reason = fmt.Sprintf("strategy %s already active", to)
		s.append(decision)
		return &decision, errors.NewInvalidTransition("selector", "manual_switch", decision.Reason)
	}
	if s.gate != nil && s.gate.HasActivePosition() {
		decision.Reason = "open position blocks switching"
		s.append(decision)
		return &decision, errors.NewInvalidTransition("selector", "manual_switch", decision.Reason)
	}

	decision.Approved = true
	s.applySwitch(decision)
	return &decision, nil
}

// applySwitch commits an approved decision; caller holds the lock
func (s *Selector) applySwitch(decision Decision) {
	s.active = decision.To
	s.lastSwitch = decision.Timestamp
	s.tradesSinceSwitch = 0
	s.append(decision)
}

func (s *Selector) append(decision Decision) {
	s.history = append(s.history, decision)
	if s.cfg.HistoryLimit > 0 && len(s.history) > s.cfg.HistoryLimit {
		s.history = s.history[len(s.history)-s.cfg.HistoryLimit:]
	}
}

// History returns a copy of the recorded decisions, oldest first
func (s *Selector) History() []Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Decision, len(s.history))
	copy(out, s.history)
	return out
}

// LastSwitch returns when the active strategy took over
func (s *Selector) LastSwitch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSwitch
}

// TradesSinceSwitch returns the trade count since the last approved switch
func (s *Selector) TradesSinceSwitch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tradesSinceSwitch
}

// Restore reloads persisted selector state
func (s *Selector) Restore(active string, lastSwitch time.Time, tradesSinceSwitch int, history []Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active != "" {
		s.active = active
	}
	s.lastSwitch = lastSwitch
	s.tradesSinceSwitch = tradesSinceSwitch
	s.history = append([]Decision(nil), history...)
}
