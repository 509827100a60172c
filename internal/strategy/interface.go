package strategy

import (
	"time"

	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// Strategy defines the interface for trading strategies.
// Signal must be pure over its inputs: the same window and analysis
// always yield the same decision.
type Strategy interface {
	// Signal analyzes market data and returns a trading decision
	Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error)

	// GetName returns the registry name of the strategy
	GetName() string

	// RiskParams returns the exit and sizing parameters for new positions
	RiskParams() RiskParams

	// RequiredBars returns the minimum window length for a signal
	RequiredBars() int
}

// RiskParams carries the per-strategy exit thresholds and sizing defaults
type RiskParams struct {
	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64
	Leverage        int
	PositionSizePct float64
	// Interval is how often the strategy wants to be evaluated; zero
	// falls back to the engine default
	Interval time.Duration
	// ATRStopMultiple overrides StopLossPct with an ATR distance when > 0
	ATRStopMultiple float64
	// ATRTakeMultiple overrides TakeProfitPct with an ATR distance when > 0
	ATRTakeMultiple float64
}

// TradeDecision represents a trading decision made by a strategy
type TradeDecision struct {
	Action     TradeAction
	Confidence float64
	Reason     string
	Timestamp  time.Time
}

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
)

func (ta TradeAction) String() string {
	switch ta {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func hold(reason string, ts time.Time) *TradeDecision {
	return &TradeDecision{Action: ActionHold, Reason: reason, Timestamp: ts}
}
