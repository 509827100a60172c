package position

import "time"

// Side is the position direction
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// MarginMode selects which collateral backs the position
type MarginMode string

const (
	MarginCross    MarginMode = "CROSS"
	MarginIsolated MarginMode = "ISOLATED"
)

// Status is the position lifecycle state. Transitions only move forward:
// PENDING_OPEN -> OPEN -> PENDING_CLOSE -> CLOSED.
type Status string

const (
	StatusPendingOpen  Status = "PENDING_OPEN"
	StatusOpen         Status = "OPEN"
	StatusPendingClose Status = "PENDING_CLOSE"
	StatusClosed       Status = "CLOSED"
)

// CloseReason explains why a position is leaving the book
type CloseReason string

const (
	CloseReasonStopLoss        CloseReason = "stop_loss"
	CloseReasonTakeProfit      CloseReason = "take_profit"
	CloseReasonTrailingStop    CloseReason = "trailing_stop"
	CloseReasonLiquidationRisk CloseReason = "liquidation_risk"
	CloseReasonSignal          CloseReason = "signal"
	CloseReasonManual          CloseReason = "manual"
	CloseReasonEmergency       CloseReason = "emergency"
)

// Position is one futures position through its whole lifecycle
type Position struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	Status     Status     `json:"status"`
	Strategy   string     `json:"strategy"`
	MarginMode MarginMode `json:"margin_mode"`

	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	Leverage   int     `json:"leverage"`

	StopLoss        float64 `json:"stop_loss,omitempty"`
	TakeProfit      float64 `json:"take_profit,omitempty"`
	TrailingStopPct float64 `json:"trailing_stop_pct,omitempty"`
	// TrailingStop only ever tightens toward the price, never loosens
	TrailingStop float64 `json:"trailing_stop,omitempty"`

	LiquidationPrice float64 `json:"liquidation_price"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	RealizedPnL      float64 `json:"realized_pnl"`
	MarkPrice        float64 `json:"mark_price"`

	OpenOrderID  string `json:"open_order_id,omitempty"`
	CloseOrderID string `json:"close_order_id,omitempty"`

	CloseReason CloseReason `json:"close_reason,omitempty"`
	OpenedAt    time.Time   `json:"opened_at"`
	ClosedAt    time.Time   `json:"closed_at,omitempty"`
}

// IsActive reports whether the position still occupies the one-per-symbol slot
func (p *Position) IsActive() bool {
	return p.Status != StatusClosed
}

// Notional returns quantity times entry price
func (p *Position) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// Margin returns the collateral backing the position
func (p *Position) Margin() float64 {
	if p.Leverage == 0 {
		return p.Notional()
	}
	return p.Notional() / float64(p.Leverage)
}
