package reporting

import (
	"time"

	"github.com/autocoin/futures-trader/internal/performance"
	"github.com/autocoin/futures-trader/internal/selector"
)

// SessionReport aggregates everything a periodic report renders
type SessionReport struct {
	Symbol         string
	Exchange       string
	Environment    string
	SessionStart   time.Time
	GeneratedAt    time.Time
	ActiveStrategy string

	InitialBalance float64
	Capital        float64
	DailyRealized  float64

	StrategyRecords []*performance.Record
	Trades          []performance.TradeResult
	Switches        []*selector.Decision
}

// TotalReturn is the session return over the initial balance
func (r *SessionReport) TotalReturn() float64 {
	if r.InitialBalance == 0 {
		return 0
	}
	return (r.Capital - r.InitialBalance) / r.InitialBalance
}
