package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// Grid buys below and sells above the center of a rolling range, one grid
// step at a time. Outside the range it stands aside rather than chase.
type Grid struct {
	rangeLookback int
	levels        int
	spacing       float64
	risk          RiskParams
}

// NewGrid creates the grid strategy with default parameters
func NewGrid() *Grid {
	return &Grid{
		rangeLookback: 24,
		levels:        10,
		spacing:       0.002,
		risk: RiskParams{
			StopLossPct:     0.05,
			TakeProfitPct:   0.01,
			Leverage:        3,
			PositionSizePct: 0.03,
			Interval:        time.Minute,
		},
	}
}

// Signal compares the last close to the rolling range center in grid steps
func (g *Grid) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < g.RequiredBars() {
		return nil, fmt.Errorf("grid: need %d bars, got %d", g.RequiredBars(), len(data))
	}

	last := data[len(data)-1]

	high, low := rollingRange(data, g.rangeLookback)
	center := (high + low) / 2
	if center == 0 {
		return hold("degenerate range", last.Timestamp), nil
	}

	// Outside the working range the grid has no defined level to trade
	if last.Close > high || last.Close < low {
		return hold("price outside grid range", last.Timestamp), nil
	}

	deviation := (last.Close - center) / center
	steps := deviation / g.spacing
	if math.Abs(steps) < 1 {
		return hold("price at grid center", last.Timestamp), nil
	}

	// Deeper deviation from center earns more confidence, capped at the edge
	confidence := 0.5 + math.Min(math.Abs(steps)/float64(g.levels), 0.4)

	if steps <= -1 {
		return &TradeDecision{
			Action:     ActionBuy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("price %.2f is %.1f grid steps below center %.2f", last.Close, -steps, center),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return &TradeDecision{
		Action:     ActionSell,
		Confidence: confidence,
		Reason:     fmt.Sprintf("price %.2f is %.1f grid steps above center %.2f", last.Close, steps, center),
		Timestamp:  last.Timestamp,
	}, nil
}

func rollingRange(data []types.OHLCV, lookback int) (high, low float64) {
	start := len(data) - lookback
	high = data[start].High
	low = data[start].Low
	for i := start + 1; i < len(data); i++ {
		if data[i].High > high {
			high = data[i].High
		}
		if data[i].Low < low {
			low = data[i].Low
		}
	}
	return high, low
}

func (g *Grid) GetName() string {
	return "grid"
}

func (g *Grid) RiskParams() RiskParams {
	return g.risk
}

func (g *Grid) RequiredBars() int {
	return g.rangeLookback
}
