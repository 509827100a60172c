package strategy

import (
	"fmt"
	"time"

	"github.com/autocoin/futures-trader/internal/indicators"
	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// LongShortSwitch flips direction on fast/slow moving average crossings,
// staying long in uptrends and short in downtrends.
type LongShortSwitch struct {
	fastMA *indicators.SMA
	slowMA *indicators.SMA
	risk   RiskParams
}

// NewLongShortSwitch creates the long short switching strategy with default parameters
func NewLongShortSwitch() *LongShortSwitch {
	return &LongShortSwitch{
		fastMA: indicators.NewSMA(20),
		slowMA: indicators.NewSMA(50),
		risk: RiskParams{
			StopLossPct:     0.02,
			TakeProfitPct:   0.06,
			TrailingStopPct: 0.015,
			Leverage:        5,
			PositionSizePct: 0.04,
			Interval:        2 * time.Minute,
		},
	}
}

// Signal fires on the bar where the fast MA crosses the slow MA
func (ls *LongShortSwitch) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < ls.RequiredBars() {
		return nil, fmt.Errorf("long_short_switch: need %d bars, got %d", ls.RequiredBars(), len(data))
	}

	last := data[len(data)-1]
	prior := data[:len(data)-1]

	fastNow, err := ls.fastMA.Calculate(data)
	if err != nil {
		return nil, err
	}
	slowNow, err := ls.slowMA.Calculate(data)
	if err != nil {
		return nil, err
	}
	fastPrev, err := ls.fastMA.Calculate(prior)
	if err != nil {
		return nil, err
	}
	slowPrev, err := ls.slowMA.Calculate(prior)
	if err != nil {
		return nil, err
	}

	confidence := 0.6
	if analysis.TrendStrength == market.TrendStrengthStrong {
		confidence += 0.15
	} else if analysis.TrendStrength == market.TrendStrengthNone {
		confidence -= 0.1
	}

	if fastPrev <= slowPrev && fastNow > slowNow {
		return &TradeDecision{
			Action:     ActionBuy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("MA20 %.2f crossed above MA50 %.2f, bullish flip", fastNow, slowNow),
			Timestamp:  last.Timestamp,
		}, nil
	}

	if fastPrev >= slowPrev && fastNow < slowNow {
		return &TradeDecision{
			Action:     ActionSell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("MA20 %.2f crossed below MA50 %.2f, bearish flip", fastNow, slowNow),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return hold("no MA flip", last.Timestamp), nil
}

func (ls *LongShortSwitch) GetName() string {
	return "long_short_switch"
}

func (ls *LongShortSwitch) RiskParams() RiskParams {
	return ls.risk
}

func (ls *LongShortSwitch) RequiredBars() int {
	return 51
}
