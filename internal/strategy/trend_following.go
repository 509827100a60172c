package strategy

import (
	"fmt"
	"time"

	"github.com/autocoin/futures-trader/internal/indicators"
	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// TrendFollowing rides EMA crossovers confirmed by the MACD histogram
type TrendFollowing struct {
	fastEMA *indicators.EMA
	slowEMA *indicators.EMA
	macd    *indicators.MACD
	risk    RiskParams
}

// NewTrendFollowing creates the trend following strategy with default parameters
func NewTrendFollowing() *TrendFollowing {
	return &TrendFollowing{
		fastEMA: indicators.NewEMA(12),
		slowEMA: indicators.NewEMA(26),
		macd:    indicators.NewMACD(12, 26, 9),
		risk: RiskParams{
			StopLossPct:     0.03,
			TakeProfitPct:   0.10,
			TrailingStopPct: 0.03,
			Leverage:        3,
			PositionSizePct: 0.05,
			Interval:        5 * time.Minute,
		},
	}
}

// Signal fires when the fast EMA crosses the slow EMA on this bar and the
// MACD histogram agrees with the crossing direction
func (tf *TrendFollowing) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < tf.RequiredBars() {
		return nil, fmt.Errorf("trend_following: need %d bars, got %d", tf.RequiredBars(), len(data))
	}

	last := data[len(data)-1]
	prior := data[:len(data)-1]

	fastNow, err := tf.fastEMA.Calculate(data)
	if err != nil {
		return nil, err
	}
	slowNow, err := tf.slowEMA.Calculate(data)
	if err != nil {
		return nil, err
	}
	fastPrev, err := tf.fastEMA.Calculate(prior)
	if err != nil {
		return nil, err
	}
	slowPrev, err := tf.slowEMA.Calculate(prior)
	if err != nil {
		return nil, err
	}
	macdResult, err := tf.macd.Calculate(data)
	if err != nil {
		return nil, err
	}

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow

	if crossedUp && macdResult.Histogram > 0 {
		confidence := 0.6
		if analysis.TrendStrength == market.TrendStrengthStrong {
			confidence += 0.15
		}
		return &TradeDecision{
			Action:     ActionBuy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("EMA12 %.2f crossed above EMA26 %.2f with rising MACD", fastNow, slowNow),
			Timestamp:  last.Timestamp,
		}, nil
	}

	if crossedDown && macdResult.Histogram < 0 {
		confidence := 0.6
		if analysis.TrendStrength == market.TrendStrengthStrong {
			confidence += 0.15
		}
		return &TradeDecision{
			Action:     ActionSell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("EMA12 %.2f crossed below EMA26 %.2f with falling MACD", fastNow, slowNow),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return hold("no crossover", last.Timestamp), nil
}

func (tf *TrendFollowing) GetName() string {
	return "trend_following"
}

func (tf *TrendFollowing) RiskParams() RiskParams {
	return tf.risk
}

func (tf *TrendFollowing) RequiredBars() int {
	return 26 + 9 + 1
}
