package strategy

import (
	"fmt"
	"time"

	"github.com/autocoin/futures-trader/internal/indicators"
	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// Scalping fades extremes inside a range: oversold RSI at the lower
// Bollinger band buys, overbought RSI at the upper band sells.
type Scalping struct {
	rsi        *indicators.RSI
	bands      *indicators.BollingerBands
	oversold   float64
	overbought float64
	risk       RiskParams
}

// NewScalping creates the scalping strategy with default parameters
func NewScalping() *Scalping {
	return &Scalping{
		rsi:        indicators.NewRSI(14),
		bands:      indicators.NewBollingerBands(20, 2.0),
		oversold:   30,
		overbought: 70,
		risk: RiskParams{
			StopLossPct:     0.005,
			TakeProfitPct:   0.01,
			Leverage:        2,
			PositionSizePct: 0.03,
			Interval:        30 * time.Second,
		},
	}
}

// Signal requires both the oscillator and the band touch to agree
func (s *Scalping) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < s.RequiredBars() {
		return nil, fmt.Errorf("scalping: need %d bars, got %d", s.RequiredBars(), len(data))
	}

	last := data[len(data)-1]

	rsiValue, err := s.rsi.Calculate(data)
	if err != nil {
		return nil, err
	}
	bands, err := s.bands.Calculate(data)
	if err != nil {
		return nil, err
	}

	if rsiValue < s.oversold && last.Close <= bands.Lower {
		confidence := 0.55 + (s.oversold-rsiValue)/100
		return &TradeDecision{
			Action:     ActionBuy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("RSI %.1f oversold at lower band %.2f", rsiValue, bands.Lower),
			Timestamp:  last.Timestamp,
		}, nil
	}

	if rsiValue > s.overbought && last.Close >= bands.Upper {
		confidence := 0.55 + (rsiValue-s.overbought)/100
		return &TradeDecision{
			Action:     ActionSell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("RSI %.1f overbought at upper band %.2f", rsiValue, bands.Upper),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return hold("no range extreme", last.Timestamp), nil
}

func (s *Scalping) GetName() string {
	return "scalping"
}

func (s *Scalping) RiskParams() RiskParams {
	return s.risk
}

func (s *Scalping) RequiredBars() int {
	return 21
}
