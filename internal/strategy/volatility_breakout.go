package strategy

import (
	"fmt"
	"time"

	"github.com/autocoin/futures-trader/internal/indicators"
	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// VolatilityBreakout waits for a Bollinger band squeeze and trades the
// expansion bar in the direction of the break, with ATR-scaled exits.
type VolatilityBreakout struct {
	bands           *indicators.BollingerBands
	squeezeBars     int
	squeezeThreshold float64
	risk            RiskParams
}

// NewVolatilityBreakout creates the volatility breakout strategy with default parameters
func NewVolatilityBreakout() *VolatilityBreakout {
	return &VolatilityBreakout{
		bands:            indicators.NewBollingerBands(20, 2.0),
		squeezeBars:      5,
		squeezeThreshold: 0.015,
		risk: RiskParams{
			Leverage:        10,
			PositionSizePct: 0.02,
			Interval:        time.Minute,
			ATRStopMultiple: 1.5,
			ATRTakeMultiple: 3.0,
		},
	}
}

// Signal requires a squeeze over the preceding bars, then an expansion bar
// closing outside the bands with volume confirmation
func (vb *VolatilityBreakout) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < vb.RequiredBars() {
		return nil, fmt.Errorf("volatility_breakout: need %d bars, got %d", vb.RequiredBars(), len(data))
	}

	last := data[len(data)-1]

	// Every window ending before the current bar must have been squeezed
	for i := 0; i < vb.squeezeBars; i++ {
		end := len(data) - 1 - i
		squeezed, err := vb.bands.Calculate(data[:end])
		if err != nil {
			return nil, err
		}
		if squeezed.Width >= vb.squeezeThreshold {
			return hold("no squeeze preceding this bar", last.Timestamp), nil
		}
	}

	current, err := vb.bands.Calculate(data)
	if err != nil {
		return nil, err
	}

	if analysis.VolumeRatio < 1.5 {
		return hold("expansion lacks volume", last.Timestamp), nil
	}

	confidence := 0.65
	if analysis.VolumeRatio > 2.5 {
		confidence += 0.15
	}

	if last.Close > current.Upper {
		return &TradeDecision{
			Action:     ActionBuy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("squeeze release above upper band %.2f on %.1fx volume", current.Upper, analysis.VolumeRatio),
			Timestamp:  last.Timestamp,
		}, nil
	}

	if last.Close < current.Lower {
		return &TradeDecision{
			Action:     ActionSell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("squeeze release below lower band %.2f on %.1fx volume", current.Lower, analysis.VolumeRatio),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return hold("squeeze intact, no break", last.Timestamp), nil
}

func (vb *VolatilityBreakout) GetName() string {
	return "volatility_breakout"
}

func (vb *VolatilityBreakout) RiskParams() RiskParams {
	return vb.risk
}

func (vb *VolatilityBreakout) RequiredBars() int {
	return 20 + vb.squeezeBars + 1
}
