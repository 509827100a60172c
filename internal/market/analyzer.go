package market

import (
	"fmt"
	"math"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
	"github.com/autocoin/futures-trader/internal/indicators"
	"github.com/autocoin/futures-trader/pkg/types"
)

const (
	adxPeriod    = 14
	atrPeriod    = 14
	rsiPeriod    = 14
	volumePeriod = 20
)

// Analyzer classifies an OHLCV window into a market condition.
// It is pure: the same window and config always produce the same Analysis.
type Analyzer struct {
	cfg      config.AnalyzerConfig
	adx      *indicators.ADX
	atr      *indicators.ATR
	rsi      *indicators.RSI
	donchian *indicators.DonchianChannels
}

// NewAnalyzer creates an analyzer with the given thresholds
func NewAnalyzer(cfg config.AnalyzerConfig) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		adx:      indicators.NewADX(adxPeriod),
		atr:      indicators.NewATR(atrPeriod),
		rsi:      indicators.NewRSI(rsiPeriod),
		donchian: indicators.NewDonchianChannels(cfg.BreakoutLookback),
	}
}

// RequiredBars returns the minimum window length for a classification
func (a *Analyzer) RequiredBars() int {
	required := a.adx.GetRequiredPeriods()
	if lb := a.cfg.BreakoutLookback + 1; lb > required {
		required = lb
	}
	if volumePeriod+1 > required {
		required = volumePeriod + 1
	}
	return required
}

// Analyze classifies the window. The last bar is the bar under classification.
func (a *Analyzer) Analyze(data []types.OHLCV) (Analysis, error) {
	if len(data) < a.RequiredBars() {
		return Analysis{}, errors.NewInsufficientData("market", "analyze",
			fmt.Sprintf("need %d bars, got %d", a.RequiredBars(), len(data)))
	}

	last := data[len(data)-1]

	adxResult, err := a.adx.Calculate(data)
	if err != nil {
		return Analysis{}, errors.WrapError(err, errors.ErrorCategoryInsufficientData, "market", "adx")
	}
	atrValue, err := a.atr.Calculate(data)
	if err != nil {
		return Analysis{}, errors.WrapError(err, errors.ErrorCategoryInsufficientData, "market", "atr")
	}
	rsiValue, err := a.rsi.Calculate(data)
	if err != nil {
		return Analysis{}, errors.WrapError(err, errors.ErrorCategoryInsufficientData, "market", "rsi")
	}
	channel, err := a.donchian.Calculate(data)
	if err != nil {
		return Analysis{}, errors.WrapError(err, errors.ErrorCategoryInsufficientData, "market", "donchian")
	}

	analysis := Analysis{
		ADX:       adxResult.ADX,
		PlusDI:    adxResult.PlusDI,
		MinusDI:   adxResult.MinusDI,
		RSI:       rsiValue,
		Price:     last.Close,
		Timestamp: last.Timestamp,
	}

	if last.Close > 0 {
		analysis.ATRPercent = (atrValue / last.Close) * 100
	}
	analysis.VolumeRatio = volumeRatio(data)
	analysis.RangePercent = rangePercent(data, a.cfg.BreakoutLookback)
	analysis.BreakoutUp = a.donchian.IsBreakoutAbove(channel, last.Close)
	analysis.BreakoutDown = a.donchian.IsBreakoutBelow(channel, last.Close)
	analysis.TrendStrength = a.trendStrength(adxResult.ADX)

	condition, margin := a.classify(analysis, channel)
	analysis.Condition = condition
	analysis.Confidence = a.confidence(analysis, margin)

	return analysis, nil
}

// classify walks the configured precedence order and returns the first
// matching condition with its threshold margin.
func (a *Analyzer) classify(analysis Analysis, channel indicators.DonchianResult) (Condition, float64) {
	for _, category := range a.cfg.Precedence {
		switch category {
		case "BREAKOUT":
			if analysis.BreakoutUp || analysis.BreakoutDown {
				return ConditionBreakout, breakoutMargin(analysis.Price, channel)
			}
		case "TRENDING":
			if analysis.ADX > a.cfg.ADXTrendThreshold {
				margin := (analysis.ADX - a.cfg.ADXTrendThreshold) / a.cfg.ADXTrendThreshold
				if analysis.PlusDI >= analysis.MinusDI {
					return ConditionTrendingUp, margin
				}
				return ConditionTrendingDown, margin
			}
		case "VOLATILE":
			if analysis.ATRPercent > a.cfg.ATRHighVolatility {
				margin := (analysis.ATRPercent - a.cfg.ATRHighVolatility) / a.cfg.ATRHighVolatility
				return ConditionVolatile, margin
			}
		case "CONSOLIDATING":
			if analysis.RangePercent < a.cfg.ConsolidationRange && analysis.ATRPercent < a.cfg.ATRLowVolatility*2 {
				margin := (a.cfg.ConsolidationRange - analysis.RangePercent) / a.cfg.ConsolidationRange
				return ConditionConsolidating, margin
			}
		case "RANGING":
			// explicit match only when volatility is unremarkable;
			// fallthrough below still catches everything as RANGING
			if analysis.ATRPercent <= a.cfg.ATRHighVolatility {
				return ConditionRanging, 0
			}
		}
	}
	return ConditionRanging, 0
}

// confidence starts at a neutral base and rewards threshold margin,
// volume confirmation, and trend strength agreement.
func (a *Analyzer) confidence(analysis Analysis, margin float64) float64 {
	conf := 0.5 + 0.3*math.Min(margin, 1.0)

	if analysis.VolumeRatio > a.cfg.VolumeSpikeRatio &&
		(analysis.Condition == ConditionBreakout || analysis.Condition.IsTrending()) {
		conf += 0.1
	}
	if analysis.TrendStrength == TrendStrengthStrong && analysis.Condition.IsTrending() {
		conf += 0.1
	}

	return math.Max(0, math.Min(1, conf))
}

func (a *Analyzer) trendStrength(adx float64) TrendStrength {
	switch {
	case adx > a.cfg.ADXStrongThreshold:
		return TrendStrengthStrong
	case adx > a.cfg.ADXTrendThreshold:
		return TrendStrengthModerate
	case adx > 15:
		return TrendStrengthWeak
	default:
		return TrendStrengthNone
	}
}

// breakoutMargin scales breakout distance by channel width so a marginal
// poke over the channel scores lower than a decisive break
func breakoutMargin(price float64, channel indicators.DonchianResult) float64 {
	width := channel.Upper - channel.Lower
	if width == 0 {
		return 1.0
	}

	var distance float64
	if price > channel.Upper {
		distance = price - channel.Upper
	} else if price < channel.Lower {
		distance = channel.Lower - price
	}

	return math.Min(distance/width, 1.0)
}

func volumeRatio(data []types.OHLCV) float64 {
	if len(data) < volumePeriod+1 {
		return 1.0
	}
	sum := 0.0
	for i := len(data) - volumePeriod - 1; i < len(data)-1; i++ {
		sum += data[i].Volume
	}
	avg := sum / float64(volumePeriod)
	if avg == 0 {
		return 1.0
	}
	return data[len(data)-1].Volume / avg
}

func rangePercent(data []types.OHLCV, lookback int) float64 {
	if len(data) < lookback {
		lookback = len(data)
	}
	start := len(data) - lookback
	high := data[start].High
	low := data[start].Low
	for i := start + 1; i < len(data); i++ {
		if data[i].High > high {
			high = data[i].High
		}
		if data[i].Low < low {
			low = data[i].Low
		}
	}
	if low == 0 {
		return 0
	}
	return (high - low) / low
}
