package indicators

import (
	"errors"
	"math"

	"github.com/autocoin/futures-trader/pkg/types"
)

// ATR represents the Average True Range technical indicator.
// ATR measures market volatility from the full price range of each bar.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Calculate computes the ATR using Wilder's smoothing over the window
func (a *ATR) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < a.period+1 {
		return 0, errors.New("insufficient data for ATR calculation")
	}

	// Seed with the simple average of the first period true ranges
	sum := 0.0
	for i := 1; i <= a.period; i++ {
		sum += trueRange(data[i], data[i-1].Close)
	}
	atr := sum / float64(a.period)

	// Wilder's smoothing over the remainder of the window
	for i := a.period + 1; i < len(data); i++ {
		tr := trueRange(data[i], data[i-1].Close)
		atr = (atr*float64(a.period-1) + tr) / float64(a.period)
	}

	return atr, nil
}

// trueRange is max(High-Low, abs(High-PrevClose), abs(Low-PrevClose))
func trueRange(current types.OHLCV, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)

	return math.Max(hl, math.Max(hc, lc))
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}
