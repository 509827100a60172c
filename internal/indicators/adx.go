package indicators

import (
	"errors"
	"math"

	"github.com/autocoin/futures-trader/pkg/types"
)

// ADX represents the Average Directional Index technical indicator.
// ADX measures trend strength regardless of direction on a 0-100 scale.
type ADX struct {
	period int
}

// ADXResult carries the smoothed trend strength plus the directional lines
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// NewADX creates a new ADX indicator
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

// Calculate computes ADX with Wilder's smoothing over the full window
func (a *ADX) Calculate(data []types.OHLCV) (ADXResult, error) {
	if len(data) < a.period*2+1 {
		return ADXResult{}, errors.New("insufficient data for ADX calculation")
	}

	// Seed the smoothed sums with the first period of TR/+DM/-DM
	var trSum, plusDMSum, minusDMSum float64
	for i := 1; i <= a.period; i++ {
		tr, plusDM, minusDM := directionalMovement(data[i], data[i-1])
		trSum += tr
		plusDMSum += plusDM
		minusDMSum += minusDM
	}

	dxValues := make([]float64, 0, len(data)-a.period)
	dxValues = append(dxValues, dxValue(plusDMSum, minusDMSum, trSum))

	period := float64(a.period)
	for i := a.period + 1; i < len(data); i++ {
		tr, plusDM, minusDM := directionalMovement(data[i], data[i-1])

		trSum = trSum - (trSum / period) + tr
		plusDMSum = plusDMSum - (plusDMSum / period) + plusDM
		minusDMSum = minusDMSum - (minusDMSum / period) + minusDM

		dxValues = append(dxValues, dxValue(plusDMSum, minusDMSum, trSum))
	}

	// First ADX is the simple average of the first period DX values,
	// then Wilder smoothing for the rest
	adxVal := 0.0
	for i := 0; i < a.period; i++ {
		adxVal += dxValues[i]
	}
	adxVal /= period

	for i := a.period; i < len(dxValues); i++ {
		adxVal = (adxVal*(period-1) + dxValues[i]) / period
	}

	result := ADXResult{ADX: adxVal}
	if trSum > 0 {
		result.PlusDI = (plusDMSum / trSum) * 100
		result.MinusDI = (minusDMSum / trSum) * 100
	}

	return result, nil
}

func directionalMovement(current, previous types.OHLCV) (tr, plusDM, minusDM float64) {
	tr = trueRange(current, previous.Close)

	highDiff := current.High - previous.High
	lowDiff := previous.Low - current.Low

	if highDiff > lowDiff && highDiff > 0 {
		plusDM = highDiff
	}
	if lowDiff > highDiff && lowDiff > 0 {
		minusDM = lowDiff
	}
	return tr, plusDM, minusDM
}

func dxValue(plusDMSum, minusDMSum, trSum float64) float64 {
	if trSum == 0 {
		return 0
	}
	plusDI := (plusDMSum / trSum) * 100
	minusDI := (minusDMSum / trSum) * 100

	diSum := plusDI + minusDI
	if diSum == 0 {
		return 0
	}
	return (math.Abs(plusDI-minusDI) / diSum) * 100
}

// GetName returns the indicator name
func (a *ADX) GetName() string {
	return "ADX"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ADX) GetRequiredPeriods() int {
	return a.period*2 + 1
}
