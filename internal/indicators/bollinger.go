package indicators

import (
	"errors"
	"math"

	"github.com/autocoin/futures-trader/pkg/types"
)

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period         int
	stdDevMultiple float64
}

// BollingerResult holds the computed band values
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
	// Width is (Upper-Lower)/Middle, the squeeze measure
	Width float64
	// PercentB is the price position within the bands, 0 at lower, 1 at upper
	PercentB float64
}

// NewBollingerBands creates a new BollingerBands instance
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
	}
}

// Calculate computes the bands over the last period closes
func (bb *BollingerBands) Calculate(data []types.OHLCV) (BollingerResult, error) {
	if len(data) < bb.period {
		return BollingerResult{}, errors.New("insufficient data for Bollinger Bands calculation")
	}

	sum := 0.0
	for i := len(data) - bb.period; i < len(data); i++ {
		sum += data[i].Close
	}
	middle := sum / float64(bb.period)

	variance := 0.0
	for i := len(data) - bb.period; i < len(data); i++ {
		diff := data[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(bb.period))

	result := BollingerResult{
		Upper:  middle + bb.stdDevMultiple*stdDev,
		Middle: middle,
		Lower:  middle - bb.stdDevMultiple*stdDev,
	}

	if middle != 0 {
		result.Width = (result.Upper - result.Lower) / middle
	}

	currentPrice := data[len(data)-1].Close
	if result.Upper != result.Lower {
		result.PercentB = (currentPrice - result.Lower) / (result.Upper - result.Lower)
	} else {
		result.PercentB = 0.5
	}

	return result, nil
}

// GetName returns the indicator name
func (bb *BollingerBands) GetName() string {
	return "BollingerBands"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}
