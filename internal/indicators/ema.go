package indicators

import (
	"errors"

	"github.com/autocoin/futures-trader/pkg/types"
)

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
	alpha  float64
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Calculate calculates the EMA over the full window, seeded with the SMA of
// the first period closes. Same window always yields the same value.
func (e *EMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < e.period {
		return 0, errors.New("insufficient data for EMA calculation")
	}

	sum := 0.0
	for i := 0; i < e.period; i++ {
		sum += data[i].Close
	}
	ema := sum / float64(e.period)

	for i := e.period; i < len(data); i++ {
		ema = (data[i].Close * e.alpha) + (ema * (1 - e.alpha))
	}

	return ema, nil
}

// CalculateSeries computes the EMA of a raw value series, seeded with the
// SMA of the first period values. Used for MACD signal smoothing.
func (e *EMA) CalculateSeries(values []float64) (float64, error) {
	if len(values) < e.period {
		return 0, errors.New("insufficient data for EMA calculation")
	}

	sum := 0.0
	for i := 0; i < e.period; i++ {
		sum += values[i]
	}
	ema := sum / float64(e.period)

	for i := e.period; i < len(values); i++ {
		ema = (values[i] * e.alpha) + (ema * (1 - e.alpha))
	}

	return ema, nil
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}
