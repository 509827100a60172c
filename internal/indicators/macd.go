package indicators

import (
	"errors"

	"github.com/autocoin/futures-trader/pkg/types"
)

// MACD represents the Moving Average Convergence Divergence indicator
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// MACDResult holds the computed MACD values
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// NewMACD creates a new MACD instance with fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Calculate computes the MACD line, EMA signal line, and histogram over the window
func (m *MACD) Calculate(data []types.OHLCV) (MACDResult, error) {
	required := m.slowPeriod + m.signalPeriod
	if len(data) < required {
		return MACDResult{}, errors.New("insufficient data for MACD calculation")
	}

	// Build the MACD line series so the signal EMA has history to smooth over
	macdSeries := make([]float64, 0, len(data)-m.slowPeriod+1)
	fast := NewEMA(m.fastPeriod)
	slow := NewEMA(m.slowPeriod)
	for i := m.slowPeriod; i <= len(data); i++ {
		window := data[:i]
		fastVal, err := fast.Calculate(window)
		if err != nil {
			return MACDResult{}, err
		}
		slowVal, err := slow.Calculate(window)
		if err != nil {
			return MACDResult{}, err
		}
		macdSeries = append(macdSeries, fastVal-slowVal)
	}

	signalEMA := NewEMA(m.signalPeriod)
	signal, err := signalEMA.CalculateSeries(macdSeries)
	if err != nil {
		return MACDResult{}, err
	}

	line := macdSeries[len(macdSeries)-1]
	return MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}, nil
}

// GetName returns the indicator name
func (m *MACD) GetName() string {
	return "MACD"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod
}
