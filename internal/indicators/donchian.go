package indicators

import (
	"errors"

	"github.com/autocoin/futures-trader/pkg/types"
)

// DonchianChannels tracks the highest high and lowest low over a period.
// Breakout detection compares the latest close against the channel of the
// PRIOR bars, so the bar being classified never lifts its own channel.
type DonchianChannels struct {
	period int
}

// DonchianResult holds the channel values computed over the prior period bars
type DonchianResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// NewDonchianChannels creates a new Donchian Channels indicator
func NewDonchianChannels(period int) *DonchianChannels {
	return &DonchianChannels{period: period}
}

// Calculate computes the channel over the period bars preceding the last bar
func (dc *DonchianChannels) Calculate(data []types.OHLCV) (DonchianResult, error) {
	if len(data) < dc.period+1 {
		return DonchianResult{}, errors.New("insufficient data for Donchian Channels calculation")
	}

	// Exclude the most recent bar from the channel window
	end := len(data) - 1
	start := end - dc.period

	upper := data[start].High
	lower := data[start].Low
	for i := start + 1; i < end; i++ {
		if data[i].High > upper {
			upper = data[i].High
		}
		if data[i].Low < lower {
			lower = data[i].Low
		}
	}

	return DonchianResult{
		Upper:  upper,
		Middle: (upper + lower) / 2.0,
		Lower:  lower,
	}, nil
}

// IsBreakoutAbove checks if price is breaking above the prior channel high
func (dc *DonchianChannels) IsBreakoutAbove(result DonchianResult, price float64) bool {
	return price > result.Upper
}

// IsBreakoutBelow checks if price is breaking below the prior channel low
func (dc *DonchianChannels) IsBreakoutBelow(result DonchianResult, price float64) bool {
	return price < result.Lower
}

// Width returns the channel range as a fraction of the middle price
func (r DonchianResult) Width() float64 {
	if r.Middle == 0 {
		return 0
	}
	return (r.Upper - r.Lower) / r.Middle
}

// GetName returns the indicator name
func (dc *DonchianChannels) GetName() string {
	return "DonchianChannels"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (dc *DonchianChannels) GetRequiredPeriods() int {
	return dc.period + 1
}
