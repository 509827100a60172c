package market

import "time"

// Condition classifies the prevailing market state
type Condition string

const (
	ConditionTrendingUp    Condition = "TRENDING_UP"
	ConditionTrendingDown  Condition = "TRENDING_DOWN"
	ConditionRanging       Condition = "RANGING"
	ConditionVolatile      Condition = "VOLATILE"
	ConditionBreakout      Condition = "BREAKOUT"
	ConditionConsolidating Condition = "CONSOLIDATING"
)

// TrendStrength grades the ADX reading
type TrendStrength string

const (
	TrendStrengthNone     TrendStrength = "NONE"
	TrendStrengthWeak     TrendStrength = "WEAK"
	TrendStrengthModerate TrendStrength = "MODERATE"
	TrendStrengthStrong   TrendStrength = "STRONG"
)

// Analysis is the full classification output for one window
type Analysis struct {
	Condition     Condition
	Confidence    float64
	TrendStrength TrendStrength
	ADX           float64
	PlusDI        float64
	MinusDI       float64
	ATRPercent    float64
	RSI           float64
	VolumeRatio   float64
	RangePercent  float64
	BreakoutUp    bool
	BreakoutDown  bool
	Price         float64
	// FundingRate is supplied by the caller from the latest ticker; the
	// analyzer itself never sets it
	FundingRate float64
	Timestamp   time.Time
}

// Conditions lists every classification the analyzer can emit
func Conditions() []Condition {
	return []Condition{
		ConditionTrendingUp,
		ConditionTrendingDown,
		ConditionRanging,
		ConditionVolatile,
		ConditionBreakout,
		ConditionConsolidating,
	}
}

// IsTrending reports whether the condition is directional
func (c Condition) IsTrending() bool {
	return c == ConditionTrendingUp || c == ConditionTrendingDown
}
