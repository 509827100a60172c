package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

func candles(closes []float64) []types.OHLCV {
	data := make([]types.OHLCV, len(closes))
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		data[i] = types.OHLCV{
			Open: c, High: c * 1.001, Low: c * 0.999, Close: c,
			Volume: 1000, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return data
}

// TestRegistryHasAllStrategies verifies every built-in strategy is installed
func TestRegistryHasAllStrategies(t *testing.T) {
	registry := NewRegistry()

	expected := []string{
		"breakout", "funding_arbitrage", "grid", "long_short_switch",
		"scalping", "trend_following", "volatility_breakout",
	}
	assert.Equal(t, expected, registry.Names())

	for _, name := range expected {
		s, err := registry.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.GetName())
		assert.Greater(t, s.RequiredBars(), 0)
	}

	_, err := registry.Get("nope")
	assert.Error(t, err)
}

// TestEvaluationIntervalsPerStrategy verifies each strategy declares its own
// cadence, from the 30 second scalper up to the 5 minute trend followers
func TestEvaluationIntervalsPerStrategy(t *testing.T) {
	registry := NewRegistry()

	intervals := map[string]time.Duration{
		"breakout":            time.Minute,
		"funding_arbitrage":   5 * time.Minute,
		"grid":                time.Minute,
		"long_short_switch":   2 * time.Minute,
		"scalping":            30 * time.Second,
		"trend_following":     5 * time.Minute,
		"volatility_breakout": time.Minute,
	}
	for name, want := range intervals {
		s, err := registry.Get(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.RiskParams().Interval, name)
	}
}

// TestBreakoutBuySignal verifies a close above the prior 20 bar high buys
func TestBreakoutBuySignal(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0
	}
	closes[24] = 110.0
	data := candles(closes)

	b := NewBreakout()
	decision, err := b.Signal(data, market.Analysis{VolumeRatio: 2.0})

	require.NoError(t, err)
	assert.Equal(t, ActionBuy, decision.Action)
	assert.GreaterOrEqual(t, decision.Confidence, 0.6)
	assert.Contains(t, decision.Reason, "broke above")
}

// TestBreakoutSellSignal verifies a close below the prior 10 bar low sells
func TestBreakoutSellSignal(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0
	}
	closes[24] = 90.0
	data := candles(closes)

	b := NewBreakout()
	decision, err := b.Signal(data, market.Analysis{})

	require.NoError(t, err)
	assert.Equal(t, ActionSell, decision.Action)
}

// TestBreakoutHoldInsideChannel verifies no signal when price stays contained
func TestBreakoutHoldInsideChannel(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0
	}
	data := candles(closes)

	b := NewBreakout()
	decision, err := b.Signal(data, market.Analysis{})

	require.NoError(t, err)
	assert.Equal(t, ActionHold, decision.Action)
}

// TestBreakoutDeterministic verifies repeated evaluation gives the same decision
func TestBreakoutDeterministic(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0 + float64(i)*0.1
	}
	closes[24] = 110.0
	data := candles(closes)
	analysis := market.Analysis{VolumeRatio: 1.8}

	b := NewBreakout()
	first, err1 := b.Signal(data, analysis)
	second, err2 := b.Signal(data, analysis)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

// TestScalpingBuysOversoldAtLowerBand verifies the double confirmation entry
func TestScalpingBuysOversoldAtLowerBand(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0
	}
	// Sharp flush through the lower band on the last bar
	closes[24] = 95.0
	data := candles(closes)

	s := NewScalping()
	decision, err := s.Signal(data, market.Analysis{})

	require.NoError(t, err)
	assert.Equal(t, ActionBuy, decision.Action)
	assert.Contains(t, decision.Reason, "oversold")
}

// TestScalpingHoldsMidRange verifies no trade without an extreme
func TestScalpingHoldsMidRange(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0
		if i%2 == 0 {
			closes[i] = 100.5
		}
	}
	data := candles(closes)

	s := NewScalping()
	decision, err := s.Signal(data, market.Analysis{})

	require.NoError(t, err)
	assert.Equal(t, ActionHold, decision.Action)
}

// TestTrendFollowingBuysOnCrossover verifies the EMA cross with MACD agreement
func TestTrendFollowingBuysOnCrossover(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		switch {
		case i < 40:
			closes[i] = 100.0 - float64(i)*0.05
		default:
			closes[i] = closes[39] + float64(i-39)*1.5
		}
	}
	data := candles(closes)

	tf := NewTrendFollowing()

	// Walk forward until the crossover bar fires, then assert on it
	var fired *TradeDecision
	for end := tf.RequiredBars(); end <= len(data); end++ {
		decision, err := tf.Signal(data[:end], market.Analysis{})
		require.NoError(t, err)
		if decision.Action == ActionBuy {
			fired = decision
			break
		}
	}

	require.NotNil(t, fired, "expected a buy crossover in the rally")
	assert.Contains(t, fired.Reason, "crossed above")
}

// TestFundingArbitrageSellsPositiveRate verifies shorting rich funding
func TestFundingArbitrageSellsPositiveRate(t *testing.T) {
	data := candles([]float64{100, 100})

	fa := NewFundingArbitrage()
	decision, err := fa.Signal(data, market.Analysis{FundingRate: 0.01})

	require.NoError(t, err)
	assert.Equal(t, ActionSell, decision.Action)
	assert.Contains(t, decision.Reason, "pays shorts")
}

// TestFundingArbitrageBuysNegativeRate verifies going long on negative funding
func TestFundingArbitrageBuysNegativeRate(t *testing.T) {
	data := candles([]float64{100, 100})

	fa := NewFundingArbitrage()
	decision, err := fa.Signal(data, market.Analysis{FundingRate: -0.008})

	require.NoError(t, err)
	assert.Equal(t, ActionBuy, decision.Action)
}

// TestFundingArbitrageHoldsSmallRate verifies no entry below the threshold
func TestFundingArbitrageHoldsSmallRate(t *testing.T) {
	data := candles([]float64{100, 100})

	fa := NewFundingArbitrage()
	decision, err := fa.Signal(data, market.Analysis{FundingRate: 0.0001})

	require.NoError(t, err)
	assert.Equal(t, ActionHold, decision.Action)
	assert.True(t, fa.ShouldExit(0.0001))
	assert.False(t, fa.ShouldExit(0.004))
}

// TestGridBuysBelowCenter verifies the grid step entry below range center
func TestGridBuysBelowCenter(t *testing.T) {
	closes := make([]float64, 24)
	for i := range closes {
		closes[i] = 100.0
		if i%2 == 0 {
			closes[i] = 101.0
		}
	}
	// Last close one full step below the 100.5 center, still inside range
	closes[23] = 100.1
	data := candles(closes)

	g := NewGrid()
	decision, err := g.Signal(data, market.Analysis{})

	require.NoError(t, err)
	assert.Equal(t, ActionBuy, decision.Action)
	assert.Contains(t, decision.Reason, "below center")
}

// TestGridHoldsOutsideRange verifies the grid stands aside on a range escape
func TestGridHoldsOutsideRange(t *testing.T) {
	closes := make([]float64, 24)
	for i := range closes {
		closes[i] = 100.0
	}
	closes[23] = 120.0
	data := candles(closes)

	g := NewGrid()
	decision, err := g.Signal(data, market.Analysis{})

	require.NoError(t, err)
	assert.Equal(t, ActionHold, decision.Action)
}

// TestLongShortSwitchFlips verifies direction flips at MA crossings
func TestLongShortSwitchFlips(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		if i < 55 {
			closes[i] = 100.0 - float64(i)*0.1
		} else {
			closes[i] = closes[54] + float64(i-54)*1.0
		}
	}
	data := candles(closes)

	ls := NewLongShortSwitch()
	var fired *TradeDecision
	for end := ls.RequiredBars(); end <= len(data); end++ {
		decision, err := ls.Signal(data[:end], market.Analysis{})
		require.NoError(t, err)
		if decision.Action == ActionBuy {
			fired = decision
			break
		}
	}

	require.NotNil(t, fired, "expected a bullish flip in the recovery")
	assert.Contains(t, fired.Reason, "bullish flip")
}

// TestVolatilityBreakoutNeedsSqueezeAndVolume verifies both preconditions gate entry
func TestVolatilityBreakoutNeedsSqueezeAndVolume(t *testing.T) {
	closes := make([]float64, 26)
	for i := range closes {
		closes[i] = 100.0
	}
	closes[25] = 103.0
	data := candles(closes)

	vb := NewVolatilityBreakout()

	// Without volume the expansion is ignored
	decision, err := vb.Signal(data, market.Analysis{VolumeRatio: 1.0})
	require.NoError(t, err)
	assert.Equal(t, ActionHold, decision.Action)

	// With volume the same bar buys
	decision, err = vb.Signal(data, market.Analysis{VolumeRatio: 2.0})
	require.NoError(t, err)
	assert.Equal(t, ActionBuy, decision.Action)
	assert.Contains(t, decision.Reason, "squeeze release")
}

// TestVolatilityBreakoutUsesATRExits verifies the ATR based risk parameters
func TestVolatilityBreakoutUsesATRExits(t *testing.T) {
	vb := NewVolatilityBreakout()
	params := vb.RiskParams()

	assert.Equal(t, 1.5, params.ATRStopMultiple)
	assert.Equal(t, 3.0, params.ATRTakeMultiple)
	assert.Equal(t, 10, params.Leverage)
}

// TestInsufficientWindowErrors verifies every strategy rejects short windows
func TestInsufficientWindowErrors(t *testing.T) {
	data := candles([]float64{100})
	for _, s := range NewRegistry().All() {
		_, err := s.Signal(data, market.Analysis{})
		assert.Error(t, err, s.GetName())
	}
}
