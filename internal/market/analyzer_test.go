package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
	"github.com/autocoin/futures-trader/pkg/types"
)

func defaultAnalyzerConfig() config.AnalyzerConfig {
	return config.Load().Analyzer
}

func flatCandles(n int, price float64) []types.OHLCV {
	data := make([]types.OHLCV, n)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range data {
		data[i] = types.OHLCV{
			Open: price, High: price * 1.002, Low: price * 0.998, Close: price,
			Volume: 1000, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return data
}

func trendingCandles(n int, start, step float64) []types.OHLCV {
	data := make([]types.OHLCV, n)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range data {
		price := start + float64(i)*step
		data[i] = types.OHLCV{
			Open: price - step/2, High: price + step/4, Low: price - step,
			Close: price, Volume: 1500, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return data
}

// TestAnalyzeInsufficientData verifies short windows are rejected with the right category
func TestAnalyzeInsufficientData(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())

	_, err := analyzer.Analyze(flatCandles(10, 100))

	require.Error(t, err)
	assert.True(t, errors.IsInsufficientData(err))
}

// TestAnalyzeDeterministic verifies the same window yields an identical result
func TestAnalyzeDeterministic(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())
	data := trendingCandles(60, 100, 1.5)

	first, err1 := analyzer.Analyze(data)
	second, err2 := analyzer.Analyze(data)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

// TestAnalyzeTrendingUp verifies a steady rally without channel breaks classifies as trending
func TestAnalyzeTrendingUp(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())
	// Steady climb, last bar pulled back inside the prior channel
	data := trendingCandles(80, 100, 1.0)
	data[len(data)-1].Close = data[len(data)-2].Close - 0.5
	data[len(data)-1].High = data[len(data)-2].Close

	analysis, err := analyzer.Analyze(data)

	require.NoError(t, err)
	assert.Equal(t, ConditionTrendingUp, analysis.Condition)
	assert.True(t, analysis.Condition.IsTrending())
	assert.GreaterOrEqual(t, analysis.Confidence, 0.5)
}

// TestAnalyzeBreakoutPrecedence verifies a channel break outranks the trend label
func TestAnalyzeBreakoutPrecedence(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())
	data := trendingCandles(80, 100, 1.0)
	// Push the last close decisively beyond the prior 20 bar high
	last := len(data) - 1
	data[last].Close = data[last-1].Close * 1.10
	data[last].High = data[last].Close * 1.001
	data[last].Volume = 5000

	analysis, err := analyzer.Analyze(data)

	require.NoError(t, err)
	assert.Equal(t, ConditionBreakout, analysis.Condition)
	assert.True(t, analysis.BreakoutUp)
	assert.Greater(t, analysis.Confidence, 0.5)
}

// TestAnalyzeConsolidating verifies a tight quiet range classifies as consolidating
func TestAnalyzeConsolidating(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())

	analysis, err := analyzer.Analyze(flatCandles(80, 100))

	require.NoError(t, err)
	assert.Equal(t, ConditionConsolidating, analysis.Condition)
	assert.Less(t, analysis.RangePercent, 0.05)
}

// TestAnalyzeVolatile verifies wide swings with no trend classify as volatile
func TestAnalyzeVolatile(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())
	data := make([]types.OHLCV, 80)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range data {
		price := 100.0
		if i%2 == 0 {
			price = 107.0
		}
		data[i] = types.OHLCV{
			Open: price, High: price + 4, Low: price - 4, Close: price,
			Volume: 1000, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}

	analysis, err := analyzer.Analyze(data)

	require.NoError(t, err)
	assert.Equal(t, ConditionVolatile, analysis.Condition)
	assert.Greater(t, analysis.ATRPercent, 2.5)
}

// TestPrecedenceConfigurable verifies a reordered precedence changes the outcome
func TestPrecedenceConfigurable(t *testing.T) {
	cfg := defaultAnalyzerConfig()
	cfg.Precedence = []string{"TRENDING", "BREAKOUT", "VOLATILE", "CONSOLIDATING", "RANGING"}
	analyzer := NewAnalyzer(cfg)

	data := trendingCandles(80, 100, 1.0)
	last := len(data) - 1
	data[last].Close = data[last-1].Close * 1.10
	data[last].High = data[last].Close * 1.001

	analysis, err := analyzer.Analyze(data)

	require.NoError(t, err)
	// Trending now outranks the simultaneous channel break
	assert.Equal(t, ConditionTrendingUp, analysis.Condition)
}

// TestConfidenceBounds verifies confidence stays in [0,1] across shapes
func TestConfidenceBounds(t *testing.T) {
	analyzer := NewAnalyzer(defaultAnalyzerConfig())
	windows := [][]types.OHLCV{
		flatCandles(80, 100),
		trendingCandles(80, 100, 2.0),
		trendingCandles(80, 1000, -3.0),
	}

	for _, data := range windows {
		analysis, err := analyzer.Analyze(data)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, analysis.Confidence, 0.0)
		assert.LessOrEqual(t, analysis.Confidence, 1.0)
	}
}
