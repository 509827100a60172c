package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// FundingArbitrage positions against the crowd to collect funding payments.
// A strongly positive rate means longs pay shorts, so it sells; a strongly
// negative rate means shorts pay longs, so it buys.
type FundingArbitrage struct {
	entryThreshold float64
	exitThreshold  float64
	risk           RiskParams
}

// NewFundingArbitrage creates the funding arbitrage strategy with default parameters
func NewFundingArbitrage() *FundingArbitrage {
	return &FundingArbitrage{
		entryThreshold: 0.005,
		exitThreshold:  0.001,
		risk: RiskParams{
			StopLossPct:     0.02,
			TakeProfitPct:   0.03,
			Leverage:        2,
			PositionSizePct: 0.05,
			Interval:        5 * time.Minute,
		},
	}
}

// Signal reads the funding rate supplied on the analysis snapshot
func (fa *FundingArbitrage) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < fa.RequiredBars() {
		return nil, fmt.Errorf("funding_arbitrage: need %d bars, got %d", fa.RequiredBars(), len(data))
	}

	last := data[len(data)-1]
	rate := analysis.FundingRate

	if math.Abs(rate) < fa.entryThreshold {
		return hold(fmt.Sprintf("funding rate %.4f%% below threshold", rate*100), last.Timestamp), nil
	}

	// Confidence grows with the rate's distance from the entry threshold
	confidence := 0.6 + math.Min((math.Abs(rate)-fa.entryThreshold)/fa.entryThreshold*0.2, 0.3)

	if rate > 0 {
		return &TradeDecision{
			Action:     ActionSell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("funding rate %.4f%% pays shorts (annualized %.1f%%)", rate*100, annualizedRate(rate)),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return &TradeDecision{
		Action:     ActionBuy,
		Confidence: confidence,
		Reason:     fmt.Sprintf("funding rate %.4f%% pays longs (annualized %.1f%%)", rate*100, annualizedRate(rate)),
		Timestamp:  last.Timestamp,
	}, nil
}

// ShouldExit reports whether the funding edge has decayed away
func (fa *FundingArbitrage) ShouldExit(fundingRate float64) bool {
	return math.Abs(fundingRate) < fa.exitThreshold
}

// annualizedRate converts an 8h funding rate into a yearly percentage
func annualizedRate(rate float64) float64 {
	return math.Abs(rate) * 3 * 365 * 100
}

func (fa *FundingArbitrage) GetName() string {
	return "funding_arbitrage"
}

func (fa *FundingArbitrage) RiskParams() RiskParams {
	return fa.risk
}

func (fa *FundingArbitrage) RequiredBars() int {
	return 2
}
