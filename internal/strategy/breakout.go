package strategy

import (
	"fmt"
	"time"

	"github.com/autocoin/futures-trader/internal/indicators"
	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/pkg/types"
)

// Breakout trades closes beyond the prior rolling high or low.
// Entries use a longer lookback than exits so winners get room to run.
type Breakout struct {
	buyLookback  int
	sellLookback int
	buyChannel   *indicators.DonchianChannels
	sellChannel  *indicators.DonchianChannels
	risk         RiskParams
}

// NewBreakout creates the breakout strategy with default parameters
func NewBreakout() *Breakout {
	return &Breakout{
		buyLookback:  20,
		sellLookback: 10,
		buyChannel:   indicators.NewDonchianChannels(20),
		sellChannel:  indicators.NewDonchianChannels(10),
		risk: RiskParams{
			StopLossPct:     0.02,
			TakeProfitPct:   0.05,
			Leverage:        3,
			PositionSizePct: 0.05,
			Interval:        time.Minute,
		},
	}
}

// Signal fires BUY on a close above the prior high channel and SELL on a
// close below the prior low channel. The prior close must have been inside
// the channel so only the crossing bar triggers.
func (b *Breakout) Signal(data []types.OHLCV, analysis market.Analysis) (*TradeDecision, error) {
	if len(data) < b.RequiredBars() {
		return nil, fmt.Errorf("breakout: need %d bars, got %d", b.RequiredBars(), len(data))
	}

	last := data[len(data)-1]
	prevClose := data[len(data)-2].Close

	buyBand, err := b.buyChannel.Calculate(data)
	if err != nil {
		return nil, err
	}
	sellBand, err := b.sellChannel.Calculate(data)
	if err != nil {
		return nil, err
	}

	if last.Close > buyBand.Upper && prevClose <= buyBand.Upper {
		confidence := 0.6
		if analysis.VolumeRatio > 1.5 {
			confidence += 0.2
		}
		return &TradeDecision{
			Action:     ActionBuy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("close %.2f broke above %d-bar high %.2f", last.Close, b.buyLookback, buyBand.Upper),
			Timestamp:  last.Timestamp,
		}, nil
	}

	if last.Close < sellBand.Lower && prevClose >= sellBand.Lower {
		confidence := 0.6
		if analysis.VolumeRatio > 1.5 {
			confidence += 0.2
		}
		return &TradeDecision{
			Action:     ActionSell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("close %.2f broke below %d-bar low %.2f", last.Close, b.sellLookback, sellBand.Lower),
			Timestamp:  last.Timestamp,
		}, nil
	}

	return hold("price inside channel", last.Timestamp), nil
}

func (b *Breakout) GetName() string {
	return "breakout"
}

func (b *Breakout) RiskParams() RiskParams {
	return b.risk
}

func (b *Breakout) RequiredBars() int {
	return b.buyLookback + 2
}
