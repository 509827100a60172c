package bybit

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Kline is a single candlestick from the market kline endpoint
type Kline struct {
	StartTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Turnover  float64
}

// Ticker is the futures ticker snapshot for one symbol
type Ticker struct {
	Symbol          string
	LastPrice       float64
	MarkPrice       float64
	IndexPrice      float64
	FundingRate     float64
	NextFundingTime time.Time
	Volume24h       float64
	HighPrice24h    float64
	LowPrice24h     float64
}

// Balance is a single coin balance from the unified account wallet
type Balance struct {
	Coin             string
	WalletBalance    float64
	AvailableToTrade float64
	UnrealisedPnl    float64
}

// Order is an order as reported by the trading endpoints
type Order struct {
	OrderID     string
	OrderLinkID string
	Symbol      string
	Side        string
	OrderType   string
	Qty         float64
	Price       float64
	CumExecQty  float64
	AvgPrice    float64
	OrderStatus string
	ReduceOnly  bool
	CreatedTime time.Time
	UpdatedTime time.Time
}

// Instrument describes lot size constraints for a linear contract
type Instrument struct {
	Symbol      string
	MinOrderQty float64
	MaxOrderQty float64
	QtyStep     float64
	MaxLeverage float64
}

// decodeResult unwraps a ServerResponse, checks the retCode, and unmarshals
// the result payload into out.
func decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", response)
	}
	if err := apiError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseMillis converts a millisecond epoch string to time.Time
func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// formatQty renders a quantity snapped down to the instrument's step size
func formatQty(qty, step float64) string {
	if step <= 0 {
		return strconv.FormatFloat(qty, 'f', -1, 64)
	}
	steps := math.Floor(qty/step + 1e-9)
	snapped := steps * step

	decimals := 0
	for s := step; s < 1 && decimals < 8; s *= 10 {
		decimals++
	}
	return strconv.FormatFloat(snapped, 'f', decimals, 64)
}
