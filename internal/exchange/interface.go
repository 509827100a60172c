package exchange

import (
	"context"

	"github.com/autocoin/futures-trader/pkg/types"
)

// Exchange is the venue surface the trading engine depends on. All calls
// take a context so engine shutdown can abort in-flight requests.
type Exchange interface {
	GetName() string

	// Market data
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
	GetTicker(ctx context.Context, symbol string) (*types.Ticker, error)

	// Account
	GetBalance(ctx context.Context, asset string) (*types.Balance, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// Orders
	PlaceMarketOrder(ctx context.Context, req OrderRequest) (*types.Order, error)
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*types.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// OrderRequest describes a market order to be placed on the venue.
// ClientID is attached as the order link ID so a timed-out placement can be
// reconciled before any retry.
type OrderRequest struct {
	Symbol     string
	Side       types.OrderSide
	Quantity   float64
	ReduceOnly bool
	ClientID   string
	TakeProfit float64
	StopLoss   float64
}
