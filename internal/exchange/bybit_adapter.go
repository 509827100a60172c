package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
	"github.com/autocoin/futures-trader/internal/exchange/bybit"
	"github.com/autocoin/futures-trader/pkg/types"
)

// bybitExchange adapts the low-level Bybit client to the Exchange interface
type bybitExchange struct {
	client   *bybit.Client
	category string

	mu          sync.Mutex
	instruments map[string]*bybit.Instrument
}

// NewBybit creates a Bybit-backed exchange for the given contract category
func NewBybit(cfg config.ExchangeConfig, category string) Exchange {
	if category == "" {
		category = "linear"
	}
	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.Secret,
		Testnet:   cfg.Testnet,
		Demo:      cfg.Demo,
	})
	return &bybitExchange{
		client:      client,
		category:    category,
		instruments: make(map[string]*bybit.Instrument),
	}
}

func (b *bybitExchange) GetName() string {
	return "bybit"
}

func (b *bybitExchange) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	klines, err := b.client.GetKlines(ctx, b.category, symbol, interval, limit)
	if err != nil {
		return nil, b.mapError("get_klines", err)
	}

	out := make([]types.OHLCV, len(klines))
	for i, k := range klines {
		out[i] = types.OHLCV{
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			Timestamp: k.StartTime,
		}
	}
	return out, nil
}

func (b *bybitExchange) GetTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	ticker, err := b.client.GetTicker(ctx, b.category, symbol)
	if err != nil {
		return nil, b.mapError("get_ticker", err)
	}
	return &types.Ticker{
		Symbol:      ticker.Symbol,
		Price:       ticker.LastPrice,
		Volume:      ticker.Volume24h,
		FundingRate: ticker.FundingRate,
		Timestamp:   time.Now(),
	}, nil
}

func (b *bybitExchange) GetBalance(ctx context.Context, asset string) (*types.Balance, error) {
	balance, err := b.client.GetCoinBalance(ctx, asset)
	if err != nil {
		return nil, b.mapError("get_balance", err)
	}
	return &types.Balance{
		Asset:  balance.Coin,
		Free:   balance.AvailableToTrade,
		Locked: balance.WalletBalance - balance.AvailableToTrade,
	}, nil
}

func (b *bybitExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := b.client.SetLeverage(ctx, b.category, symbol, leverage); err != nil {
		return b.mapError("set_leverage", err)
	}
	return nil
}

func (b *bybitExchange) PlaceMarketOrder(ctx context.Context, req OrderRequest) (*types.Order, error) {
	instrument, err := b.instrument(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	order, err := b.client.PlaceMarketOrder(ctx, bybit.OrderParams{
		Category:    b.category,
		Symbol:      req.Symbol,
		Side:        string(req.Side),
		Qty:         req.Quantity,
		QtyStep:     instrument.QtyStep,
		OrderLinkID: req.ClientID,
		ReduceOnly:  req.ReduceOnly,
		TakeProfit:  req.TakeProfit,
		StopLoss:    req.StopLoss,
	})
	if err != nil {
		return nil, b.mapError("place_order", err)
	}
	return toOrder(order), nil
}

func (b *bybitExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (*types.Order, error) {
	order, err := b.client.GetOrder(ctx, b.category, symbol, orderID)
	if err != nil {
		return nil, b.mapError("get_order_status", err)
	}
	return toOrder(order), nil
}

func (b *bybitExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := b.client.CancelOrder(ctx, b.category, symbol, orderID); err != nil {
		return b.mapError("cancel_order", err)
	}
	return nil
}

// instrument returns the cached lot size constraints, fetching once
func (b *bybitExchange) instrument(ctx context.Context, symbol string) (*bybit.Instrument, error) {
	b.mu.Lock()
	cached, ok := b.instruments[symbol]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	instrument, err := b.client.GetInstrument(ctx, b.category, symbol)
	if err != nil {
		return nil, b.mapError("get_instrument", err)
	}

	b.mu.Lock()
	b.instruments[symbol] = instrument
	b.mu.Unlock()
	return instrument, nil
}

// mapError classifies venue errors into the shared taxonomy
func (b *bybitExchange) mapError(operation string, err error) error {
	switch {
	case bybit.IsAuthError(err):
		return errors.NewCredentialsError("exchange", operation, err.Error())
	case bybit.IsRetryable(err):
		return errors.WrapError(err, errors.ErrorCategoryExchange, "exchange", operation).WithRetryable(true)
	case bybit.IsOrderNotFound(err), bybit.IsInsufficientBalance(err):
		return errors.NewOrderError("exchange", operation, err)
	default:
		return errors.WrapError(err, errors.ErrorCategoryExchange, "exchange", operation)
	}
}

func toOrder(order *bybit.Order) *types.Order {
	return &types.Order{
		ID:           order.OrderID,
		ClientID:     order.OrderLinkID,
		Symbol:       order.Symbol,
		Side:         types.OrderSide(order.Side),
		Quantity:     order.Qty,
		Price:        order.Price,
		FilledQty:    order.CumExecQty,
		AvgFillPrice: order.AvgPrice,
		Status:       types.OrderStatus(order.OrderStatus),
		ReduceOnly:   order.ReduceOnly,
		CreatedAt:    order.CreatedTime,
		UpdatedAt:    order.UpdatedTime,
	}
}
