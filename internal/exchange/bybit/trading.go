package bybit

import (
	"context"
	"fmt"
	"strconv"
)

// OrderParams holds the fields for a futures market order
type OrderParams struct {
	Category    string
	Symbol      string
	Side        string // "Buy" or "Sell"
	Qty         float64
	QtyStep     float64
	OrderLinkID string
	ReduceOnly  bool
	TakeProfit  float64
	StopLoss    float64
}

// PlaceMarketOrder submits a market order on the linear contract
func (c *Client) PlaceMarketOrder(ctx context.Context, p OrderParams) (*Order, error) {
	if p.Category == "" {
		p.Category = "linear"
	}
	if p.Symbol == "" || p.Side == "" {
		return nil, fmt.Errorf("place order: symbol and side are required")
	}
	if p.Qty <= 0 {
		return nil, fmt.Errorf("place order: quantity must be positive")
	}

	params := map[string]interface{}{
		"category":  p.Category,
		"symbol":    p.Symbol,
		"side":      p.Side,
		"orderType": "Market",
		"qty":       formatQty(p.Qty, p.QtyStep),
	}
	if p.OrderLinkID != "" {
		params["orderLinkId"] = p.OrderLinkID
	}
	if p.ReduceOnly {
		params["reduceOnly"] = true
	}
	if p.TakeProfit > 0 {
		params["takeProfit"] = strconv.FormatFloat(p.TakeProfit, 'f', -1, 64)
	}
	if p.StopLoss > 0 {
		params["stopLoss"] = strconv.FormatFloat(p.StopLoss, 'f', -1, 64)
	}

	var result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
		if err != nil {
			return err
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("place %s %s: %w", p.Side, p.Symbol, err)
	}

	return &Order{
		OrderID:     result.OrderID,
		OrderLinkID: result.OrderLinkID,
		Symbol:      p.Symbol,
		Side:        p.Side,
		OrderType:   "Market",
		Qty:         p.Qty,
		OrderStatus: "New",
		ReduceOnly:  p.ReduceOnly,
	}, nil
}

// GetOrder looks up an order by ID, checking open orders first and falling
// back to history so filled orders are still found.
func (c *Client) GetOrder(ctx context.Context, category, symbol, orderID string) (*Order, error) {
	if category == "" {
		category = "linear"
	}

	open, err := c.queryOrders(ctx, category, symbol, orderID, false)
	if err != nil {
		return nil, err
	}
	if order := findOrder(open, orderID); order != nil {
		return order, nil
	}

	history, err := c.queryOrders(ctx, category, symbol, orderID, true)
	if err != nil {
		return nil, err
	}
	if order := findOrder(history, orderID); order != nil {
		return order, nil
	}

	return nil, apiError(ErrCodeOrderNotFound, fmt.Sprintf("order %s not found", orderID))
}

// CancelOrder cancels an open order
func (c *Client) CancelOrder(ctx context.Context, category, symbol, orderID string) error {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
		if err != nil {
			return err
		}
		var result struct{}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// SetLeverage sets both buy and sell leverage for a symbol
func (c *Client) SetLeverage(ctx context.Context, category, symbol string, leverage int) error {
	if category == "" {
		category = "linear"
	}

	lev := strconv.Itoa(leverage)
	params := map[string]interface{}{
		"category":     category,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
		if err != nil {
			return err
		}
		var result struct{}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return fmt.Errorf("set leverage %s %dx: %w", symbol, leverage, err)
	}
	return nil
}

func (c *Client) queryOrders(ctx context.Context, category, symbol, orderID string, history bool) ([]Order, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	var result struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderLinkID string `json:"orderLinkId"`
			Symbol      string `json:"symbol"`
			Side        string `json:"side"`
			OrderType   string `json:"orderType"`
			Qty         string `json:"qty"`
			Price       string `json:"price"`
			CumExecQty  string `json:"cumExecQty"`
			AvgPrice    string `json:"avgPrice"`
			OrderStatus string `json:"orderStatus"`
			ReduceOnly  bool   `json:"reduceOnly"`
			CreatedTime string `json:"createdTime"`
			UpdatedTime string `json:"updatedTime"`
		} `json:"list"`
	}
	err := c.call(ctx, func() error {
		svc := c.httpClient.NewUtaBybitServiceWithParams(params)
		var resp interface{}
		var err error
		if history {
			resp, err = svc.GetOrderHistory(ctx)
		} else {
			resp, err = svc.GetOpenOrders(ctx)
		}
		if err != nil {
			return err
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("query orders %s: %w", symbol, err)
	}

	orders := make([]Order, 0, len(result.List))
	for _, row := range result.List {
		orders = append(orders, Order{
			OrderID:     row.OrderID,
			OrderLinkID: row.OrderLinkID,
			Symbol:      row.Symbol,
			Side:        row.Side,
			OrderType:   row.OrderType,
			Qty:         parseFloat(row.Qty),
			Price:       parseFloat(row.Price),
			CumExecQty:  parseFloat(row.CumExecQty),
			AvgPrice:    parseFloat(row.AvgPrice),
			OrderStatus: row.OrderStatus,
			ReduceOnly:  row.ReduceOnly,
			CreatedTime: parseMillis(row.CreatedTime),
			UpdatedTime: parseMillis(row.UpdatedTime),
		})
	}
	return orders, nil
}

// findOrder matches by exchange order ID or by the client order link ID,
// since a restarted session may only have the client ID on record.
func findOrder(orders []Order, orderID string) *Order {
	for i := range orders {
		if orders[i].OrderID == orderID || orders[i].OrderLinkID == orderID {
			return &orders[i]
		}
	}
	return nil
}
