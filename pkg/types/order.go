package types

import "time"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// Opposite returns the side that closes a position opened on this side
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
)

// IsTerminal reports whether the order can no longer change state
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// Order is the exchange-agnostic view of an order
type Order struct {
	ID           string
	ClientID     string
	Symbol       string
	Side         OrderSide
	Quantity     float64
	Price        float64
	FilledQty    float64
	AvgFillPrice float64
	Status       OrderStatus
	ReduceOnly   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (o *Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}
