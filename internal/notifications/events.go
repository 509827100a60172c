package notifications

import (
	"fmt"

	"github.com/autocoin/futures-trader/internal/position"
	"github.com/autocoin/futures-trader/internal/selector"
)

// FormatPositionOpened renders a position-open alert body
func FormatPositionOpened(pos *position.Position) string {
	return fmt.Sprintf("Opened %s %s\nStrategy: %s\nEntry: %.4f | Qty: %.6f | %dx\nSL: %.4f | TP: %.4f",
		pos.Side, pos.Symbol, pos.Strategy,
		pos.EntryPrice, pos.Quantity, pos.Leverage,
		pos.StopLoss, pos.TakeProfit)
}

// FormatPositionClosed renders a close alert with realized PnL
func FormatPositionClosed(event *position.CloseEvent) string {
	result := "profit"
	if event.RealizedPnL < 0 {
		result = "loss"
	}
	return fmt.Sprintf("Closed %s %s (%s)\nEntry: %.4f -> Exit: %.4f\nRealized %s: %.2f USDT",
		event.Position.Side, event.Position.Symbol, event.Reason,
		event.Position.EntryPrice, event.ExitPrice,
		result, event.RealizedPnL)
}

// FormatStrategySwitch renders a strategy change alert
func FormatStrategySwitch(decision *selector.Decision) string {
	kind := "Automatic"
	if decision.Manual {
		kind = fmt.Sprintf("Manual (%s)", decision.Operator)
	}
	return fmt.Sprintf("%s strategy switch\n%s -> %s\nReason: %s\nConfidence: %.2f",
		kind, decision.From, decision.To, decision.Reason, decision.Confidence)
}

// FormatEmergency renders an emergency stop alert
func FormatEmergency(reason string, closed int) string {
	return fmt.Sprintf("EMERGENCY STOP\nReason: %s\nPositions being closed: %d", reason, closed)
}
