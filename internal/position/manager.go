package position

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
)

// maintenanceMarginRate approximates the exchange maintenance requirement
const maintenanceMarginRate = 0.005

// OpenRequest describes a new position before risk checks
type OpenRequest struct {
	Symbol          string
	Side            Side
	Strategy        string
	MarginMode      MarginMode
	EntryPrice      float64
	Quantity        float64
	Leverage        int
	StopLoss        float64
	TakeProfit      float64
	TrailingStopPct float64
	OrderID         string
}

// CloseEvent is emitted when a position finishes its lifecycle
type CloseEvent struct {
	Position    Position
	ExitPrice   float64
	RealizedPnL float64
	Reason      CloseReason
}

// Trigger is a tick-processing outcome demanding a close order
type Trigger struct {
	Symbol string
	Reason CloseReason
	Price  float64
}

// Manager owns all positions for the account and enforces risk limits.
// One active position per symbol; all mutation is serialized behind the lock.
type Manager struct {
	mu sync.RWMutex

	positions map[string]*Position
	limits    config.RiskLimits
	capital   float64

	dailyRealized float64
	dailyDate     time.Time

	// inFlight fences one outstanding order per symbol
	inFlight map[string]bool

	nowFunc func() time.Time
}

// NewManager creates a manager with starting capital and risk limits
func NewManager(capital float64, limits config.RiskLimits) *Manager {
	return &Manager{
		positions: make(map[string]*Position),
		limits:    limits,
		capital:   capital,
		inFlight:  make(map[string]bool),
		nowFunc:   time.Now,
	}
}

// SetLimits atomically swaps the risk limits. Stop and take levels already
// attached to open positions are left untouched.
func (m *Manager) SetLimits(limits config.RiskLimits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = limits
}

// SetCapital updates the account equity used for sizing checks
func (m *Manager) SetCapital(capital float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capital = capital
}

// Capital returns the tracked account equity
func (m *Manager) Capital() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capital
}

// Open validates the request against the risk limits and registers a
// PENDING_OPEN position. Any limit breach returns a risk violation and
// leaves the book unchanged.
func (m *Manager) Open(req OpenRequest) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDailyWindow()

	if existing, ok := m.positions[req.Symbol]; ok && existing.IsActive() {
		return nil, errors.NewRiskViolation("position", "open",
			fmt.Sprintf("active %s position already exists for %s", existing.Status, req.Symbol))
	}
	if m.inFlight[req.Symbol] {
		return nil, errors.NewRiskViolation("position", "open",
			fmt.Sprintf("order already in flight for %s", req.Symbol))
	}
	if req.Leverage < 1 || req.Leverage > m.limits.MaxLeverage {
		return nil, errors.NewRiskViolation("position", "open",
			fmt.Sprintf("leverage %dx outside allowed range 1-%dx", req.Leverage, m.limits.MaxLeverage))
	}
	if req.Quantity <= 0 || req.EntryPrice <= 0 {
		return nil, errors.NewValidationError("position", "open", "quantity and entry price must be positive")
	}

	notional := req.Quantity * req.EntryPrice
	maxNotional := m.limits.MaxPositionSizePct * m.capital
	if notional > maxNotional {
		return nil, errors.NewRiskViolation("position", "open",
			fmt.Sprintf("notional %.2f exceeds max %.2f (%.0f%% of capital)",
				notional, maxNotional, m.limits.MaxPositionSizePct*100))
	}
	if m.dailyRealized <= -m.limits.MaxDailyLossPct*m.capital {
		return nil, errors.NewRiskViolation("position", "open",
			fmt.Sprintf("daily loss %.2f breaches limit %.2f, new entries halted",
				m.dailyRealized, -m.limits.MaxDailyLossPct*m.capital))
	}

	pos := &Position{
		ID:              uuid.NewString(),
		Symbol:          req.Symbol,
		Side:            req.Side,
		Status:          StatusPendingOpen,
		Strategy:        req.Strategy,
		MarginMode:      req.MarginMode,
		EntryPrice:      req.EntryPrice,
		Quantity:        req.Quantity,
		Leverage:        req.Leverage,
		StopLoss:        req.StopLoss,
		TakeProfit:      req.TakeProfit,
		TrailingStopPct: req.TrailingStopPct,
		OpenOrderID:     req.OrderID,
		MarkPrice:       req.EntryPrice,
		OpenedAt:        m.nowFunc(),
	}
	pos.LiquidationPrice = m.liquidationPrice(pos)

	m.positions[req.Symbol] = pos
	m.inFlight[req.Symbol] = true
	return m.copyOf(pos), nil
}

// ConfirmOpen marks the pending position as filled at the given price
func (m *Manager) ConfirmOpen(symbol string, fillPrice float64) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok || pos.Status != StatusPendingOpen {
		return nil, errors.NewInvalidTransition("position", "confirm_open",
			fmt.Sprintf("no pending open position for %s", symbol))
	}

	if fillPrice > 0 && fillPrice != pos.EntryPrice {
		// Re-anchor exits to the actual fill
		ratio := fillPrice / pos.EntryPrice
		if pos.StopLoss > 0 {
			pos.StopLoss *= ratio
		}
		if pos.TakeProfit > 0 {
			pos.TakeProfit *= ratio
		}
		pos.EntryPrice = fillPrice
		pos.MarkPrice = fillPrice
		pos.LiquidationPrice = m.liquidationPrice(pos)
	}
	pos.Status = StatusOpen
	delete(m.inFlight, symbol)
	return m.copyOf(pos), nil
}

// AbortOpen drops a pending position whose order was rejected or cancelled
func (m *Manager) AbortOpen(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok || pos.Status != StatusPendingOpen {
		return errors.NewInvalidTransition("position", "abort_open",
			fmt.Sprintf("no pending open position for %s", symbol))
	}
	delete(m.positions, symbol)
	delete(m.inFlight, symbol)
	return nil
}

// ProcessTick updates mark price, unrealized PnL, and the trailing stop, and
// returns a close trigger when any exit level is breached. Only OPEN
// positions are evaluated; the first matching trigger wins and the position
// moves to PENDING_CLOSE in the same call.
func (m *Manager) ProcessTick(symbol string, price float64) (*Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok || !pos.IsActive() {
		return nil, nil
	}

	pos.MarkPrice = price
	pos.UnrealizedPnL = unrealizedPnL(pos, price)

	if pos.Status != StatusOpen {
		return nil, nil
	}

	m.ratchetTrailingStop(pos, price)

	if reason, hit := m.exitHit(pos, price); hit {
		pos.Status = StatusPendingClose
		pos.CloseReason = reason
		m.inFlight[symbol] = true
		return &Trigger{Symbol: symbol, Reason: reason, Price: price}, nil
	}
	return nil, nil
}

// ratchetTrailingStop tightens the trailing level toward price, never away
func (m *Manager) ratchetTrailingStop(pos *Position, price float64) {
	if pos.TrailingStopPct <= 0 {
		return
	}
	if pos.Side == SideLong {
		candidate := price * (1 - pos.TrailingStopPct)
		if candidate > pos.TrailingStop {
			pos.TrailingStop = candidate
		}
	} else {
		candidate := price * (1 + pos.TrailingStopPct)
		if pos.TrailingStop == 0 || candidate < pos.TrailingStop {
			pos.TrailingStop = candidate
		}
	}
}

func (m *Manager) exitHit(pos *Position, price float64) (CloseReason, bool) {
	if m.liquidationBufferBreached(pos, price) {
		return CloseReasonLiquidationRisk, true
	}
	if pos.Side == SideLong {
		if pos.StopLoss > 0 && price <= pos.StopLoss {
			return CloseReasonStopLoss, true
		}
		if pos.TrailingStop > 0 && price <= pos.TrailingStop {
			return CloseReasonTrailingStop, true
		}
		if pos.TakeProfit > 0 && price >= pos.TakeProfit {
			return CloseReasonTakeProfit, true
		}
	} else {
		if pos.StopLoss > 0 && price >= pos.StopLoss {
			return CloseReasonStopLoss, true
		}
		if pos.TrailingStop > 0 && price >= pos.TrailingStop {
			return CloseReasonTrailingStop, true
		}
		if pos.TakeProfit > 0 && price <= pos.TakeProfit {
			return CloseReasonTakeProfit, true
		}
	}
	return "", false
}

func (m *Manager) liquidationBufferBreached(pos *Position, price float64) bool {
	if pos.LiquidationPrice <= 0 || m.limits.LiquidationBufferPct <= 0 {
		return false
	}
	return m.liquidationDistance(pos, price) < m.limits.LiquidationBufferPct
}

// liquidationDistance is the fraction of price remaining before liquidation
func (m *Manager) liquidationDistance(pos *Position, price float64) float64 {
	if price <= 0 {
		return 0
	}
	var distance float64
	if pos.Side == SideLong {
		distance = (price - pos.LiquidationPrice) / price
	} else {
		distance = (pos.LiquidationPrice - price) / price
	}
	return math.Max(distance, 0)
}

// LiquidationDistance exposes the remaining distance for risk monitoring
func (m *Manager) LiquidationDistance(symbol string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.positions[symbol]
	if !ok || pos.Status != StatusOpen {
		return 0, false
	}
	return m.liquidationDistance(pos, pos.MarkPrice), true
}

// RequestClose moves an OPEN position to PENDING_CLOSE for the given reason
func (m *Manager) RequestClose(symbol string, reason CloseReason) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok || pos.Status == StatusClosed {
		return nil, errors.NewInvalidTransition("position", "request_close",
			fmt.Sprintf("no active position for %s", symbol))
	}
	if pos.Status == StatusPendingClose {
		return nil, errors.NewInvalidTransition("position", "request_close",
			fmt.Sprintf("close already pending for %s", symbol))
	}
	if pos.Status == StatusPendingOpen {
		return nil, errors.NewInvalidTransition("position", "request_close",
			fmt.Sprintf("position for %s has not opened yet", symbol))
	}

	pos.Status = StatusPendingClose
	pos.CloseReason = reason
	m.inFlight[symbol] = true
	return m.copyOf(pos), nil
}

// SetCloseOrder records the exchange order ID of the reduce-only close so
// a restart can pick the order back up instead of placing a duplicate.
func (m *Manager) SetCloseOrder(symbol, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok || pos.Status != StatusPendingClose {
		return errors.NewInvalidTransition("position", "set_close_order",
			fmt.Sprintf("no close pending for %s", symbol))
	}
	pos.CloseOrderID = orderID
	return nil
}

// ConfirmClose finalizes a PENDING_CLOSE position at the exit price,
// realizes the PnL into the daily window, and emits the close event.
// Confirming an already CLOSED position is an invalid transition.
func (m *Manager) ConfirmClose(symbol string, exitPrice float64) (*CloseEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return nil, errors.NewInvalidTransition("position", "confirm_close",
			fmt.Sprintf("no position for %s", symbol))
	}
	if pos.Status == StatusClosed {
		return nil, errors.NewInvalidTransition("position", "confirm_close",
			fmt.Sprintf("position %s already closed", pos.ID))
	}
	if pos.Status != StatusPendingClose {
		return nil, errors.NewInvalidTransition("position", "confirm_close",
			fmt.Sprintf("position %s is %s, close was never requested", pos.ID, pos.Status))
	}

	m.rollDailyWindow()

	realized := unrealizedPnL(pos, exitPrice)
	pos.RealizedPnL = realized
	pos.UnrealizedPnL = 0
	pos.MarkPrice = exitPrice
	pos.Status = StatusClosed
	pos.ClosedAt = m.nowFunc()
	m.dailyRealized += realized
	m.capital += realized
	delete(m.inFlight, symbol)

	return &CloseEvent{
		Position:    *m.copyOf(pos),
		ExitPrice:   exitPrice,
		RealizedPnL: realized,
		Reason:      pos.CloseReason,
	}, nil
}

// EmergencyCloseAll forces every active position to PENDING_CLOSE and
// returns them for order placement. PENDING_OPEN entries are dropped.
func (m *Manager) EmergencyCloseAll() []*Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Position
	for symbol, pos := range m.positions {
		switch pos.Status {
		case StatusPendingOpen:
			delete(m.positions, symbol)
			delete(m.inFlight, symbol)
		case StatusOpen:
			pos.Status = StatusPendingClose
			pos.CloseReason = CloseReasonEmergency
			m.inFlight[symbol] = true
			out = append(out, m.copyOf(pos))
		case StatusPendingClose:
			out = append(out, m.copyOf(pos))
		}
	}
	return out
}

// HasActivePosition reports whether any symbol has a non-CLOSED position.
// Used as the strategy switch gate.
func (m *Manager) HasActivePosition() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pos := range m.positions {
		if pos.IsActive() {
			return true
		}
	}
	return false
}

// Get returns a copy of the position for the symbol, or nil
func (m *Manager) Get(symbol string) *Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if pos, ok := m.positions[symbol]; ok {
		return m.copyOf(pos)
	}
	return nil
}

// Active returns copies of all non-CLOSED positions
func (m *Manager) Active() []*Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Position
	for _, pos := range m.positions {
		if pos.IsActive() {
			out = append(out, m.copyOf(pos))
		}
	}
	return out
}

// OrderInFlight reports whether an order is outstanding for the symbol
func (m *Manager) OrderInFlight(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inFlight[symbol]
}

// DailyRealized returns today's realized PnL
func (m *Manager) DailyRealized() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDailyWindow()
	return m.dailyRealized
}

// DailyDate returns the UTC day anchoring the daily loss window
func (m *Manager) DailyDate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dailyDate
}

// Restore reloads persisted positions and the daily PnL window
func (m *Manager) Restore(positions []*Position, dailyRealized float64, dailyDate time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions = make(map[string]*Position)
	m.inFlight = make(map[string]bool)
	for _, pos := range positions {
		copied := *pos
		m.positions[copied.Symbol] = &copied
		if copied.Status == StatusPendingOpen || copied.Status == StatusPendingClose {
			m.inFlight[copied.Symbol] = true
		}
	}
	m.dailyRealized = dailyRealized
	m.dailyDate = dailyDate
}

// rollDailyWindow resets the realized counter when the UTC day changes;
// caller holds the lock
func (m *Manager) rollDailyWindow() {
	today := m.nowFunc().UTC().Truncate(24 * time.Hour)
	if !m.dailyDate.Equal(today) {
		m.dailyDate = today
		m.dailyRealized = 0
	}
}

// liquidationPrice estimates where the exchange would liquidate.
// Isolated positions are backed by their own margin; cross positions by the
// whole account balance.
func (m *Manager) liquidationPrice(pos *Position) float64 {
	var marginRatio float64
	if pos.MarginMode == MarginCross {
		notional := pos.Notional()
		if notional == 0 {
			return 0
		}
		marginRatio = m.capital / notional
	} else {
		marginRatio = 1 / float64(pos.Leverage)
	}

	if pos.Side == SideLong {
		price := pos.EntryPrice * (1 - marginRatio + maintenanceMarginRate)
		return math.Max(price, 0)
	}
	return pos.EntryPrice * (1 + marginRatio - maintenanceMarginRate)
}

func unrealizedPnL(pos *Position, price float64) float64 {
	if pos.Side == SideLong {
		return (price - pos.EntryPrice) * pos.Quantity
	}
	return (pos.EntryPrice - price) * pos.Quantity
}

func (m *Manager) copyOf(pos *Position) *Position {
	copied := *pos
	return &copied
}
