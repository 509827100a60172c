package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/errors"
)

func testLimits() config.RiskLimits {
	return config.RiskLimits{
		MaxLeverage:          20,
		MaxPositionSizePct:   0.10,
		MaxDailyLossPct:      0.05,
		LiquidationBufferPct: 0.10,
	}
}

func longRequest() OpenRequest {
	return OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		Strategy:   "breakout",
		MarginMode: MarginIsolated,
		EntryPrice: 100.0,
		Quantity:   5.0,
		Leverage:   3,
		StopLoss:   98.0,
		TakeProfit: 105.0,
		OrderID:    "order-1",
	}
}

func openLong(t *testing.T, m *Manager) *Position {
	t.Helper()
	pos, err := m.Open(longRequest())
	require.NoError(t, err)
	_, err = m.ConfirmOpen("BTCUSDT", 100.0)
	require.NoError(t, err)
	return pos
}

// TestOpenLifecycle verifies PENDING_OPEN -> OPEN with the order fence
func TestOpenLifecycle(t *testing.T) {
	m := NewManager(10000, testLimits())

	pos, err := m.Open(longRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPendingOpen, pos.Status)
	assert.True(t, m.OrderInFlight("BTCUSDT"))
	assert.NotEmpty(t, pos.ID)
	assert.Greater(t, pos.LiquidationPrice, 0.0)
	assert.Less(t, pos.LiquidationPrice, 100.0)

	confirmed, err := m.ConfirmOpen("BTCUSDT", 100.0)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, confirmed.Status)
	assert.False(t, m.OrderInFlight("BTCUSDT"))
}

// TestOnePositionPerSymbol verifies the one active position invariant
func TestOnePositionPerSymbol(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)

	_, err := m.Open(longRequest())

	require.Error(t, err)
	assert.True(t, errors.IsRiskViolation(err))
}

// TestLeverageBoundary verifies leverage at the limit passes and above fails
func TestLeverageBoundary(t *testing.T) {
	m := NewManager(10000, testLimits())

	req := longRequest()
	req.Leverage = 20
	_, err := m.Open(req)
	assert.NoError(t, err)

	m2 := NewManager(10000, testLimits())
	req.Leverage = 21
	_, err = m2.Open(req)
	require.Error(t, err)
	assert.True(t, errors.IsRiskViolation(err))
}

// TestNotionalLimit verifies the position size cap against capital
func TestNotionalLimit(t *testing.T) {
	m := NewManager(10000, testLimits())

	req := longRequest()
	req.Quantity = 20.0 // notional 2000 > 10% of 10000
	_, err := m.Open(req)

	require.Error(t, err)
	assert.True(t, errors.IsRiskViolation(err))
}

// TestDailyLossHaltsNewEntries verifies entries stop after the daily loss cap
func TestDailyLossHaltsNewEntries(t *testing.T) {
	m := NewManager(10000, testLimits())

	// Two round trips losing 300 each push the day past the 5% cap
	for i := 0; i < 2; i++ {
		openLong(t, m)
		_, err := m.RequestClose("BTCUSDT", CloseReasonManual)
		require.NoError(t, err)
		event, err := m.ConfirmClose("BTCUSDT", 40.0)
		require.NoError(t, err)
		assert.InDelta(t, -300.0, event.RealizedPnL, 1e-9)
	}
	assert.InDelta(t, -600.0, m.DailyRealized(), 1e-9)

	_, err := m.Open(longRequest())
	require.Error(t, err)
	assert.True(t, errors.IsRiskViolation(err))
	assert.Contains(t, err.Error(), "daily loss")
}

// TestStopLossTrigger verifies a tick through the stop forces PENDING_CLOSE
func TestStopLossTrigger(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)

	trigger, err := m.ProcessTick("BTCUSDT", 97.5)

	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, CloseReasonStopLoss, trigger.Reason)
	assert.Equal(t, StatusPendingClose, m.Get("BTCUSDT").Status)
	assert.True(t, m.OrderInFlight("BTCUSDT"))
}

// TestTakeProfitTrigger verifies the upside exit
func TestTakeProfitTrigger(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)

	trigger, err := m.ProcessTick("BTCUSDT", 105.5)

	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, CloseReasonTakeProfit, trigger.Reason)
}

// TestTrailingStopMonotonic verifies the trail only ever tightens
func TestTrailingStopMonotonic(t *testing.T) {
	m := NewManager(10000, testLimits())
	req := longRequest()
	req.StopLoss = 0
	req.TakeProfit = 0
	req.TrailingStopPct = 0.03
	_, err := m.Open(req)
	require.NoError(t, err)
	_, err = m.ConfirmOpen("BTCUSDT", 100.0)
	require.NoError(t, err)

	// Rally ratchets the trail up
	_, err = m.ProcessTick("BTCUSDT", 110.0)
	require.NoError(t, err)
	trailAfterRally := m.Get("BTCUSDT").TrailingStop
	assert.InDelta(t, 110.0*0.97, trailAfterRally, 1e-9)

	// Pullback must not loosen it
	_, err = m.ProcessTick("BTCUSDT", 108.0)
	require.NoError(t, err)
	assert.Equal(t, trailAfterRally, m.Get("BTCUSDT").TrailingStop)

	// Dropping through the trail closes
	trigger, err := m.ProcessTick("BTCUSDT", 106.0)
	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, CloseReasonTrailingStop, trigger.Reason)
}

// TestLiquidationBufferTrigger verifies a breach forces PENDING_CLOSE in the
// same tick that detects it
func TestLiquidationBufferTrigger(t *testing.T) {
	m := NewManager(100000, testLimits())
	req := longRequest()
	req.StopLoss = 0
	req.TakeProfit = 0
	req.Leverage = 10
	req.Quantity = 50.0
	_, err := m.Open(req)
	require.NoError(t, err)
	_, err = m.ConfirmOpen("BTCUSDT", 100.0)
	require.NoError(t, err)

	// 10x isolated long from 100: liquidation near 90.5; buffer 10% of price
	trigger, err := m.ProcessTick("BTCUSDT", 99.0)

	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, CloseReasonLiquidationRisk, trigger.Reason)
	assert.Equal(t, StatusPendingClose, m.Get("BTCUSDT").Status)
}

// TestConfirmCloseRealizesPnL verifies close accounting updates capital and
// the daily window
func TestConfirmCloseRealizesPnL(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)

	_, err := m.ProcessTick("BTCUSDT", 105.5)
	require.NoError(t, err)

	event, err := m.ConfirmClose("BTCUSDT", 105.0)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, event.RealizedPnL, 1e-9)
	assert.Equal(t, CloseReasonTakeProfit, event.Reason)
	assert.InDelta(t, 10025.0, m.Capital(), 1e-9)
	assert.InDelta(t, 25.0, m.DailyRealized(), 1e-9)
	assert.False(t, m.HasActivePosition())
}

// TestCloseIsTerminal verifies closing twice is an invalid transition
func TestCloseIsTerminal(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)
	_, err := m.RequestClose("BTCUSDT", CloseReasonManual)
	require.NoError(t, err)
	_, err = m.ConfirmClose("BTCUSDT", 101.0)
	require.NoError(t, err)

	_, err = m.ConfirmClose("BTCUSDT", 101.0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))

	_, err = m.RequestClose("BTCUSDT", CloseReasonManual)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
}

// TestSetCloseOrderNeedsPendingClose verifies the close order ID is only
// recorded while a close is actually pending
func TestSetCloseOrderNeedsPendingClose(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)

	err := m.SetCloseOrder("BTCUSDT", "close-1")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))

	_, err = m.RequestClose("BTCUSDT", CloseReasonStopLoss)
	require.NoError(t, err)
	require.NoError(t, m.SetCloseOrder("BTCUSDT", "close-1"))
	assert.Equal(t, "close-1", m.Get("BTCUSDT").CloseOrderID)

	err = m.SetCloseOrder("ETHUSDT", "close-2")
	require.Error(t, err)
}

// TestConfirmCloseRequiresPendingClose verifies no close without a request
func TestConfirmCloseRequiresPendingClose(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)

	_, err := m.ConfirmClose("BTCUSDT", 101.0)

	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
}

// TestShortPositionPnL verifies short side PnL and exits mirror the long side
func TestShortPositionPnL(t *testing.T) {
	m := NewManager(10000, testLimits())
	req := longRequest()
	req.Side = SideShort
	req.StopLoss = 102.0
	req.TakeProfit = 95.0
	_, err := m.Open(req)
	require.NoError(t, err)
	_, err = m.ConfirmOpen("BTCUSDT", 100.0)
	require.NoError(t, err)

	_, err = m.ProcessTick("BTCUSDT", 97.0)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, m.Get("BTCUSDT").UnrealizedPnL, 1e-9)

	trigger, err := m.ProcessTick("BTCUSDT", 94.5)
	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, CloseReasonTakeProfit, trigger.Reason)
}

// TestEmergencyCloseAll verifies every active position is forced out
func TestEmergencyCloseAll(t *testing.T) {
	m := NewManager(100000, testLimits())
	openLong(t, m)
	ethReq := longRequest()
	ethReq.Symbol = "ETHUSDT"
	_, err := m.Open(ethReq)
	require.NoError(t, err)
	// ETH left PENDING_OPEN deliberately

	closing := m.EmergencyCloseAll()

	require.Len(t, closing, 1)
	assert.Equal(t, "BTCUSDT", closing[0].Symbol)
	assert.Equal(t, CloseReasonEmergency, closing[0].CloseReason)
	assert.Nil(t, m.Get("ETHUSDT"))
}

// TestLiquidationDistanceReporting verifies the risk monitor readout
func TestLiquidationDistanceReporting(t *testing.T) {
	m := NewManager(10000, testLimits())
	openLong(t, m)
	_, err := m.ProcessTick("BTCUSDT", 100.0)
	require.NoError(t, err)

	distance, ok := m.LiquidationDistance("BTCUSDT")

	require.True(t, ok)
	// 3x isolated long: liquidation around 67, roughly a third below price
	assert.InDelta(t, 0.328, distance, 0.01)
}

// TestCrossMarginUsesAccountCapital verifies cross mode liquidates further away
func TestCrossMarginUsesAccountCapital(t *testing.T) {
	m := NewManager(10000, testLimits())
	isolated := longRequest()
	isolatedPos, err := m.Open(isolated)
	require.NoError(t, err)

	m2 := NewManager(10000, testLimits())
	cross := longRequest()
	cross.MarginMode = MarginCross
	crossPos, err := m2.Open(cross)
	require.NoError(t, err)

	// Account capital dwarfs this notional, so cross liquidation clamps to zero
	assert.Less(t, crossPos.LiquidationPrice, isolatedPos.LiquidationPrice)
	assert.Equal(t, 0.0, crossPos.LiquidationPrice)
}

// TestRestoreRebuildsBook verifies persisted positions reload with fences
func TestRestoreRebuildsBook(t *testing.T) {
	m := NewManager(10000, testLimits())
	positions := []*Position{
		{ID: "a", Symbol: "BTCUSDT", Side: SideLong, Status: StatusOpen, EntryPrice: 100, Quantity: 1, Leverage: 2},
		{ID: "b", Symbol: "ETHUSDT", Side: SideShort, Status: StatusPendingClose, EntryPrice: 50, Quantity: 2, Leverage: 3},
	}

	m.Restore(positions, -100, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, m.HasActivePosition())
	assert.True(t, m.OrderInFlight("ETHUSDT"))
	assert.False(t, m.OrderInFlight("BTCUSDT"))
	assert.Equal(t, StatusOpen, m.Get("BTCUSDT").Status)
}
