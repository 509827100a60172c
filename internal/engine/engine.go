package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autocoin/futures-trader/internal/config"
	traderrors "github.com/autocoin/futures-trader/internal/errors"
	"github.com/autocoin/futures-trader/internal/exchange"
	"github.com/autocoin/futures-trader/internal/logger"
	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/internal/monitoring"
	"github.com/autocoin/futures-trader/internal/notifications"
	"github.com/autocoin/futures-trader/internal/performance"
	"github.com/autocoin/futures-trader/internal/position"
	"github.com/autocoin/futures-trader/internal/recommend"
	"github.com/autocoin/futures-trader/internal/selector"
	"github.com/autocoin/futures-trader/internal/state"
	"github.com/autocoin/futures-trader/internal/strategy"
	"github.com/autocoin/futures-trader/pkg/reporting"
	"github.com/autocoin/futures-trader/pkg/types"
)

const (
	// cycleTimeout bounds the exchange round trips inside one loop pass
	cycleTimeout = 30 * time.Second
	// fillTimeout is how long an entry order is polled before the monitor
	// loop takes over reconciliation
	fillTimeout = 10 * time.Second
	fillPoll    = 500 * time.Millisecond

	// recentErrorWindow is how many failures the engine keeps for the
	// escalation check; escalateAfter same-category failures inside that
	// window move the engine into ERROR
	recentErrorWindow = 20
	escalateAfter     = 10
)

// Engine runs the trading session for one symbol. It owns the periodic
// loops (strategy evaluation, position monitoring, funding refresh and
// reporting) and wires the analyzer, recommender, selector and position
// manager together.
type Engine struct {
	cfg    *config.Config
	symbol string

	exchange exchange.Exchange
	log      *logger.Logger
	notifier notifications.Notifier
	health   *monitoring.HealthChecker

	analyzer    *market.Analyzer
	registry    *strategy.Registry
	evaluator   *performance.Evaluator
	recommender *recommend.Recommender
	selector    *selector.Selector
	positions   *position.Manager
	store       *state.Store

	console *reporting.ConsoleReporter
	excel   *reporting.ExcelReporter

	// tradeMu serializes every pass that can touch the position book.
	// The fields below it are only read or written under this lock.
	tradeMu         sync.Mutex
	pendingOpens    map[string]string
	pendingCloses   map[string]string
	entryConditions map[string]market.Condition
	trades          []performance.TradeResult
	errStats        *traderrors.ErrorStats
	fundingRate     float64
	sessionStart    time.Time

	stateMu sync.RWMutex
	state   State
	lastErr error

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New assembles an engine from the validated configuration. The exchange
// is injected so the engine never knows which venue it is talking to.
func New(cfg *config.Config, ex exchange.Exchange, notifier notifications.Notifier) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notifications.Noop{}
	}

	log, err := logger.NewLogger(cfg.Trading.Symbol, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("create trade logger: %w", err)
	}

	registry := strategy.NewRegistry()
	if _, err := registry.Get(cfg.Trading.Strategy); err != nil {
		log.Close()
		return nil, traderrors.NewConfigurationError("engine", "init",
			fmt.Sprintf("unknown initial strategy %q", cfg.Trading.Strategy))
	}

	evaluator := performance.NewEvaluator(cfg.Performance.RecencyDecay, cfg.Performance.MinTrades)
	positions := position.NewManager(cfg.Trading.InitialBalance, cfg.Risk)

	return &Engine{
		cfg:             cfg,
		symbol:          cfg.Trading.Symbol,
		exchange:        ex,
		log:             log,
		notifier:        notifier,
		health:          monitoring.NewHealthChecker(),
		analyzer:        market.NewAnalyzer(cfg.Analyzer),
		registry:        registry,
		evaluator:       evaluator,
		recommender:     recommend.NewRecommender(registry, evaluator),
		selector:        selector.NewSelector(cfg.Selector, positions, cfg.Trading.Strategy),
		positions:       positions,
		store:           state.NewStore(cfg.StatePath, cfg.Trading.Symbol),
		console:         reporting.NewConsoleReporter(),
		excel:           reporting.NewExcelReporter(),
		pendingOpens:    make(map[string]string),
		pendingCloses:   make(map[string]string),
		entryConditions: make(map[string]market.Condition),
		errStats:        traderrors.NewErrorStats(recentErrorWindow),
		sessionStart:    time.Now().UTC(),
		state:           StateStopped,
	}, nil
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// LastError returns the error that moved the engine into ERROR, if any
func (e *Engine) LastError() error {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.lastErr
}

// Health exposes the checker for the HTTP health endpoint
func (e *Engine) Health() *monitoring.HealthChecker {
	return e.health
}

func (e *Engine) transition(to State) error {
	e.stateMu.Lock()
	if !canTransition(e.state, to) {
		from := e.state
		e.stateMu.Unlock()
		return traderrors.NewInvalidTransition("engine", "transition",
			fmt.Sprintf("cannot move from %s to %s", from, to))
	}
	e.state = to
	e.stateMu.Unlock()
	e.health.SetEngineState(string(to))
	return nil
}

// enterError moves the engine into ERROR. New entries stop; the monitor
// loop keeps running so open positions still get their exits.
func (e *Engine) enterError(err error) {
	e.stateMu.Lock()
	if e.state == StateError {
		e.stateMu.Unlock()
		return
	}
	e.state = StateError
	e.lastErr = err
	e.stateMu.Unlock()
	e.health.SetEngineState(string(StateError))
	e.health.RecordFailure(err)
	e.log.LogError("engine", err)
	e.notify("error", fmt.Sprintf("Engine entered ERROR state: %v", err))
}

// Acknowledge clears an ERROR state back to STOPPED so the operator can
// restart after fixing the cause
func (e *Engine) Acknowledge() error {
	e.stateMu.Lock()
	if e.state != StateError {
		from := e.state
		e.stateMu.Unlock()
		return traderrors.NewInvalidTransition("engine", "acknowledge",
			fmt.Sprintf("engine is %s, not ERROR", from))
	}
	e.state = StateStopped
	e.lastErr = nil
	e.stateMu.Unlock()
	e.health.SetEngineState(string(StateStopped))
	return nil
}

// Start restores persisted state, syncs the account and launches the
// periodic loops. A failed startup lands in ERROR.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.transition(StateStarting); err != nil {
		return err
	}
	if err := e.initialize(ctx); err != nil {
		e.enterError(err)
		return err
	}

	e.stopChan = make(chan struct{})
	if err := e.transition(StateRunning); err != nil {
		return err
	}

	e.wg.Add(4)
	go e.evaluateLoop()
	go e.runLoop(e.cfg.Engine.MonitorInterval, e.monitorPass)
	go e.runLoop(e.cfg.Engine.FundingInterval, e.fundingPass)
	go e.runLoop(e.cfg.Engine.ReportInterval, e.reportPass)

	e.log.Info("Engine started: strategy=%s interval=%s monitor=%s",
		e.selector.ActiveStrategy(), e.strategyInterval(), e.cfg.Engine.MonitorInterval)
	return nil
}

func (e *Engine) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	snapshot, err := e.store.Load()
	if err != nil {
		e.log.LogWarning("state", "discarding saved state: %v", err)
	} else if snapshot != nil {
		e.restore(snapshot)
		e.log.Info("Restored session state: strategy=%s positions=%d capital=%.2f",
			e.selector.ActiveStrategy(), len(snapshot.Positions), e.positions.Capital())
	}

	if bal, err := e.exchange.GetBalance(ctx, "USDT"); err != nil {
		var terr *traderrors.TradingError
		if errors.As(err, &terr) && terr.IsFatal() {
			return err
		}
		e.log.LogWarning("startup", "could not sync account balance, using %.2f: %v",
			e.positions.Capital(), err)
	} else {
		e.positions.SetCapital(bal.Free + bal.Locked)
	}

	if t, err := e.exchange.GetTicker(ctx, e.symbol); err == nil {
		e.fundingRate = t.FundingRate
		monitoring.UpdateFundingRate(e.symbol, t.FundingRate)
	}

	e.console.PrintStartup(e.buildReport(), e.cfg.Trading.Interval, e.cfg.Risk.MaxLeverage)
	fmt.Printf("Trading logs: %s\n\n", e.log.GetLogPath())
	return nil
}

func (e *Engine) restore(s *state.Snapshot) {
	if !s.SessionStart.IsZero() {
		e.sessionStart = s.SessionStart
	}
	if s.Capital > 0 {
		e.positions.SetCapital(s.Capital)
	}
	e.positions.Restore(s.Positions, s.DailyRealized, s.DailyDate)

	active := s.ActiveStrategy
	if _, err := e.registry.Get(active); err != nil {
		active = e.cfg.Trading.Strategy
	}
	history := make([]selector.Decision, 0, len(s.SwitchHistory))
	for _, d := range s.SwitchHistory {
		if d != nil {
			history = append(history, *d)
		}
	}
	e.selector.Restore(active, s.LastSwitch, s.TradesSinceSwitch, history)
	e.evaluator.Restore(s.Performance)

	// pending orders survive a restart so the monitor loop can reconcile
	// them instead of double-placing
	for _, pos := range s.Positions {
		if pos == nil {
			continue
		}
		switch pos.Status {
		case position.StatusPendingOpen:
			if pos.OpenOrderID != "" {
				e.pendingOpens[pos.Symbol] = pos.OpenOrderID
			}
		case position.StatusPendingClose:
			if pos.CloseOrderID != "" {
				e.pendingCloses[pos.Symbol] = pos.CloseOrderID
			}
		}
	}
}

// Pause stops new entries and strategy switches. Open positions keep
// being monitored and their exits still fire.
func (e *Engine) Pause() error {
	if err := e.transition(StatePaused); err != nil {
		return err
	}
	e.log.Info("Engine paused: no new entries until resume")
	return nil
}

// Resume re-enables trading after a pause
func (e *Engine) Resume() error {
	if err := e.transition(StateRunning); err != nil {
		return err
	}
	e.log.Info("Engine resumed")
	return nil
}

// Stop shuts down the loops, persists the session and prints the final
// report. Cleanup is bounded by the configured shutdown timeout.
func (e *Engine) Stop() error {
	if err := e.transition(StateStopping); err != nil {
		return err
	}

	func() {
		defer func() { recover() }()
		close(e.stopChan)
	}()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.cfg.Engine.ShutdownTimeout):
		e.log.Warning("Shutdown timed out after %s", e.cfg.Engine.ShutdownTimeout)
	}

	e.tradeMu.Lock()
	if err := e.persist(); err != nil {
		e.log.LogError("state", err)
	}
	report := e.buildReport()
	e.tradeMu.Unlock()

	e.console.PrintSession(report)
	if err := e.excel.WriteSessionXLSX(report, e.reportPath()); err != nil {
		e.log.LogWarning("report", "final xlsx export failed: %v", err)
	}

	if err := e.transition(StateStopped); err != nil {
		return err
	}
	e.log.Info("Engine stopped")
	return e.log.Close()
}

// EmergencyStop flags the selector, moves every position toward close and
// pauses the engine. The monitor loop finishes the close orders.
func (e *Engine) EmergencyStop(reason string) {
	e.selector.SetEmergencyStop(true)

	e.tradeMu.Lock()
	closing := e.positions.EmergencyCloseAll()
	for sym := range e.pendingOpens {
		if e.positions.Get(sym) == nil {
			delete(e.pendingOpens, sym)
			delete(e.entryConditions, sym)
		}
	}
	if err := e.persist(); err != nil {
		e.log.LogError("state", err)
	}
	e.tradeMu.Unlock()

	if err := e.transition(StatePaused); err != nil {
		e.log.LogWarning("engine", "emergency pause skipped: %v", err)
	}
	e.log.Warning("EMERGENCY STOP: %s (%d positions closing)", reason, len(closing))
	e.notify("error", notifications.FormatEmergency(reason, len(closing)))
}

// ReloadRiskLimits swaps the account risk limits for future entries. Exit
// levels already attached to open positions keep their original thresholds.
func (e *Engine) ReloadRiskLimits(limits config.RiskLimits) error {
	if limits.MaxLeverage < 1 || limits.MaxPositionSizePct <= 0 || limits.MaxDailyLossPct <= 0 {
		return traderrors.NewValidationError("engine", "reload",
			"risk limits must be positive")
	}
	e.tradeMu.Lock()
	e.cfg.Risk = limits
	e.positions.SetLimits(limits)
	e.tradeMu.Unlock()
	e.log.Info("Risk limits reloaded: leverage<=%dx size<=%.0f%% daily_loss<=%.0f%%",
		limits.MaxLeverage, limits.MaxPositionSizePct*100, limits.MaxDailyLossPct*100)
	return nil
}

// ManualSwitch forces the active strategy by operator request
func (e *Engine) ManualSwitch(to, operator, reason string) (*selector.Decision, error) {
	if _, err := e.registry.Get(to); err != nil {
		return nil, err
	}
	decision, err := e.selector.ManualSwitch(to, operator, reason)
	if err != nil {
		return nil, err
	}
	e.log.LogStrategySwitch(decision.From, decision.To, decision.Reason, decision.Confidence, true)
	monitoring.RecordStrategySwitch(decision.From, decision.To, true)
	e.notify("switch", notifications.FormatStrategySwitch(decision))

	e.tradeMu.Lock()
	saveErr := e.persist()
	e.tradeMu.Unlock()
	if saveErr != nil {
		e.log.LogError("state", saveErr)
	}
	return decision, nil
}

func (e *Engine) runLoop(interval time.Duration, pass func()) {
	defer e.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pass()
		case <-e.stopChan:
			return
		}
	}
}

// evaluateLoop paces strategy evaluation at the active strategy's own
// interval, re-arming the ticker after every pass so a switch takes
// effect on the next cycle.
func (e *Engine) evaluateLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.strategyInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.evaluatePass()
			ticker.Reset(e.strategyInterval())
		case <-e.stopChan:
			return
		}
	}
}

// strategyInterval is the active strategy's evaluation cadence, falling
// back to the engine default when the strategy does not declare one.
func (e *Engine) strategyInterval() time.Duration {
	if s, err := e.registry.Get(e.selector.ActiveStrategy()); err == nil {
		if iv := s.RiskParams().Interval; iv > 0 {
			return iv
		}
	}
	return e.cfg.Engine.StrategyInterval
}

// evaluatePass is one strategy cycle: classify the market, consider a
// strategy switch and ask the active strategy for an entry signal.
func (e *Engine) evaluatePass() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Recovered from panic in strategy pass: %v", r)
		}
	}()
	if e.State() != StateRunning {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	e.tradeMu.Lock()
	defer e.tradeMu.Unlock()

	active, err := e.registry.Get(e.selector.ActiveStrategy())
	if err != nil {
		e.log.LogError("strategy", err)
		return
	}
	bars := e.analyzer.RequiredBars()
	if n := active.RequiredBars(); n > bars {
		bars = n
	}

	klines, err := e.exchange.GetKlines(ctx, e.symbol, e.cfg.Trading.Interval, bars+1)
	if err != nil {
		e.recordFailure("market_data", err)
		return
	}

	analysis, err := e.analyzer.Analyze(klines)
	if err != nil {
		if traderrors.IsInsufficientData(err) {
			e.log.LogWarning("analyzer", "not enough history yet: %v", err)
		} else {
			e.recordFailure("analyzer", err)
		}
		return
	}
	analysis.FundingRate = e.fundingRate

	monitoring.UpdatePrice(e.symbol, analysis.Price)
	monitoring.UpdateMarketCondition(e.symbol, string(analysis.Condition), conditionNames())
	e.health.RecordCycle(analysis.Price)

	var posSide string
	var unrealized float64
	if pos := e.positions.Get(e.symbol); pos != nil && pos.IsActive() {
		posSide = string(pos.Side)
		unrealized = pos.UnrealizedPnL
	}
	e.log.LogMarketStatus(analysis.Price, string(analysis.Condition), analysis.Confidence,
		e.selector.ActiveStrategy(), posSide, unrealized)

	e.considerSwitch(analysis)

	// the switch may have changed the active strategy
	active, err = e.registry.Get(e.selector.ActiveStrategy())
	if err != nil {
		e.log.LogError("strategy", err)
		return
	}

	if e.positions.HasActivePosition() || e.positions.OrderInFlight(e.symbol) {
		return
	}
	if len(klines) < active.RequiredBars() {
		return
	}

	signal, err := active.Signal(klines, analysis)
	if err != nil {
		e.log.LogError("strategy", err)
		return
	}
	if signal == nil || signal.Action == strategy.ActionHold {
		return
	}
	e.openPosition(ctx, active, signal, analysis)
}

func (e *Engine) considerSwitch(analysis market.Analysis) {
	rec, err := e.recommender.Recommend(analysis)
	if err != nil {
		e.log.LogError("recommender", err)
		return
	}
	monitoring.UpdateStrategyConfidence(rec.Strategy, rec.Confidence)

	active := e.selector.ActiveStrategy()
	currentScore, err := e.recommender.ScoreFor(active, analysis)
	if err != nil {
		e.log.LogError("recommender", err)
		return
	}
	decision := e.selector.Propose(rec, currentScore, e.evaluator.ConsecutiveLosses(active))
	if decision == nil {
		return
	}
	if !decision.Approved {
		e.log.Info("Strategy switch to %s rejected: %s", decision.To, decision.Reason)
		return
	}

	e.log.LogStrategySwitch(decision.From, decision.To, decision.Reason, decision.Confidence, false)
	monitoring.RecordStrategySwitch(decision.From, decision.To, false)
	e.notify("switch", notifications.FormatStrategySwitch(decision))
	if err := e.persist(); err != nil {
		e.log.LogError("state", err)
	}
}

func (e *Engine) openPosition(ctx context.Context, strat strategy.Strategy, signal *strategy.TradeDecision, analysis market.Analysis) {
	params := strat.RiskParams()
	price := analysis.Price
	qty := e.positionSize(price, params)
	if qty <= 0 {
		return
	}

	side := position.SideLong
	if signal.Action == strategy.ActionSell {
		side = position.SideShort
	}
	orderSide := orderSideFor(side)
	stop, take := exitLevels(side, price, analysis.ATRPercent, params)

	if err := e.exchange.SetLeverage(ctx, e.symbol, params.Leverage); err != nil {
		e.log.LogWarning("leverage", "could not set %dx on %s: %v", params.Leverage, e.symbol, err)
	}

	clientID := uuid.NewString()
	if _, err := e.positions.Open(position.OpenRequest{
		Symbol:          e.symbol,
		Side:            side,
		Strategy:        strat.GetName(),
		MarginMode:      position.MarginIsolated,
		EntryPrice:      price,
		Quantity:        qty,
		Leverage:        params.Leverage,
		StopLoss:        stop,
		TakeProfit:      take,
		TrailingStopPct: params.TrailingStopPct,
		OrderID:         clientID,
	}); err != nil {
		if traderrors.IsRiskViolation(err) {
			e.log.LogWarning("risk", "entry rejected: %v", err)
		} else {
			e.log.LogError("position", err)
		}
		monitoring.RecordError(string(classify("position", err).Category))
		return
	}
	e.entryConditions[e.symbol] = analysis.Condition

	order, err := e.exchange.PlaceMarketOrder(ctx, exchange.OrderRequest{
		Symbol:     e.symbol,
		Side:       orderSide,
		Quantity:   qty,
		ClientID:   clientID,
		TakeProfit: take,
		StopLoss:   stop,
	})
	if err != nil {
		e.recordFailure("order", err)
		e.abortOpen()
		return
	}

	filled, err := e.waitForFill(ctx, order.ID)
	switch {
	case err == nil:
		e.confirmOpen(e.symbol, filled)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		// leave the order fence up; the monitor loop reconciles by ID
		e.pendingOpens[e.symbol] = order.ID
		e.log.LogWarning("order", "entry order %s not confirmed yet: %v", order.ID, err)
	default:
		e.log.LogWarning("order", "entry order %s failed: %v", order.ID, err)
		e.abortOpen()
	}
}

func (e *Engine) abortOpen() {
	delete(e.entryConditions, e.symbol)
	if err := e.positions.AbortOpen(e.symbol); err != nil {
		e.log.LogError("position", err)
	}
}

func (e *Engine) confirmOpen(symbol string, order *types.Order) {
	fill := order.AvgFillPrice
	if fill <= 0 {
		fill = order.Price
	}
	pos, err := e.positions.ConfirmOpen(symbol, fill)
	if err != nil {
		e.log.LogError("position", err)
		return
	}
	e.log.LogTradeExecution("OPEN "+string(pos.Side), order.ID, pos.Quantity, fill, pos.Leverage, pos.Strategy)
	monitoring.RecordTrade(symbol, string(pos.Side), pos.Strategy)
	e.notify("trade", notifications.FormatPositionOpened(pos))
	if err := e.persist(); err != nil {
		e.log.LogError("state", err)
	}
}

func (e *Engine) waitForFill(ctx context.Context, orderID string) (*types.Order, error) {
	deadline := time.NewTimer(fillTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(fillPoll)
	defer poll.Stop()

	for {
		order, err := e.exchange.GetOrderStatus(ctx, e.symbol, orderID)
		if err == nil {
			if order.IsFilled() {
				return order, nil
			}
			if order.Status.IsTerminal() {
				return nil, fmt.Errorf("order %s ended %s without filling", orderID, order.Status)
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		select {
		case <-poll.C:
		case <-deadline.C:
			return nil, context.DeadlineExceeded
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// monitorPass runs every few seconds: reconcile in-flight orders, feed the
// latest price into the position manager and settle any pending close.
// It keeps running while paused or errored so exits are never abandoned.
func (e *Engine) monitorPass() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Recovered from panic in monitor pass: %v", r)
		}
	}()
	if s := e.State(); s != StateRunning && s != StatePaused && s != StateError {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	e.tradeMu.Lock()
	defer e.tradeMu.Unlock()

	e.reconcilePendingOpens(ctx)

	ticker, err := e.exchange.GetTicker(ctx, e.symbol)
	if err != nil {
		e.recordFailure("ticker", err)
		return
	}
	price := ticker.Price
	monitoring.UpdatePrice(e.symbol, price)
	e.health.RecordCycle(price)

	trigger, err := e.positions.ProcessTick(e.symbol, price)
	if err != nil {
		e.log.LogError("position", err)
		return
	}
	if pos := e.positions.Get(e.symbol); pos != nil && pos.IsActive() {
		monitoring.UpdateUnrealizedPnL(e.symbol, pos.UnrealizedPnL)
	}

	if trigger != nil {
		e.log.Info("Exit trigger on %s: %s at %.4f", trigger.Symbol, trigger.Reason, trigger.Price)
	} else {
		e.checkFundingExit()
	}

	e.settleCloses(ctx)
}

func (e *Engine) reconcilePendingOpens(ctx context.Context) {
	for symbol, orderID := range e.pendingOpens {
		order, err := e.exchange.GetOrderStatus(ctx, symbol, orderID)
		if err != nil {
			continue
		}
		switch {
		case order.IsFilled():
			delete(e.pendingOpens, symbol)
			e.confirmOpen(symbol, order)
		case order.Status.IsTerminal():
			delete(e.pendingOpens, symbol)
			delete(e.entryConditions, symbol)
			if err := e.positions.AbortOpen(symbol); err != nil {
				e.log.LogError("position", err)
			}
			e.log.LogWarning("order", "entry order %s ended %s, position aborted", orderID, order.Status)
		}
	}
}

// checkFundingExit closes a funding arbitrage position once the funding
// edge has decayed below the strategy's exit threshold
func (e *Engine) checkFundingExit() {
	pos := e.positions.Get(e.symbol)
	if pos == nil || pos.Status != position.StatusOpen {
		return
	}
	s, err := e.registry.Get(pos.Strategy)
	if err != nil {
		return
	}
	fa, ok := s.(*strategy.FundingArbitrage)
	if !ok || !fa.ShouldExit(e.fundingRate) {
		return
	}
	if _, err := e.positions.RequestClose(e.symbol, position.CloseReasonSignal); err != nil {
		e.log.LogError("position", err)
		return
	}
	e.log.Info("Funding edge gone (%.5f), closing %s position", e.fundingRate, pos.Side)
}

// settleCloses drives a PENDING_CLOSE position to CLOSED: place the
// reduce-only order if none is out yet, otherwise poll its fill
func (e *Engine) settleCloses(ctx context.Context) {
	pos := e.positions.Get(e.symbol)
	if pos == nil || pos.Status != position.StatusPendingClose {
		return
	}

	orderID, placed := e.pendingCloses[e.symbol]
	if !placed {
		order, err := e.exchange.PlaceMarketOrder(ctx, exchange.OrderRequest{
			Symbol:     e.symbol,
			Side:       orderSideFor(pos.Side).Opposite(),
			Quantity:   pos.Quantity,
			ReduceOnly: true,
			ClientID:   uuid.NewString(),
		})
		if err != nil {
			// retried on the next monitor pass
			e.recordFailure("order", err)
			return
		}
		orderID = order.ID
		e.pendingCloses[e.symbol] = orderID
		if err := e.positions.SetCloseOrder(e.symbol, orderID); err != nil {
			e.log.LogError("position", err)
		}
		if err := e.persist(); err != nil {
			e.log.LogError("state", err)
		}
	}

	order, err := e.exchange.GetOrderStatus(ctx, e.symbol, orderID)
	if err != nil {
		e.log.LogWarning("order", "close order %s not confirmed yet: %v", orderID, err)
		return
	}
	if order.Status.IsTerminal() && !order.IsFilled() {
		e.log.LogWarning("order", "close order %s ended %s, will retry", orderID, order.Status)
		delete(e.pendingCloses, e.symbol)
		return
	}
	if !order.IsFilled() {
		return
	}

	fill := order.AvgFillPrice
	if fill <= 0 {
		fill = order.Price
	}
	event, err := e.positions.ConfirmClose(e.symbol, fill)
	if err != nil {
		e.log.LogError("position", err)
		return
	}
	delete(e.pendingCloses, e.symbol)
	e.onClosed(event)
}

func (e *Engine) onClosed(event *position.CloseEvent) {
	pos := event.Position
	condition := e.entryConditions[pos.Symbol]
	delete(e.entryConditions, pos.Symbol)

	result := performance.TradeResult{
		ID:         uuid.NewString(),
		Strategy:   pos.Strategy,
		Condition:  condition,
		Side:       string(pos.Side),
		PnL:        event.RealizedPnL,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  event.ExitPrice,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   pos.ClosedAt,
	}
	e.evaluator.RecordTrade(result)
	e.selector.RecordTrade()
	e.trades = append(e.trades, result)

	e.log.LogPositionClosed(string(pos.Side), pos.EntryPrice, event.ExitPrice, event.RealizedPnL, string(event.Reason))
	monitoring.RecordRealizedPnL(pos.Symbol, pos.Strategy, event.RealizedPnL)
	monitoring.UpdateUnrealizedPnL(pos.Symbol, 0)
	e.notify("trade", notifications.FormatPositionClosed(event))
	if err := e.persist(); err != nil {
		e.log.LogError("state", err)
	}
}

func (e *Engine) fundingPass() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Recovered from panic in funding pass: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	ticker, err := e.exchange.GetTicker(ctx, e.symbol)
	if err != nil {
		e.log.LogWarning("funding", "rate refresh failed: %v", err)
		return
	}

	e.tradeMu.Lock()
	e.fundingRate = ticker.FundingRate
	e.tradeMu.Unlock()
	monitoring.UpdateFundingRate(e.symbol, ticker.FundingRate)
}

func (e *Engine) reportPass() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Recovered from panic in report pass: %v", r)
		}
	}()

	e.tradeMu.Lock()
	report := e.buildReport()
	e.tradeMu.Unlock()

	if err := e.excel.WriteSessionXLSX(report, e.reportPath()); err != nil {
		e.log.LogWarning("report", "xlsx export failed: %v", err)
	}
	e.log.Status("capital=%.2f daily_pnl=%.2f trades=%d strategy=%s",
		report.Capital, report.DailyRealized, len(report.Trades), report.ActiveStrategy)
}

// buildReport snapshots the session. Callers hold tradeMu or run before
// the loops start / after they stop.
func (e *Engine) buildReport() *reporting.SessionReport {
	history := e.selector.History()
	switches := make([]*selector.Decision, 0, len(history))
	for i := range history {
		switches = append(switches, &history[i])
	}
	trades := make([]performance.TradeResult, len(e.trades))
	copy(trades, e.trades)

	return &reporting.SessionReport{
		Symbol:          e.symbol,
		Exchange:        e.exchange.GetName(),
		Environment:     e.cfg.Environment,
		SessionStart:    e.sessionStart,
		GeneratedAt:     time.Now().UTC(),
		ActiveStrategy:  e.selector.ActiveStrategy(),
		InitialBalance:  e.cfg.Trading.InitialBalance,
		Capital:         e.positions.Capital(),
		DailyRealized:   e.positions.DailyRealized(),
		StrategyRecords: e.evaluator.SnapshotAll(),
		Trades:          trades,
		Switches:        switches,
	}
}

// persist saves the resumable session state. Caller holds tradeMu.
func (e *Engine) persist() error {
	history := e.selector.History()
	switches := make([]*selector.Decision, 0, len(history))
	for i := range history {
		switches = append(switches, &history[i])
	}
	return e.store.Save(&state.Snapshot{
		SessionStart:      e.sessionStart,
		ActiveStrategy:    e.selector.ActiveStrategy(),
		LastSwitch:        e.selector.LastSwitch(),
		TradesSinceSwitch: e.selector.TradesSinceSwitch(),
		SwitchHistory:     switches,
		Positions:         e.positions.Active(),
		Capital:           e.positions.Capital(),
		DailyRealized:     e.positions.DailyRealized(),
		DailyDate:         e.positions.DailyDate(),
		Performance:       e.evaluator.SnapshotAll(),
	})
}

func (e *Engine) reportPath() string {
	return filepath.Join(e.cfg.ReportDir, fmt.Sprintf("session_%s.xlsx", e.symbol))
}

// positionSize converts the strategy sizing into base quantity, capping
// notional exposure at the account risk limit
func (e *Engine) positionSize(price float64, params strategy.RiskParams) float64 {
	if price <= 0 {
		return 0
	}
	capital := e.positions.Capital()
	notional := capital * params.PositionSizePct * float64(params.Leverage)
	if maxNotional := capital * e.cfg.Risk.MaxPositionSizePct; notional > maxNotional {
		notional = maxNotional
	}
	return notional / price
}

// exitLevels derives stop and take prices from the strategy risk params.
// ATR multiples take precedence over fixed percentages when configured.
func exitLevels(side position.Side, entry, atrPercent float64, params strategy.RiskParams) (stop, take float64) {
	stopDist := entry * params.StopLossPct
	takeDist := entry * params.TakeProfitPct
	if atr := entry * atrPercent / 100; atr > 0 {
		if params.ATRStopMultiple > 0 {
			stopDist = params.ATRStopMultiple * atr
		}
		if params.ATRTakeMultiple > 0 {
			takeDist = params.ATRTakeMultiple * atr
		}
	}
	if side == position.SideLong {
		return entry - stopDist, entry + takeDist
	}
	return entry + stopDist, entry - takeDist
}

// recordFailure classifies a pass failure, tracks it and escalates to
// ERROR when the error is fatal or one category keeps failing. Callers
// hold tradeMu.
func (e *Engine) recordFailure(component string, err error) {
	terr := classify(component, err)
	e.errStats.RecordError(terr)
	e.health.RecordFailure(err)
	monitoring.RecordError(string(terr.Category))
	e.log.LogError(component, err)

	if terr.GetRecoveryAction() == traderrors.RecoveryActionStop {
		e.enterError(err)
		return
	}
	if e.errStats.HasRecentErrors(terr.Category, escalateAfter) {
		e.enterError(fmt.Errorf("%s keeps failing (%d recent %s errors): %w",
			component, escalateAfter, terr.Category, err))
	}
}

// orderSideFor maps a position side to the order side that grows it;
// closing uses the Opposite.
func orderSideFor(side position.Side) types.OrderSide {
	if side == position.SideShort {
		return types.OrderSideSell
	}
	return types.OrderSideBuy
}

func classify(component string, err error) *traderrors.TradingError {
	var terr *traderrors.TradingError
	if errors.As(err, &terr) {
		return terr
	}
	return traderrors.CategorizeError(err, component, "pass")
}

// notify delivers an alert without ever blocking a trading pass; the
// Telegram round trip runs outside the engine locks.
func (e *Engine) notify(level, message string) {
	go func() {
		if err := e.notifier.SendAlert(level, message); err != nil {
			e.log.LogWarning("notify", "alert delivery failed: %v", err)
		}
	}()
}

func conditionNames() []string {
	conditions := market.Conditions()
	names := make([]string, len(conditions))
	for i, c := range conditions {
		names[i] = string(c)
	}
	return names
}
