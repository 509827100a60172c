package performance

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/autocoin/futures-trader/internal/market"
)

// maxPnLHistory bounds the per-record series used for Sharpe and drawdown
const maxPnLHistory = 500

// TradeResult is one closed trade reported to the evaluator
type TradeResult struct {
	ID        string
	Strategy  string
	Condition market.Condition
	Side      string
	PnL       float64
	EntryPrice float64
	ExitPrice  float64
	OpenedAt  time.Time
	ClosedAt  time.Time
}

// Record is the rolling performance state for one (strategy, condition) pair.
// Condition is empty for the overall per-strategy record.
type Record struct {
	Strategy  string           `json:"strategy"`
	Condition market.Condition `json:"condition,omitempty"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
	MaxDrawdown   float64 `json:"max_drawdown"`

	ConsecutiveWins      int `json:"consecutive_wins"`
	ConsecutiveLosses    int `json:"consecutive_losses"`
	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	// RecencyScore is an exponentially decayed win indicator in [0,1]
	RecencyScore float64 `json:"recency_score"`

	LastUpdated time.Time `json:"last_updated"`

	pnlHistory []float64
}

// WinRate returns winning trades over total trades
func (r *Record) WinRate() float64 {
	if r.TotalTrades == 0 {
		return 0
	}
	return float64(r.WinningTrades) / float64(r.TotalTrades)
}

// ProfitFactor returns gross profit over gross loss
func (r *Record) ProfitFactor() float64 {
	if r.GrossLoss == 0 {
		if r.GrossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return r.GrossProfit / r.GrossLoss
}

// AvgWin returns the mean winning trade PnL
func (r *Record) AvgWin() float64 {
	if r.WinningTrades == 0 {
		return 0
	}
	return r.GrossProfit / float64(r.WinningTrades)
}

// AvgLoss returns the mean losing trade PnL as a positive number
func (r *Record) AvgLoss() float64 {
	if r.LosingTrades == 0 {
		return 0
	}
	return r.GrossLoss / float64(r.LosingTrades)
}

// SharpeRatio returns the annualized mean over stddev of the trade PnL series
func (r *Record) SharpeRatio() float64 {
	if len(r.pnlHistory) < 2 {
		return 0
	}
	mean := 0.0
	for _, pnl := range r.pnlHistory {
		mean += pnl
	}
	mean /= float64(len(r.pnlHistory))

	variance := 0.0
	for _, pnl := range r.pnlHistory {
		diff := pnl - mean
		variance += diff * diff
	}
	variance /= float64(len(r.pnlHistory) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return (mean / stdDev) * math.Sqrt(252)
}

// Evaluator accumulates trade outcomes and scores strategies.
// Writes are serialized; reads take the shared lock.
type Evaluator struct {
	mu sync.RWMutex

	overall     map[string]*Record
	byCondition map[string]map[market.Condition]*Record

	recencyDecay float64
	minTrades    int
}

// NewEvaluator creates an evaluator. recencyDecay in (0,1) controls how fast
// old outcomes fade from the recency score; minTrades is the sample size
// below which Score returns the neutral value.
func NewEvaluator(recencyDecay float64, minTrades int) *Evaluator {
	return &Evaluator{
		overall:      make(map[string]*Record),
		byCondition:  make(map[string]map[market.Condition]*Record),
		recencyDecay: recencyDecay,
		minTrades:    minTrades,
	}
}

// RecordTrade folds one closed trade into the overall and per-condition records
func (e *Evaluator) RecordTrade(trade TradeResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updateRecord(e.overallRecord(trade.Strategy), trade)
	if trade.Condition != "" {
		e.updateRecord(e.conditionRecord(trade.Strategy, trade.Condition), trade)
	}
}

func (e *Evaluator) overallRecord(strategy string) *Record {
	rec, ok := e.overall[strategy]
	if !ok {
		rec = &Record{Strategy: strategy}
		e.overall[strategy] = rec
	}
	return rec
}

func (e *Evaluator) conditionRecord(strategy string, condition market.Condition) *Record {
	byCondition, ok := e.byCondition[strategy]
	if !ok {
		byCondition = make(map[market.Condition]*Record)
		e.byCondition[strategy] = byCondition
	}
	rec, ok := byCondition[condition]
	if !ok {
		rec = &Record{Strategy: strategy, Condition: condition}
		byCondition[condition] = rec
	}
	return rec
}

func (e *Evaluator) updateRecord(rec *Record, trade TradeResult) {
	rec.TotalTrades++
	rec.TotalPnL += trade.PnL

	win := 0.0
	if trade.PnL > 0 {
		win = 1.0
		rec.WinningTrades++
		rec.GrossProfit += trade.PnL
		rec.ConsecutiveWins++
		rec.ConsecutiveLosses = 0
		if rec.ConsecutiveWins > rec.MaxConsecutiveWins {
			rec.MaxConsecutiveWins = rec.ConsecutiveWins
		}
	} else {
		rec.LosingTrades++
		rec.GrossLoss += math.Abs(trade.PnL)
		rec.ConsecutiveLosses++
		rec.ConsecutiveWins = 0
		if rec.ConsecutiveLosses > rec.MaxConsecutiveLosses {
			rec.MaxConsecutiveLosses = rec.ConsecutiveLosses
		}
	}

	// Exponential decay keeps the score responsive to the latest outcomes
	rec.RecencyScore = e.recencyDecay*rec.RecencyScore + (1-e.recencyDecay)*win

	rec.pnlHistory = append(rec.pnlHistory, trade.PnL)
	if len(rec.pnlHistory) > maxPnLHistory {
		rec.pnlHistory = rec.pnlHistory[1:]
	}
	rec.MaxDrawdown = maxDrawdown(rec.pnlHistory)
	rec.LastUpdated = trade.ClosedAt
}

// maxDrawdown is the peak-to-trough drop of the cumulative PnL series
func maxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	drawdown := 0.0
	for _, pnl := range pnls {
		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > drawdown {
			drawdown = dd
		}
	}
	return drawdown
}

// Score returns a 0-100 composite for the strategy, optionally scoped to a
// market condition. Returns the neutral 50 when the sample is too small.
func (e *Evaluator) Score(strategy string, condition market.Condition) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec := e.lookupLocked(strategy, condition)
	if rec == nil || rec.TotalTrades < e.minTrades {
		return 50.0
	}
	return compositeScore(rec)
}

func compositeScore(rec *Record) float64 {
	score := rec.WinRate() * 25

	pf := rec.ProfitFactor()
	if math.IsInf(pf, 1) {
		pf = 2.0
	}
	score += math.Min(pf/2.0, 1.0) * 20

	sharpe := rec.SharpeRatio()
	score += math.Max(0, math.Min(sharpe/2.0, 1.0)) * 15

	score += (1 - math.Min(float64(rec.MaxConsecutiveLosses)/5.0, 1.0)) * 15
	score += (1 - math.Min(rec.MaxDrawdown/1000.0, 1.0)) * 15
	score += rec.RecencyScore * 10

	return score
}

// lookupLocked returns the live record; caller holds at least the read lock
func (e *Evaluator) lookupLocked(strategy string, condition market.Condition) *Record {
	if condition == "" {
		return e.overall[strategy]
	}
	if byCondition, ok := e.byCondition[strategy]; ok {
		return byCondition[condition]
	}
	return nil
}

// Snapshot returns a copy of the record, or nil if none exists
func (e *Evaluator) Snapshot(strategy string, condition market.Condition) *Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec := e.lookupLocked(strategy, condition)
	if rec == nil {
		return nil
	}
	copied := *rec
	copied.pnlHistory = nil
	return &copied
}

// SnapshotAll returns copies of every overall record, sorted by strategy name
func (e *Evaluator) SnapshotAll() []*Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Record, 0, len(e.overall))
	for _, rec := range e.overall {
		copied := *rec
		copied.pnlHistory = nil
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}

// ConsecutiveLosses returns the active losing streak for the strategy
func (e *Evaluator) ConsecutiveLosses(strategy string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if rec, ok := e.overall[strategy]; ok {
		return rec.ConsecutiveLosses
	}
	return 0
}

// TradeCount returns the number of trades recorded for the strategy
func (e *Evaluator) TradeCount(strategy string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if rec, ok := e.overall[strategy]; ok {
		return rec.TotalTrades
	}
	return 0
}

// Restore seeds the evaluator from persisted records, replacing any state
func (e *Evaluator) Restore(records []*Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.overall = make(map[string]*Record)
	e.byCondition = make(map[string]map[market.Condition]*Record)
	for _, rec := range records {
		copied := *rec
		if copied.Condition == "" {
			e.overall[copied.Strategy] = &copied
		} else {
			byCondition, ok := e.byCondition[copied.Strategy]
			if !ok {
				byCondition = make(map[market.Condition]*Record)
				e.byCondition[copied.Strategy] = byCondition
			}
			byCondition[copied.Condition] = &copied
		}
	}
}
