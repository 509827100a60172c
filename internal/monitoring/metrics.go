package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_trader_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "side", "strategy"},
	)

	realizedPnL = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_trader_realized_pnl_total",
			Help: "Cumulative realized PnL in quote currency",
		},
		[]string{"symbol", "strategy"},
	)

	unrealizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_trader_unrealized_pnl",
			Help: "Unrealized PnL of the open position",
		},
		[]string{"symbol"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_trader_current_price",
			Help: "Last traded price of the symbol",
		},
		[]string{"symbol"},
	)

	fundingRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_trader_funding_rate",
			Help: "Current funding rate of the perpetual contract",
		},
		[]string{"symbol"},
	)

	marketCondition = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_trader_market_condition",
			Help: "Market condition flags (1 for the active condition)",
		},
		[]string{"symbol", "condition"},
	)

	// Strategy metrics
	strategyConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_trader_strategy_confidence",
			Help: "Recommendation confidence for the active strategy",
		},
		[]string{"strategy"},
	)

	strategySwitches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_trader_strategy_switches_total",
			Help: "Total number of strategy switches",
		},
		[]string{"from", "to", "manual"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_trader_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(realizedPnL)
	prometheus.MustRegister(unrealizedPnL)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(fundingRate)
	prometheus.MustRegister(marketCondition)
	prometheus.MustRegister(strategyConfidence)
	prometheus.MustRegister(strategySwitches)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records an executed trade
func RecordTrade(symbol, side, strategy string) {
	tradesTotal.WithLabelValues(symbol, side, strategy).Inc()
}

// RecordRealizedPnL accumulates realized PnL for a closed position
func RecordRealizedPnL(symbol, strategy string, pnl float64) {
	realizedPnL.WithLabelValues(symbol, strategy).Add(pnl)
}

// UpdateUnrealizedPnL updates the open position PnL gauge
func UpdateUnrealizedPnL(symbol string, pnl float64) {
	unrealizedPnL.WithLabelValues(symbol).Set(pnl)
}

// UpdatePrice updates the last price gauge
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateFundingRate updates the funding rate gauge
func UpdateFundingRate(symbol string, rate float64) {
	fundingRate.WithLabelValues(symbol).Set(rate)
}

// UpdateMarketCondition sets the active condition flag, clearing the others
func UpdateMarketCondition(symbol, active string, all []string) {
	for _, condition := range all {
		value := 0.0
		if condition == active {
			value = 1.0
		}
		marketCondition.WithLabelValues(symbol, condition).Set(value)
	}
}

// UpdateStrategyConfidence updates the confidence gauge
func UpdateStrategyConfidence(strategy string, confidence float64) {
	strategyConfidence.WithLabelValues(strategy).Set(confidence)
}

// RecordStrategySwitch counts a completed strategy switch
func RecordStrategySwitch(from, to string, manual bool) {
	label := "false"
	if manual {
		label = "true"
	}
	strategySwitches.WithLabelValues(from, to, label).Inc()
}

// RecordError counts an error by category
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
