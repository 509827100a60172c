package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RiskLimits bounds what the position manager will accept. Values are
// read-only during trading; a reload swaps the whole struct and never
// touches thresholds already attached to open positions.
type RiskLimits struct {
	MaxLeverage          int
	MaxPositionSizePct   float64
	MaxDailyLossPct      float64
	LiquidationBufferPct float64
}

// AnalyzerConfig holds the market classification thresholds
type AnalyzerConfig struct {
	ADXTrendThreshold   float64
	ADXStrongThreshold  float64
	ATRHighVolatility   float64
	ATRLowVolatility    float64
	BreakoutLookback    int
	ConsolidationRange  float64
	VolumeSpikeRatio    float64
	// Precedence is the tie-break order when several conditions match
	Precedence []string
}

// SelectorConfig holds the strategy switch guardrails
type SelectorConfig struct {
	Cooldown            time.Duration
	MinTradesPerPeriod  int
	ConfidenceThreshold float64
	MinImprovement      float64
	MaxConsecutiveLosses int
	HistoryLimit        int
}

// EngineConfig holds the periodic task intervals
type EngineConfig struct {
	StrategyInterval    time.Duration
	MonitorInterval     time.Duration
	FundingInterval     time.Duration
	ReportInterval      time.Duration
	ShutdownTimeout     time.Duration
}

// ExchangeConfig selects the exchange backend and its credentials
type ExchangeConfig struct {
	Name    string
	APIKey  string
	Secret  string
	Demo    bool
	Testnet bool
}

type Config struct {
	Environment string
	LogLevel    string
	LogDir      string
	StatePath   string
	ReportDir   string

	Exchange ExchangeConfig

	Trading struct {
		Symbol         string
		Category       string
		Interval       string
		InitialBalance float64
		Strategy       string
	}

	Risk     RiskLimits
	Analyzer AnalyzerConfig
	Selector SelectorConfig
	Engine   EngineConfig

	Performance struct {
		RecencyDecay float64
		MinTrades    int
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		StatePath:   getEnv("STATE_PATH", "data/state.json"),
		ReportDir:   getEnv("REPORT_DIR", "reports"),
	}

	cfg.Exchange.Name = getEnv("EXCHANGE_NAME", "bybit")
	cfg.Exchange.APIKey = getEnv("EXCHANGE_API_KEY", "")
	cfg.Exchange.Secret = getEnv("EXCHANGE_SECRET", "")
	cfg.Exchange.Demo = getEnvBool("EXCHANGE_DEMO", false)
	cfg.Exchange.Testnet = getEnvBool("EXCHANGE_TESTNET", true)

	cfg.Trading.Symbol = getEnv("TRADING_SYMBOL", "BTCUSDT")
	cfg.Trading.Category = getEnv("TRADING_CATEGORY", "linear")
	cfg.Trading.Interval = getEnv("TRADING_INTERVAL", "5")
	cfg.Trading.InitialBalance = getEnvFloat("INITIAL_BALANCE", 10000.0)
	cfg.Trading.Strategy = getEnv("TRADING_STRATEGY", "trend_following")

	cfg.Risk = RiskLimits{
		MaxLeverage:          getEnvInt("MAX_LEVERAGE", 20),
		MaxPositionSizePct:   getEnvFloat("MAX_POSITION_SIZE_PCT", 0.10),
		MaxDailyLossPct:      getEnvFloat("MAX_DAILY_LOSS_PCT", 0.05),
		LiquidationBufferPct: getEnvFloat("LIQUIDATION_BUFFER_PCT", 0.10),
	}

	cfg.Analyzer = AnalyzerConfig{
		ADXTrendThreshold:  getEnvFloat("ADX_TREND_THRESHOLD", 25.0),
		ADXStrongThreshold: getEnvFloat("ADX_STRONG_THRESHOLD", 50.0),
		ATRHighVolatility:  getEnvFloat("ATR_HIGH_VOLATILITY", 2.5),
		ATRLowVolatility:   getEnvFloat("ATR_LOW_VOLATILITY", 0.5),
		BreakoutLookback:   getEnvInt("BREAKOUT_LOOKBACK", 20),
		ConsolidationRange: getEnvFloat("CONSOLIDATION_RANGE", 0.05),
		VolumeSpikeRatio:   getEnvFloat("VOLUME_SPIKE_RATIO", 1.5),
		Precedence:         getEnvList("CONDITION_PRECEDENCE", []string{"BREAKOUT", "TRENDING", "VOLATILE", "CONSOLIDATING", "RANGING"}),
	}

	cfg.Selector = SelectorConfig{
		Cooldown:             getEnvDuration("SWITCH_COOLDOWN", 4*time.Hour),
		MinTradesPerPeriod:   getEnvInt("SWITCH_MIN_TRADES", 5),
		ConfidenceThreshold:  getEnvFloat("SWITCH_CONFIDENCE_THRESHOLD", 0.7),
		MinImprovement:       getEnvFloat("SWITCH_MIN_IMPROVEMENT", 0.15),
		MaxConsecutiveLosses: getEnvInt("SWITCH_MAX_CONSECUTIVE_LOSSES", 3),
		HistoryLimit:         getEnvInt("SWITCH_HISTORY_LIMIT", 500),
	}

	cfg.Engine = EngineConfig{
		StrategyInterval: getEnvDuration("STRATEGY_INTERVAL", time.Minute),
		MonitorInterval:  getEnvDuration("MONITOR_INTERVAL", 5*time.Second),
		FundingInterval:  getEnvDuration("FUNDING_INTERVAL", time.Hour),
		ReportInterval:   getEnvDuration("REPORT_INTERVAL", 5*time.Minute),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	cfg.Performance.RecencyDecay = getEnvFloat("PERF_DECAY", 0.9)
	cfg.Performance.MinTrades = getEnvInt("PERF_MIN_TRADES", 5)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

// Validate checks the configuration before the engine starts
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive, got %.2f", c.Trading.InitialBalance)
	}
	if c.Risk.MaxLeverage < 1 {
		return fmt.Errorf("max leverage must be at least 1, got %d", c.Risk.MaxLeverage)
	}
	if c.Risk.MaxPositionSizePct <= 0 || c.Risk.MaxPositionSizePct > 1 {
		return fmt.Errorf("max position size pct must be in (0,1], got %.4f", c.Risk.MaxPositionSizePct)
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 1 {
		return fmt.Errorf("max daily loss pct must be in (0,1], got %.4f", c.Risk.MaxDailyLossPct)
	}
	if c.Risk.LiquidationBufferPct < 0 || c.Risk.LiquidationBufferPct > 0.5 {
		return fmt.Errorf("liquidation buffer pct must be in [0,0.5], got %.4f", c.Risk.LiquidationBufferPct)
	}
	if c.Performance.RecencyDecay <= 0 || c.Performance.RecencyDecay >= 1 {
		return fmt.Errorf("performance recency decay must be in (0,1), got %.4f", c.Performance.RecencyDecay)
	}
	if c.Selector.ConfidenceThreshold < 0 || c.Selector.ConfidenceThreshold > 1 {
		return fmt.Errorf("switch confidence threshold must be in [0,1], got %.4f", c.Selector.ConfidenceThreshold)
	}
	if c.Engine.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	if c.Engine.StrategyInterval < 30*time.Second || c.Engine.StrategyInterval > 5*time.Minute {
		return fmt.Errorf("strategy interval must be between 30s and 5m, got %s", c.Engine.StrategyInterval)
	}
	return nil
}

// RequireCredentials checks that live trading credentials are present
func (c *Config) RequireCredentials() error {
	if c.Exchange.APIKey == "" || c.Exchange.Secret == "" {
		return fmt.Errorf("exchange api key and secret are required for live trading")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}
