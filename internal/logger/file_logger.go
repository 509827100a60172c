package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for trading activities
type Logger struct {
	symbol  string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logDir  string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
	LogLevelSwitch  LogLevel = "SWITCH"
)

// NewLogger creates a new file logger for the specified symbol
func NewLogger(symbol, logDir string) (*Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", symbol, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		symbol:  symbol,
		logFile: file,
		logger:  log.New(file, "", 0),
		logDir:  logDir,
	}

	l.writeSessionHeader()

	return l, nil
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 FUTURES TRADING SESSION STARTED
================================================================================
Symbol: %s
Started: %s
Log File: %s_%s.log
================================================================================
`, l.symbol, time.Now().Format("2006-01-02 15:04:05"),
		l.symbol, time.Now().Format("2006-01-02"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	logEntry := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	l.logger.Println(logEntry)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs market status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogMarketStatus logs market condition and position snapshot
func (l *Logger) LogMarketStatus(currentPrice float64, condition string, confidence float64, strategy string, positionSide string, unrealizedPnL float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	statusLog := fmt.Sprintf(`
[%s] [STATUS] ==================== MARKET STATUS ====================
💰 Current Price: $%.2f
🌡️ Market Condition: %s (confidence %.2f)
🎯 Active Strategy: %s`,
		timestamp, currentPrice, condition, confidence, strategy)

	if positionSide != "" {
		statusLog += fmt.Sprintf(`
📊 Position: %s | Unrealized P&L: $%.2f`, positionSide, unrealizedPnL)
	} else {
		statusLog += "\n📊 Position Status: NO ACTIVE POSITION"
	}

	statusLog += "\n=========================================================="

	l.logger.Println(statusLog)
}

// LogTradeExecution logs trade execution details
func (l *Logger) LogTradeExecution(tradeType string, orderID string, quantity float64, price float64, leverage int, strategy string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	tradeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== %s EXECUTED ====================
✅ Order ID: %s
📦 Quantity: %.6f %s
💰 Price: $%.2f
⚖️ Leverage: %dx
🎯 Strategy: %s
=============================================================`,
		timestamp, tradeType, orderID, quantity, l.symbol, price, leverage, strategy)

	l.logger.Println(tradeLog)
}

// LogPositionClosed logs the end of a position lifecycle
func (l *Logger) LogPositionClosed(side string, entryPrice, exitPrice, realizedPnL float64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	closeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== POSITION CLOSED ====================
📊 Side: %s
🎯 Entry Price: $%.2f
🚪 Exit Price: $%.2f
💹 Realized P&L: $%.2f
📝 Reason: %s
==============================================================`,
		timestamp, side, entryPrice, exitPrice, realizedPnL, reason)

	l.logger.Println(closeLog)
}

// LogStrategySwitch logs a strategy switch decision
func (l *Logger) LogStrategySwitch(from, to, reason string, confidence float64, manual bool) {
	mode := "AUTO"
	if manual {
		mode = "MANUAL"
	}
	l.Log(LogLevelSwitch, "Strategy switch [%s]: %s -> %s (confidence %.2f) - %s", mode, from, to, confidence, reason)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	fullMessage := fmt.Sprintf(context+": "+message, args...)
	l.Warning("%s", fullMessage)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 FUTURES TRADING SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", l.symbol, timestamp)
	return filepath.Join(l.logDir, filename)
}
