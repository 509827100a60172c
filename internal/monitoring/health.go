package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports liveness for the trading engine over HTTP
type HealthChecker struct {
	mu          sync.RWMutex
	engineState string
	lastCycle   time.Time
	lastPrice   float64
	isConnected bool
	lastError   string
}

type HealthStatus struct {
	Status      string    `json:"status"`
	EngineState string    `json:"engine_state"`
	Timestamp   time.Time `json:"timestamp"`
	LastCycle   time.Time `json:"last_cycle"`
	LastPrice   float64   `json:"last_price"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	LastError   string    `json:"last_error,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// SetEngineState records the engine state machine's current state
func (h *HealthChecker) SetEngineState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engineState = state
}

// RecordCycle marks a completed evaluation cycle
func (h *HealthChecker) RecordCycle(price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = time.Now()
	h.lastPrice = price
	h.isConnected = true
	h.lastError = ""
}

// RecordFailure marks a failed cycle with its cause
func (h *HealthChecker) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = false
	if err != nil {
		h.lastError = err.Error()
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	switch {
	case h.engineState == "ERROR":
		status = "unhealthy"
		code = http.StatusInternalServerError
	case !h.isConnected || time.Since(h.lastCycle) > 5*time.Minute:
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	health := HealthStatus{
		Status:      status,
		EngineState: h.engineState,
		Timestamp:   time.Now(),
		LastCycle:   h.lastCycle,
		LastPrice:   h.lastPrice,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).String(),
		LastError:   h.lastError,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
