package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/autocoin/futures-trader/internal/performance"
	"github.com/autocoin/futures-trader/internal/position"
	"github.com/autocoin/futures-trader/internal/selector"
)

const stateVersion = "1.0.0"

// maxStateAge guards against restoring a stale book after long downtime
const maxStateAge = 7 * 24 * time.Hour

// Snapshot is the complete recoverable state of the trading engine
type Snapshot struct {
	Version      string    `json:"version"`
	Symbol       string    `json:"symbol"`
	LastUpdated  time.Time `json:"last_updated"`
	SessionStart time.Time `json:"session_start"`

	// Strategy selection
	ActiveStrategy    string               `json:"active_strategy"`
	LastSwitch        time.Time            `json:"last_switch"`
	TradesSinceSwitch int                  `json:"trades_since_switch"`
	SwitchHistory     []*selector.Decision `json:"switch_history"`

	// Position book
	Positions     []*position.Position `json:"positions"`
	Capital       float64              `json:"capital"`
	DailyRealized float64              `json:"daily_realized"`
	DailyDate     time.Time            `json:"daily_date"`

	// Performance records per strategy/condition
	Performance []*performance.Record `json:"performance"`
}

// Store saves and loads engine snapshots as JSON with atomic replacement
type Store struct {
	mu     sync.Mutex
	path   string
	symbol string
}

func NewStore(path, symbol string) *Store {
	return &Store{path: path, symbol: symbol}
}

// Save writes the snapshot via a temp file and atomic rename, keeping a
// backup of the previous state file.
func (s *Store) Save(snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.Version = stateVersion
	snapshot.Symbol = s.symbol
	snapshot.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		if data, err := os.ReadFile(s.path); err == nil {
			_ = os.WriteFile(s.backupPath(), data, 0644)
		}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load reads and validates the snapshot. A missing file returns (nil, nil)
// so callers start clean; an invalid or stale snapshot is an error so the
// operator decides whether to discard it.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if err := s.validate(&snapshot); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %w", s.path, err)
	}
	return &snapshot, nil
}

func (s *Store) validate(snapshot *Snapshot) error {
	if snapshot.Version != stateVersion {
		return fmt.Errorf("version mismatch: expected %s, got %q", stateVersion, snapshot.Version)
	}
	if snapshot.Symbol != s.symbol {
		return fmt.Errorf("symbol mismatch: expected %s, got %q", s.symbol, snapshot.Symbol)
	}
	if time.Since(snapshot.LastUpdated) > maxStateAge {
		return fmt.Errorf("state too old: last updated %s", snapshot.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

func (s *Store) backupPath() string {
	ext := filepath.Ext(s.path)
	return s.path[:len(s.path)-len(ext)] + "_backup" + ext
}
