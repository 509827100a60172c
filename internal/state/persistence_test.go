package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocoin/futures-trader/internal/position"
)

// TestSaveLoadRoundTrip verifies a snapshot survives the disk round trip
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path, "BTCUSDT")

	saved := &Snapshot{
		SessionStart:      time.Now().Add(-time.Hour),
		ActiveStrategy:    "trend_following",
		TradesSinceSwitch: 7,
		Capital:           10500,
		DailyRealized:     -120.5,
		Positions: []*position.Position{
			{ID: "p1", Symbol: "BTCUSDT", Side: position.SideLong, Status: position.StatusOpen, EntryPrice: 50000, Quantity: 0.01, Leverage: 3},
		},
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "trend_following", loaded.ActiveStrategy)
	assert.Equal(t, 7, loaded.TradesSinceSwitch)
	assert.Equal(t, 10500.0, loaded.Capital)
	require.Len(t, loaded.Positions, 1)
	assert.Equal(t, position.StatusOpen, loaded.Positions[0].Status)
}

// TestLoadMissingFileStartsClean verifies absence is not an error
func TestLoadMissingFileStartsClean(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"), "BTCUSDT")

	loaded, err := store.Load()

	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// TestLoadRejectsSymbolMismatch verifies another symbol's book is refused
func TestLoadRejectsSymbolMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, NewStore(path, "ETHUSDT").Save(&Snapshot{}))

	_, err := NewStore(path, "BTCUSDT").Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol mismatch")
}

// TestLoadRejectsStaleState verifies old snapshots are refused
func TestLoadRejectsStaleState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path, "BTCUSDT")
	require.NoError(t, store.Save(&Snapshot{}))

	// Rewrite with an old timestamp, bypassing Save's refresh
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["last_updated"] = time.Now().Add(-8 * 24 * time.Hour).Format(time.RFC3339Nano)
	rewritten, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, rewritten, 0644))

	_, err = store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too old")
}

// TestSaveKeepsBackup verifies the previous state survives a save
func TestSaveKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := NewStore(path, "BTCUSDT")

	require.NoError(t, store.Save(&Snapshot{ActiveStrategy: "first"}))
	require.NoError(t, store.Save(&Snapshot{ActiveStrategy: "second"}))

	backup, err := os.ReadFile(filepath.Join(dir, "state_backup.json"))
	require.NoError(t, err)
	assert.Contains(t, string(backup), "first")
}
