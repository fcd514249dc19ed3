package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WARROOM_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, []string{"AAPL", "NVDA", "MSFT"}, cfg.Instruments)
	assert.Equal(t, 30*time.Second, cfg.TradingInterval)
	assert.Equal(t, 10*time.Second, cfg.AgentTimeout)
	assert.Equal(t, 25*time.Second, cfg.CycleDeadline)
	assert.Equal(t, 24*time.Hour, cfg.MaturationHorizon)
	assert.InDelta(t, 0.005, cfg.NeutralBand, 1e-9)
	assert.InDelta(t, 0.70, cfg.ExecutionConfidence, 1e-9)
	assert.Equal(t, "0 2 * * *", cfg.LearningSchedule)
	assert.True(t, cfg.DryRun, "live trading must be opted into")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WARROOM_DATA_DIR", t.TempDir())
	t.Setenv("INSTRUMENTS", "NVDA, AMD ,TSM")
	t.Setenv("TRADING_INTERVAL", "1m")
	t.Setenv("DRY_RUN", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMD", "TSM"}, cfg.Instruments)
	assert.Equal(t, time.Minute, cfg.TradingInterval)
	assert.False(t, cfg.DryRun)
}

func TestValidateRejectsIncoherentTimeouts(t *testing.T) {
	cfg := &Config{
		Instruments:   []string{"AAPL"},
		AgentTimeout:  30 * time.Second,
		CycleDeadline: 25 * time.Second,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyInstruments(t *testing.T) {
	cfg := &Config{
		AgentTimeout:  10 * time.Second,
		CycleDeadline: 25 * time.Second,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBackupWithoutBucket(t *testing.T) {
	cfg := &Config{
		Instruments:   []string{"AAPL"},
		AgentTimeout:  10 * time.Second,
		CycleDeadline: 25 * time.Second,
		Backup:        &BackupConfig{Enabled: true},
	}
	assert.Error(t, cfg.Validate())
}
