package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "triage-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())

	assert.InDelta(t, 0.5, cfg.Triage.CriticalThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.Triage.QueueConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.Triage.DraftConfidenceThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Triage.RetrievalLimit)

	assert.Equal(t, 20*time.Second, cfg.Oracle.Timeout())
	assert.False(t, cfg.SMTP.Enabled)
	assert.True(t, cfg.Worker.AutoSendEnabled)
	assert.Equal(t, time.Minute, cfg.Worker.Interval())
	assert.Equal(t, 30*time.Second, cfg.Dashboard.CacheTTL())
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSizeBytes())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TRIAGE_CRITICAL_THRESHOLD", "0.65")
	t.Setenv("ORACLE_TIMEOUT_SECONDS", "5")
	t.Setenv("AUTOSEND_ENABLED", "false")
	t.Setenv("MAX_FILE_SIZE_MB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.InDelta(t, 0.65, cfg.Triage.CriticalThreshold, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Oracle.Timeout())
	assert.False(t, cfg.Worker.AutoSendEnabled)
	assert.Equal(t, int64(2*1024*1024), cfg.Upload.MaxFileSizeBytes())
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("TRIAGE_CRITICAL_THRESHOLD", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIAGE_CRITICAL_THRESHOLD")
}

func TestInvalidNumericFallsBack(t *testing.T) {
	t.Setenv("ORACLE_TIMEOUT_SECONDS", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.Oracle.Timeout())
}
