package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "./data/cerbero.db", cfg.DBPath)
	assert.Empty(t, cfg.RelayBaseURL)
	assert.Equal(t, 4000, cfg.RelayTimeoutMs)
	assert.Equal(t, 2, cfg.RelayRetryAttempts)
	assert.Equal(t, 500, cfg.RelayRetryDelayMs)
	assert.Equal(t, 1500, cfg.RelayPulseMs)
	assert.Equal(t, "on", cfg.RelayOpenState)
	assert.True(t, cfg.RelayNativePulse)
	assert.Equal(t, 10.0, cfg.ScanRatePerSec)
	assert.Equal(t, 20, cfg.ScanBurst)
	assert.Equal(t, 30, cfg.WSHeartbeatSeconds)
	assert.Equal(t, 5, cfg.TZRefreshMinutes)
	assert.Equal(t, "America/Argentina/Buenos_Aires", cfg.DefaultTimezone)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CERBERO_HTTP_ADDR", ":9090")
	t.Setenv("CERBERO_ENV", "PROD")
	t.Setenv("CERBERO_RELAY_BASE_URL", "http://192.168.1.50/")
	t.Setenv("CERBERO_RELAY_CHANNEL", "1")
	t.Setenv("CERBERO_RELAY_OPEN_STATE", "OFF")
	t.Setenv("CERBERO_RELAY_NATIVE_PULSE", "false")
	t.Setenv("CERBERO_GUARD_USER_ID", "7")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "http://192.168.1.50", cfg.RelayBaseURL, "trailing slash stripped")
	assert.Equal(t, 1, cfg.RelayChannel)
	assert.Equal(t, "off", cfg.RelayOpenState)
	assert.False(t, cfg.RelayNativePulse)
	assert.Equal(t, int64(7), cfg.GuardUserID)
}

func TestFromEnv_FailSoftOnBadValues(t *testing.T) {
	t.Setenv("CERBERO_ENV", "staging")
	t.Setenv("CERBERO_RELAY_OPEN_STATE", "toggle")
	t.Setenv("CERBERO_RELAY_TIMEOUT_MS", "not-a-number")
	t.Setenv("CERBERO_RELAY_RETRY_ATTEMPTS", "-3")
	t.Setenv("CERBERO_SCAN_RATE", "0")

	cfg := FromEnv()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "on", cfg.RelayOpenState)
	assert.Equal(t, 4000, cfg.RelayTimeoutMs)
	assert.Equal(t, 2, cfg.RelayRetryAttempts)
	assert.Equal(t, 10.0, cfg.ScanRatePerSec)
}
