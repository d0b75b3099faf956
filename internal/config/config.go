package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/cerbero.db"

	// Relay (door actuator). An empty BaseURL disables actuation entirely.
	RelayBaseURL       string
	RelayChannel       int
	RelayTimeoutMs     int
	RelayRetryAttempts int
	RelayRetryDelayMs  int
	RelayPulseMs       int
	RelayOpenState     string // "on" | "off" — which relay state opens the door
	RelayNativePulse   bool   // device supports auto-restore query parameters

	// Scan endpoint auth
	ScanSecret string // shared secret for unauthenticated hardware scanners
	JWTSecret  string // HS256 secret for dashboard bearer tokens

	// Scan endpoint rate limiting
	ScanRatePerSec float64
	ScanBurst      int

	// Ledger attribution
	GuardUserID int64 // 0 = resolve from the users table at startup

	// Realtime feed
	WSHeartbeatSeconds int

	// Localized clock
	TZRefreshMinutes int
	DefaultTimezone  string
}

func FromEnv() Config {
	addr := getenvDefault("CERBERO_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("CERBERO_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("CERBERO_DB_PATH", "./data/cerbero.db")

	openState := strings.ToLower(getenvDefault("CERBERO_RELAY_OPEN_STATE", "on"))
	if openState != "off" {
		openState = "on"
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		RelayBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("CERBERO_RELAY_BASE_URL")), "/"),
		RelayChannel:       getenvInt("CERBERO_RELAY_CHANNEL", 0),
		RelayTimeoutMs:     getenvInt("CERBERO_RELAY_TIMEOUT_MS", 4000),
		RelayRetryAttempts: getenvInt("CERBERO_RELAY_RETRY_ATTEMPTS", 2),
		RelayRetryDelayMs:  getenvInt("CERBERO_RELAY_RETRY_DELAY_MS", 500),
		RelayPulseMs:       getenvInt("CERBERO_RELAY_PULSE_MS", 1500),
		RelayOpenState:     openState,
		RelayNativePulse:   getenvBool("CERBERO_RELAY_NATIVE_PULSE", true),

		ScanSecret: strings.TrimSpace(os.Getenv("CERBERO_SCAN_SECRET")),
		JWTSecret:  strings.TrimSpace(os.Getenv("CERBERO_JWT_SECRET")),

		ScanRatePerSec: getenvFloat("CERBERO_SCAN_RATE", 10),
		ScanBurst:      getenvInt("CERBERO_SCAN_BURST", 20),

		GuardUserID: int64(getenvInt("CERBERO_GUARD_USER_ID", 0)),

		WSHeartbeatSeconds: getenvInt("CERBERO_WS_HEARTBEAT_SECONDS", 30),

		TZRefreshMinutes: getenvInt("CERBERO_TZ_REFRESH_MINUTES", 5),
		DefaultTimezone:  getenvDefault("CERBERO_DEFAULT_TIMEZONE", "America/Argentina/Buenos_Aires"),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}
