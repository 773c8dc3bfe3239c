package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type RuntimeConfig struct {
	Backend                string
	DBPath                 string
	StateDir               string
	PostgresURL            string
	StateKey               string
	Timezone               string
	RefreshWindowMinutes   int
	RefreshIntervalMinutes int
	WatchUntilHour         int
	DigestHour             int
	SchedulerBuffer        int
	LogLevel               string
	PreferMorningWork      bool
	PreferQuickWins        bool
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Backend:                BackendSQLite,
		DBPath:                 "proxyd.db",
		StateDir:               ".proxyd",
		StateKey:               "proxy:state",
		RefreshWindowMinutes:   120,
		RefreshIntervalMinutes: 60,
		WatchUntilHour:         18,
		DigestHour:             18,
		SchedulerBuffer:        64,
		LogLevel:               "info",
	}
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("PROXYD_BACKEND"); ok {
		cfg.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvString("PROXYD_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("PROXYD_STATE_DIR"); ok {
		cfg.StateDir = v
	}
	if v, ok := getEnvString("PROXYD_POSTGRES_URL"); ok {
		cfg.PostgresURL = v
	}
	if v, ok := getEnvString("PROXYD_STATE_KEY"); ok {
		cfg.StateKey = v
	}
	if v, ok := getEnvString("PROXYD_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvInt("PROXYD_REFRESH_WINDOW_MINUTES"); ok && v > 0 {
		cfg.RefreshWindowMinutes = v
	}
	if v, ok := getEnvInt("PROXYD_REFRESH_INTERVAL_MINUTES"); ok && v > 0 {
		cfg.RefreshIntervalMinutes = v
	}
	if v, ok := getEnvInt("PROXYD_WATCH_UNTIL_HOUR"); ok && v > 0 && v <= 24 {
		cfg.WatchUntilHour = v
	}
	if v, ok := getEnvInt("PROXYD_DIGEST_HOUR"); ok && v >= 0 && v < 24 {
		cfg.DigestHour = v
	}
	if v, ok := getEnvInt("PROXYD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvString("PROXYD_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvBool("PROXYD_PREFER_MORNING_WORK"); ok {
		cfg.PreferMorningWork = v
	}
	if v, ok := getEnvBool("PROXYD_PREFER_QUICK_WINS"); ok {
		cfg.PreferQuickWins = v
	}
	return cfg
}

func (c RuntimeConfig) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("config: sqlite backend needs a db path")
		}
	case BackendFile:
		if strings.TrimSpace(c.StateDir) == "" {
			return fmt.Errorf("config: file backend needs a state dir")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresURL) == "" {
			return fmt.Errorf("config: postgres backend needs PROXYD_POSTGRES_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; empty means the process local zone.
func (c RuntimeConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c RuntimeConfig) RefreshWindow() time.Duration {
	return time.Duration(c.RefreshWindowMinutes) * time.Minute
}

func (c RuntimeConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c RuntimeConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
