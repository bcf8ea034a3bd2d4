package service

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nekohouse/doorcode/pkg/slogx"
)

type Config struct {
	Secret          string        // Required: shared admin secret codes derive from
	SealKey         string        // Required: passphrase sealing stored codes at rest
	TimeOffset      int64         // Optional: seconds added to the wall clock (default: 0)
	ReissueInterval time.Duration // Optional: minimum gap between repeatable reissues (default: 5m)
	RetainFor       time.Duration // Optional: how long stale repeatable grants are kept before reissue sweeps drop them (default: 1h)
	CheckRate       int           // Optional: verification attempts per subject per CheckWindow (default: 10)
	CheckWindow     time.Duration // Optional: window for CheckRate (default: 1m)
	CheckBurst      int           // Optional: burst allowance on top of CheckRate (default: 5)
	DatabaseFile    string        // Optional: path to SQLite database file (default: ./doorcode.db)
	Env             string        // Environment (dev, staging, prod) (default: dev)
	LogLevel        string        // Log level (debug, info, warn, error) (default: info)
	LogFormat       string        // Log format (json, text) (default: json)
}

// Defaults applied both by LoadConfig and, via withDefaults, to zero
// fields of a Config built by hand.
const (
	defaultReissueInterval = 5 * time.Minute
	defaultRetainFor       = time.Hour
	defaultCheckRate       = 10
	defaultCheckWindow     = time.Minute
	defaultCheckBurst      = 5
	defaultDatabaseFile    = "doorcode.db"
)

func LoadConfig() Config {
	return Config{
		Secret:          os.Getenv("DOORCODE_SECRET"),
		SealKey:         os.Getenv("DOORCODE_SEAL_KEY"),
		TimeOffset:      int64(getEnvIntOrDefault("DOORCODE_TIME_OFFSET", 0)),
		ReissueInterval: getEnvDurationOrDefault("DOORCODE_REISSUE_INTERVAL", defaultReissueInterval),
		RetainFor:       getEnvDurationOrDefault("DOORCODE_RETAIN_FOR", defaultRetainFor),
		CheckRate:       getEnvIntOrDefault("DOORCODE_CHECK_RATE", defaultCheckRate),
		CheckWindow:     getEnvDurationOrDefault("DOORCODE_CHECK_WINDOW", defaultCheckWindow),
		CheckBurst:      getEnvIntOrDefault("DOORCODE_CHECK_BURST", defaultCheckBurst),
		DatabaseFile:    getEnvOrDefault("DOORCODE_DATABASE_FILE", defaultDatabaseFile),
		Env:             getEnvOrDefault("ENV", "dev"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// withDefaults fills zero fields so a hand-built Config behaves like one
// from LoadConfig. A zero RetainFor would otherwise purge every
// repeatable grant on sight, and a zero check rate would throttle the
// first verification attempt.
func (c Config) withDefaults() Config {
	if c.ReissueInterval <= 0 {
		c.ReissueInterval = defaultReissueInterval
	}
	if c.RetainFor <= 0 {
		c.RetainFor = defaultRetainFor
	}
	if c.CheckRate <= 0 {
		c.CheckRate = defaultCheckRate
	}
	if c.CheckWindow <= 0 {
		c.CheckWindow = defaultCheckWindow
	}
	if c.CheckBurst <= 0 {
		c.CheckBurst = defaultCheckBurst
	}
	if c.DatabaseFile == "" {
		c.DatabaseFile = defaultDatabaseFile
	}
	return c
}

// Logger builds the guard's structured logger from the config's logging
// fields and installs it as the process default.
func (c Config) Logger() *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "doorcode",
		Env:     c.Env,
		Level:   c.LogLevel,
		Format:  c.LogFormat,
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
