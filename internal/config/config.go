package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // ROOMSERVICE_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/dshills/roomservice/internal/notify"
	"github.com/dshills/roomservice/pkg/types"
)

// DefaultPassphrase matches the shared operator credential of a fresh
// install. Set ADMIN_PASSPHRASE or ADMIN_PASSPHRASE_HASH in production.
const DefaultPassphrase = "letmein"

// Config aggregates runtime settings read from the environment
type Config struct {
	HTTPAddr string
	DBPath   string

	// Exactly one of Passphrase and PassphraseHash is used; the hash wins
	Passphrase     string
	PassphraseHash string

	MenuVersion string
	LockTimeout time.Duration

	// Empty RedisAddr selects the in-process order lock
	RedisAddr string
	RedisDB   int

	Location     *time.Location
	PropertyName string
	Currency     string
	LogLevel     string

	Notify notify.Config
}

// Load reads and validates configuration, using defaults for unset values
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:       getEnv("ROOMSERVICE_HTTP_ADDR", ":8080"),
		DBPath:         getEnv("ROOMSERVICE_DB_PATH", "roomservice.db"),
		Passphrase:     getEnv("ADMIN_PASSPHRASE", DefaultPassphrase),
		PassphraseHash: getEnv("ADMIN_PASSPHRASE_HASH", ""),
		MenuVersion:    getEnv("ROOMSERVICE_MENU_VERSION", types.DefaultMenuVersion),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		PropertyName:   getEnv("ROOMSERVICE_PROPERTY_NAME", "Lucent's Resto"),
		Currency:       getEnv("ROOMSERVICE_CURRENCY", "₹"),
		LogLevel:       strings.ToLower(getEnv("ROOMSERVICE_LOG_LEVEL", "info")),
		Notify:         notify.ConfigFromEnv(),
	}
	cfg.Notify.Currency = cfg.Currency

	lockMs, err := getEnvInt("ROOMSERVICE_LOCK_TIMEOUT_MS", 5000)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ROOMSERVICE_LOCK_TIMEOUT_MS: %w", err)
	}
	if lockMs <= 0 {
		return Config{}, fmt.Errorf("ROOMSERVICE_LOCK_TIMEOUT_MS must be > 0")
	}
	cfg.LockTimeout = time.Duration(lockMs) * time.Millisecond

	cfg.RedisDB, err = getEnvInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tz := getEnv("ROOMSERVICE_TIMEZONE", "UTC")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ROOMSERVICE_TIMEZONE %q: %w", tz, err)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("ROOMSERVICE_LOG_LEVEL must be debug, info, warn or error")
	}

	if cfg.Passphrase == "" && cfg.PassphraseHash == "" {
		return Config{}, fmt.Errorf("ADMIN_PASSPHRASE must not be empty")
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("ROOMSERVICE_DB_PATH must not be empty")
	}

	return cfg, nil
}

// getEnv reads a string variable, returning fallback when unset or blank
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt reads an integer variable, returning fallback when unset
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return n, nil
}
