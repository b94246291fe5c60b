package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/roomservice/pkg/types"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"ROOMSERVICE_HTTP_ADDR", "ROOMSERVICE_DB_PATH", "ADMIN_PASSPHRASE", "ADMIN_PASSPHRASE_HASH",
		"ROOMSERVICE_MENU_VERSION", "ROOMSERVICE_LOCK_TIMEOUT_MS", "REDIS_ADDR", "REDIS_DB",
		"ROOMSERVICE_TIMEZONE", "ROOMSERVICE_CURRENCY", "ROOMSERVICE_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "roomservice.db", cfg.DBPath)
	assert.Equal(t, DefaultPassphrase, cfg.Passphrase)
	assert.Equal(t, types.DefaultMenuVersion, cfg.MenuVersion)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "₹", cfg.Currency)
	assert.Equal(t, cfg.Currency, cfg.Notify.Currency)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROOMSERVICE_LOCK_TIMEOUT_MS", "250")
	t.Setenv("ROOMSERVICE_TIMEZONE", "Asia/Kolkata")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ROOMSERVICE_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"ROOMSERVICE_LOCK_TIMEOUT_MS", "soon"},
		{"ROOMSERVICE_LOCK_TIMEOUT_MS", "0"},
		{"REDIS_DB", "x"},
		{"ROOMSERVICE_TIMEZONE", "Mars/Olympus"},
		{"ROOMSERVICE_LOG_LEVEL", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
