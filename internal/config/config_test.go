package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.False(t, cfg.ExportEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		EnvLogLevel:        "DEBUG",
		EnvDatabaseURL:     "postgres://ledger@localhost/ledger",
		EnvRedisAddr:       "localhost:6379",
		EnvFingerprintTTL:  "72h",
		EnvBigQueryProject: "my-project",
		EnvBigQueryDataset: "analytics",
		EnvDefaultPageSize: "25",
		EnvMaxPageSize:     "50",
	}))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.DatabaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 72*time.Hour, cfg.FingerprintTTL)
	assert.Equal(t, "analytics", cfg.BigQueryDataset)
	assert.Equal(t, 25, cfg.DefaultPageSize)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.True(t, cfg.ExportEnabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unparsable ttl", map[string]string{EnvFingerprintTTL: "forever"}, EnvFingerprintTTL},
		{"unparsable page size", map[string]string{EnvDefaultPageSize: "twenty"}, EnvDefaultPageSize},
		{"unknown level", map[string]string{EnvLogLevel: "chatty"}, "log level"},
		{"negative ttl", map[string]string{EnvFingerprintTTL: "-1h"}, "fingerprint TTL"},
		{"default above max", map[string]string{EnvDefaultPageSize: "150"}, "default page size"},
		{"zero max", map[string]string{EnvMaxPageSize: "0"}, "max page size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envOf(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
