package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4, cfg.Comm.Ranks)
	assert.Equal(t, 256, cfg.Comm.MaxRanks)
	assert.False(t, cfg.Comm.ForceDeepCopy)
	assert.Zero(t, cfg.Comm.ReceiveTimeout)

	assert.Equal(t, "ring", cfg.Workload.Name)
	assert.Equal(t, 3, cfg.Workload.Rounds)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.Empty(t, cfg.Workload.Document)

	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"THREADCOMM_RANKS":           "8",
		"THREADCOMM_MAX_RANKS":       "16",
		"THREADCOMM_FORCE_DEEP_COPY": "true",
		"THREADCOMM_RECEIVE_TIMEOUT": "250ms",
		"WORKLOAD":                   "reduce",
		"WORKLOAD_ROUNDS":            "10",
		"LOG_LEVEL":                  "debug",
		"LOG_DEV":                    "true",
		"METRICS_ENABLED":            "true",
		"METRICS_ADDR":               ":9000",
		"WORKLOAD_DOCUMENT":          "run.yaml",
		"RATE_LIMIT_RPS":             "5",
		"RATE_LIMIT_BURST":           "10",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Comm.Ranks)
	assert.Equal(t, 16, cfg.Comm.MaxRanks)
	assert.True(t, cfg.Comm.ForceDeepCopy)
	assert.Equal(t, 250*time.Millisecond, cfg.Comm.ReceiveTimeout)
	assert.Equal(t, "reduce", cfg.Workload.Name)
	assert.Equal(t, 10, cfg.Workload.Rounds)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9000", cfg.Metrics.Addr)
	assert.Equal(t, "run.yaml", cfg.Workload.Document)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("THREADCOMM_RANKS", "2")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Comm.Ranks)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "ring", cfg.Workload.Name)
	assert.False(t, cfg.Comm.ForceDeepCopy)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero ranks", "THREADCOMM_RANKS", "0"},
		{"negative timeout", "THREADCOMM_RECEIVE_TIMEOUT", "-1s"},
		{"zero rounds", "WORKLOAD_ROUNDS", "0"},
		{"unparseable ranks", "THREADCOMM_RANKS", "many"},
		{"zero rate", "RATE_LIMIT_RPS", "0"},
		{"max below ranks", "THREADCOMM_MAX_RANKS", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestValidateMetricsAddr(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	assert.Error(t, cfg.Validate())
}
