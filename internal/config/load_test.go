package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SAMPLE_AGENT_LLM_GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "sample_cache", cfg.Cache.Dir)
	assert.Equal(t, 5, cfg.Batch.GroupSize)
	assert.Equal(t, 60, cfg.Batch.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Batch.MaxRetries)
	assert.Equal(t, 6, cfg.Batch.RateLimitIntervalSeconds)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
	assert.Equal(t, "test-key", cfg.LLM.GeminiAPIKey)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SAMPLE_AGENT_LLM_GEMINI_API_KEY", "test-key")
	t.Setenv("SAMPLE_AGENT_SERVER_PORT", "9090")
	t.Setenv("SAMPLE_AGENT_SERVER_LOG_LEVEL", "debug")
	t.Setenv("SAMPLE_AGENT_BATCH_GROUP_SIZE", "10")
	t.Setenv("SAMPLE_AGENT_CACHE_DIR", "/tmp/cache")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 10, cfg.Batch.GroupSize)
	assert.Equal(t, "/tmp/cache", cfg.Cache.Dir)
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	// Without an API key the required validation must fail.
	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SAMPLE_AGENT_LLM_GEMINI_API_KEY", "test-key")

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("SAMPLE_AGENT_SERVER_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("SAMPLE_AGENT_SERVER_LOG_LEVEL", "verbose")
		_, err := Load()
		assert.Error(t, err)
	})
}
