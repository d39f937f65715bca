package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "googleai", cfg.LLM.Provider)
	assert.Equal(t, "gemini-3-flash-preview", cfg.LLM.Model)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.URI)
	assert.Equal(t, 100, cfg.Batch.Concurrency)
	assert.Equal(t, 8000, cfg.API.Port)
	assert.False(t, cfg.Safety.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: anthropic
  model: claude-sonnet-4-5
  retry_base_delay: 2s
graph:
  uri: bolt://graph.internal:7687
  password: secret
batch:
  concurrency: 8
safety:
  enabled: true
  blocklist_patterns:
    - 'rm\s+-rf\s+/'
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, 2*time.Second, cfg.LLM.RetryBaseDelay)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Graph.URI)
	assert.Equal(t, "secret", cfg.Graph.Password)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.True(t, cfg.Safety.Enabled)
	assert.Equal(t, []string{`rm\s+-rf\s+/`}, cfg.Safety.BlocklistPatterns)

	// Untouched sections keep their defaults.
	assert.Equal(t, "neo4j", cfg.Graph.Username)
	assert.Equal(t, 8000, cfg.API.Port)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")

	path := writeConfig(t, `
llm:
  api_key: ${TEST_LLM_KEY}
graph:
  password: ${TEST_GRAPH_PASSWORD:fallback-pw}
  database: ${TEST_UNSET_NO_DEFAULT}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "fallback-pw", cfg.Graph.Password)
	// Unset variable without a default stays as-is.
	assert.Equal(t, "${TEST_UNSET_NO_DEFAULT}", cfg.Graph.Database)
}

func TestLoadEnvOverridesFallback(t *testing.T) {
	t.Setenv("TEST_GRAPH_PASSWORD", "real-pw")

	path := writeConfig(t, `
graph:
  password: ${TEST_GRAPH_PASSWORD:fallback-pw}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "real-pw", cfg.Graph.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, types.HasCode(err, types.CONFIG_NOT_FOUND))
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "googleai", cfg.LLM.Provider)
}

func TestLoadWithDefaultsExistingFile(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: ollama\n")

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }},
		{"zero tool iterations", func(c *Config) { c.LLM.MaxToolIterations = 0 }},
		{"zero validation retries", func(c *Config) { c.LLM.MaxValidationRetries = 0 }},
		{"empty graph uri", func(c *Config) { c.Graph.URI = "" }},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }},
		{"port out of range", func(c *Config) { c.API.Port = 70000 }},
		{"bad blocklist pattern", func(c *Config) { c.Safety.BlocklistPatterns = []string{"[broken"} }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: bard\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CONFIG_VALIDATION_FAILED))
}
