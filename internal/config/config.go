// Package config loads and validates agent configuration from YAML files.
// Environment variables can be interpolated using ${VAR_NAME} syntax, with
// ${VAR_NAME:default} supplying a fallback when the variable is unset.
package config

import (
	"fmt"
	"time"

	"github.com/sriharsha8991/adv-attack-simulation/internal/graph"
	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/safety"
	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Config is the root configuration for the ability generation agent.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Graph   graph.Config  `mapstructure:"graph" yaml:"graph"`
	Galaxy  GalaxyConfig  `mapstructure:"galaxy" yaml:"galaxy"`
	Safety  SafetyConfig  `mapstructure:"safety" yaml:"safety"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig selects the provider and tunes generation behavior.
type LLMConfig struct {
	Provider             string        `mapstructure:"provider" yaml:"provider"`
	Model                string        `mapstructure:"model" yaml:"model"`
	APIKey               string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL              string        `mapstructure:"base_url" yaml:"base_url"`
	MaxRetries           int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	RetryMaxDelay        time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
	MaxToolIterations    int           `mapstructure:"max_tool_iterations" yaml:"max_tool_iterations"`
	MaxValidationRetries int           `mapstructure:"max_validation_retries" yaml:"max_validation_retries"`
}

// GalaxyConfig controls the MISP galaxy threat intel source.
type GalaxyConfig struct {
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

// SafetyConfig controls the validation pipeline. Disabled by default:
// generated output stays PENDING and unvetted until an operator opts in.
type SafetyConfig struct {
	Enabled           bool     `mapstructure:"enabled" yaml:"enabled"`
	AuditLogPath      string   `mapstructure:"audit_log_path" yaml:"audit_log_path"`
	BlocklistPatterns []string `mapstructure:"blocklist_patterns" yaml:"blocklist_patterns"`
}

// BatchConfig controls batch generation output and parallelism.
type BatchConfig struct {
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:             "googleai",
			Model:                "gemini-3-flash-preview",
			MaxRetries:           llm.DefaultMaxRetries,
			RetryBaseDelay:       llm.DefaultRetryBaseDelay,
			RetryMaxDelay:        llm.DefaultRetryMaxDelay,
			MaxToolIterations:    llm.DefaultMaxToolIterations,
			MaxValidationRetries: llm.DefaultMaxValidationRetries,
		},
		Graph:  graph.DefaultConfig(),
		Galaxy: GalaxyConfig{CacheDir: "data/misp_galaxies"},
		Safety: SafetyConfig{
			Enabled:           false,
			AuditLogPath:      "output/safety_audit.jsonl",
			BlocklistPatterns: safety.DefaultBlocklistPatterns,
		},
		Batch: BatchConfig{
			OutputDir:   "output/abilities",
			Concurrency: 100,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "googleai", "ollama":
	default:
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "unknown llm provider: "+c.LLM.Provider)
	}
	if c.LLM.MaxRetries < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "llm max_retries must be >= 0")
	}
	if c.LLM.MaxToolIterations < 1 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "llm max_tool_iterations must be >= 1")
	}
	if c.LLM.MaxValidationRetries < 1 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "llm max_validation_retries must be >= 1")
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if c.Batch.Concurrency < 1 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "batch concurrency must be >= 1")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, fmt.Sprintf("api port out of range: %d", c.API.Port))
	}
	if _, err := safety.CompileBlocklist(c.Safety.BlocklistPatterns); err != nil {
		return types.WrapError(types.CONFIG_VALIDATION_FAILED, "invalid safety blocklist pattern", err)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "unknown log level: "+c.Logging.Level)
	}
	return nil
}
