package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Load reads configuration from the given YAML file, interpolates
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND, "config file not found: "+path, err)
		}
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "failed to read config file", err)
	}

	// Interpolate ${VAR} references in the raw settings, then merge the
	// result back so every string field picks up the substitution.
	interpolated, ok := interpolateEnvVars(v.AllSettings()).(map[string]interface{})
	if !ok {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "unexpected config structure")
	}
	if err := v.MergeConfigMap(interpolated); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "failed to merge interpolated config", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration from path, or returns the defaults
// when no file exists there.
func LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnvVars recursively interpolates environment variables in the
// config map. Supports ${VAR_NAME} and ${VAR_NAME:default} syntax.
func interpolateEnvVars(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

// interpolateString replaces ${VAR_NAME} with the environment variable
// value. An unset variable with no default leaves the reference untouched.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")

		name, fallback := inner, ""
		hasFallback := false
		if idx := strings.Index(inner, ":"); idx >= 0 {
			name, fallback = inner[:idx], inner[idx+1:]
			hasFallback = true
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}
