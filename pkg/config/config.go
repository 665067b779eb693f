package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all Argus configuration.
type Config struct {
	DBPath       string        `yaml:"db_path"`
	DefaultModel string        `yaml:"default_model"`
	Cache        CacheConfig   `yaml:"cache"`
	Retry        RetryConfig   `yaml:"retry"`
	Models       []ModelConfig `yaml:"models"`
}

// CacheConfig controls the review result cache.
type CacheConfig struct {
	Enabled    bool  `yaml:"enabled"`
	TTLSeconds int64 `yaml:"ttl_seconds"`
}

// RetryConfig controls per-model retry and backoff behavior.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMS int64   `yaml:"base_delay_ms"`
	MaxDelayMS  int64   `yaml:"max_delay_ms"`
	Jitter      float64 `yaml:"jitter"`
}

// ModelConfig describes one reviewable model. Declaration order is the
// fallback priority order. The credential is read from the environment
// variable named by APIKeyEnv; a model with no credential is disabled.
type ModelConfig struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Provider       string  `yaml:"provider"`
	URL            string  `yaml:"url"`
	ModelID        string  `yaml:"model_id"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	CostPer1K      float64 `yaml:"cost_per_1k_tokens"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int64   `yaml:"timeout_seconds"`
}

// Default returns a Config with the built-in model table and sensible defaults.
func Default() *Config {
	return &Config{
		DBPath:       "argus.db",
		DefaultModel: "glm-4.7",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMS: 1000,
			MaxDelayMS:  10000,
			Jitter:      0.25,
		},
		Models: []ModelConfig{
			{
				ID:             "glm-4.7",
				Name:           "GLM 4.7",
				Provider:       "zai",
				URL:            "https://api.z.ai/api/coding/paas/v4",
				ModelID:        "glm-4.7",
				APIKeyEnv:      "GLM_API_KEY",
				CostPer1K:      0.002,
				MaxTokens:      8000,
				TimeoutSeconds: 60,
			},
			{
				ID:             "gemini-flash",
				Name:           "Google Gemini Flash",
				Provider:       "openrouter",
				URL:            "https://openrouter.ai/api/v1",
				ModelID:        "google/gemini-flash-1.5",
				APIKeyEnv:      "OPENROUTER_API_KEY",
				CostPer1K:      0.001,
				MaxTokens:      8000,
				TimeoutSeconds: 45,
			},
			{
				ID:             "minimax",
				Name:           "MiniMax",
				Provider:       "openrouter",
				URL:            "https://openrouter.ai/api/v1",
				ModelID:        "minimax/minimax-01",
				APIKeyEnv:      "OPENROUTER_API_KEY",
				CostPer1K:      0.001,
				MaxTokens:      8000,
				TimeoutSeconds: 60,
			},
		},
	}
}

// Load reads a YAML config file and expands environment variables in it.
// A missing file is not an error: the built-in defaults are used, so the
// server runs with only environment variables set. In either case the
// ARGUS_DEFAULT_MODEL environment variable overrides the default model.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if m := os.Getenv("ARGUS_DEFAULT_MODEL"); m != "" {
		cfg.DefaultModel = m
	}
	return cfg, nil
}
