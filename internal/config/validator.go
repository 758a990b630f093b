package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a loaded config for values the engine cannot run with.
func (v *Validator) Validate(cfg *Config) error {
	if cfg.Search.Alpha < 0 || cfg.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be in [0,1], got %v", cfg.Search.Alpha)
	}
	if cfg.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Curation.PurgeThreshold <= 0 || cfg.Curation.PurgeThreshold > 1 {
		return fmt.Errorf("curation.purge_threshold must be in (0,1], got %v", cfg.Curation.PurgeThreshold)
	}
	if cfg.Session.MinToolCalls < 0 {
		return fmt.Errorf("session.min_tool_calls cannot be negative, got %d", cfg.Session.MinToolCalls)
	}
	if err := v.validateEmbedding(&cfg.Embedding); err != nil {
		return err
	}
	return v.validateLogLevel(cfg.Logging.Level)
}

func (v *Validator) validateEmbedding(cfg *EmbeddingConfig) error {
	switch cfg.Provider {
	case "":
		return nil
	case "openai":
		if cfg.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for the openai provider")
		}
		if !strings.HasPrefix(cfg.APIKey, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
		if cfg.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
		return nil
	default:
		return fmt.Errorf("unknown embedding provider %q (expected \"\" or \"openai\")", cfg.Provider)
	}
}

func (v *Validator) validateLogLevel(level string) error {
	switch level {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level %q (expected debug, info, warn, or error)", level)
}
