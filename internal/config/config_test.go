package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.6, cfg.Search.Alpha)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 0.75, cfg.Curation.PurgeThreshold)
	assert.Equal(t, 2, cfg.Session.MinToolCalls)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Embedding.Provider)
}

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "alpha out of range",
			mutate:  func(cfg *Config) { cfg.Search.Alpha = 1.2 },
			wantErr: "search.alpha",
		},
		{
			name:    "zero limit",
			mutate:  func(cfg *Config) { cfg.Search.DefaultLimit = 0 },
			wantErr: "search.default_limit",
		},
		{
			name:    "purge threshold zero",
			mutate:  func(cfg *Config) { cfg.Curation.PurgeThreshold = 0 },
			wantErr: "curation.purge_threshold",
		},
		{
			name:    "negative tool calls",
			mutate:  func(cfg *Config) { cfg.Session.MinToolCalls = -1 },
			wantErr: "session.min_tool_calls",
		},
		{
			name:    "openai provider without key",
			mutate:  func(cfg *Config) { cfg.Embedding.Provider = "openai" },
			wantErr: "embedding.api_key",
		},
		{
			name: "openai provider with bad key",
			mutate: func(cfg *Config) {
				cfg.Embedding.Provider = "openai"
				cfg.Embedding.APIKey = "not-a-key"
			},
			wantErr: "key format",
		},
		{
			name: "openai provider valid",
			mutate: func(cfg *Config) {
				cfg.Embedding.Provider = "openai"
				cfg.Embedding.APIKey = "sk-test123"
			},
		},
		{
			name:    "unknown provider",
			mutate:  func(cfg *Config) { cfg.Embedding.Provider = "llamafile" },
			wantErr: "unknown embedding provider",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
