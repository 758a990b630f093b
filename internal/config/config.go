package config

// Config represents the main ingat configuration
type Config struct {
	// StoreRoot is the knowledge base directory
	StoreRoot string `json:"store_root" mapstructure:"store_root"`

	// IndexPath is the index snapshot location; defaults to a hidden file
	// inside StoreRoot
	IndexPath string `json:"index_path" mapstructure:"index_path"`

	// Search configuration
	Search SearchConfig `json:"search" mapstructure:"search"`

	// Curation configuration
	Curation CurationConfig `json:"curation" mapstructure:"curation"`

	// Session configuration
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Embedding provider configuration
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// SearchConfig holds ranking configuration
type SearchConfig struct {
	// Alpha is the lexical weight in [0,1]; 1 is pure lexical, 0 pure semantic
	Alpha float64 `json:"alpha" mapstructure:"alpha"`
	// DefaultLimit caps results when the caller does not pass one
	DefaultLimit int `json:"default_limit" mapstructure:"default_limit"`
}

// CurationConfig holds curation heuristic tunables
type CurationConfig struct {
	// PurgeThreshold is the fraction of the top observed score above which
	// another entry counts as a likely duplicate
	PurgeThreshold float64 `json:"purge_threshold" mapstructure:"purge_threshold"`
}

// SessionConfig holds session capture tunables
type SessionConfig struct {
	// MinToolCalls is the capture threshold: with no writes, a session
	// needs more than this many tool calls to leave a record
	MinToolCalls int `json:"min_tool_calls" mapstructure:"min_tool_calls"`
	// FlushInterval is the periodic index flush cron spec while serving
	FlushInterval string `json:"flush_interval" mapstructure:"flush_interval"`
}

// EmbeddingConfig holds embedding provider configuration. An empty provider
// disables semantic search entirely.
type EmbeddingConfig struct {
	Provider string `json:"provider" mapstructure:"provider"` // "", openai
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Alpha:        0.6,
			DefaultLimit: 10,
		},
		Curation: CurationConfig{
			PurgeThreshold: 0.75,
		},
		Session: SessionConfig{
			MinToolCalls:  2,
			FlushInterval: "@every 5m",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: false,
		},
	}
}
