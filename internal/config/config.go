// Package config loads layered configuration: built-in defaults, then
// the user config file, then NARAGTIVE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

// Duration is a time.Duration that marshals as a human-readable
// string ("30s", "1m") in YAML.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or an integer
// nanosecond count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete naragtive configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Reranker   RerankerConfig   `yaml:"reranker" json:"reranker"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PathsConfig locates the data directories.
type PathsConfig struct {
	// DataDir holds the store registry and index files.
	// Default: ~/.naragtive/stores
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// HistoryPath is the search-history database.
	// Default: ~/.naragtive/history.db
	HistoryPath string `yaml:"history_path" json:"history_path"`
}

// SearchConfig sets the per-query defaults.
type SearchConfig struct {
	ResultLimit    int      `yaml:"result_limit" json:"result_limit"`
	RerankEnabled  bool     `yaml:"rerank_enabled" json:"rerank_enabled"`
	RerankPoolSize int      `yaml:"rerank_pool_size" json:"rerank_pool_size"`
	MinQueryLength int      `yaml:"min_query_length" json:"min_query_length"`
	Timeout        Duration `yaml:"timeout" json:"timeout"`
}

// EmbeddingsConfig selects and configures the embedding backend.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider string `yaml:"provider" json:"provider"`

	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// RerankerConfig configures the cross-encoder server.
type RerankerConfig struct {
	Endpoint string   `yaml:"endpoint" json:"endpoint"`
	Model    string   `yaml:"model" json:"model"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`

	// SigmoidScores squashes raw logits into [0,1].
	SigmoidScores bool `yaml:"sigmoid_scores" json:"sigmoid_scores"`
}

// LoggingConfig configures the rotating JSON log.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:     filepath.Join(home, ".naragtive", "stores"),
			HistoryPath: filepath.Join(home, ".naragtive", "history.db"),
		},
		Search: SearchConfig{
			ResultLimit:    10,
			RerankEnabled:  true,
			RerankPoolSize: 50,
			MinQueryLength: 3,
			Timeout:        Duration(30 * time.Second),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			OllamaHost: "http://localhost:11434",
		},
		Reranker: RerankerConfig{
			Endpoint:      "http://localhost:9659",
			Model:         "bge-reranker-base",
			Timeout:       Duration(30 * time.Second),
			SigmoidScores: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// UserConfigPath returns the user config file location, honoring
// XDG_CONFIG_HOME.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "naragtive", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "naragtive", "config.yaml")
}

// Load builds the effective configuration: defaults, then the user
// file if present, then environment overrides.
func Load() (*Config, error) {
	cfg := NewConfig()

	path := UserConfigPath()
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges a config file over the current values. A missing
// file is fine; an unreadable one is not.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeConfigNotFound, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return naragerr.New(naragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("config file %s is not valid YAML", path), err)
	}
	return nil
}

// applyEnvOverrides applies NARAGTIVE_* variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NARAGTIVE_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("NARAGTIVE_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("NARAGTIVE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("NARAGTIVE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("NARAGTIVE_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("NARAGTIVE_RERANK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.RerankEnabled = b
		}
	}
	if v := os.Getenv("NARAGTIVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return naragerr.New(naragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown embeddings provider %q (want ollama or static)", c.Embeddings.Provider), nil)
	}

	if c.Search.ResultLimit < 1 {
		return naragerr.New(naragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.result_limit must be >= 1, got %d", c.Search.ResultLimit), nil)
	}
	if c.Search.RerankPoolSize < 1 {
		return naragerr.New(naragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.rerank_pool_size must be >= 1, got %d", c.Search.RerankPoolSize), nil)
	}
	if c.Search.MinQueryLength < 1 {
		return naragerr.New(naragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.min_query_length must be >= 1, got %d", c.Search.MinQueryLength), nil)
	}
	if c.Paths.DataDir == "" {
		return naragerr.New(naragerr.ErrCodeConfigInvalid, "paths.data_dir must be set", nil)
	}
	return nil
}

// Save writes the configuration to the user config path, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = UserConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	return nil
}
