package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, 50, cfg.Search.RerankPoolSize)
	assert.Equal(t, 3, cfg.Search.MinQueryLength)
	assert.True(t, cfg.Reranker.SigmoidScores)
}

func TestLoadYAML_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  result_limit: 25
  rerank_enabled: false
  rerank_pool_size: 50
  min_query_length: 3
  timeout: 10s
embeddings:
  provider: static
`), 0o644))

	cfg := NewConfig()
	require.NoError(t, cfg.loadYAML(path))

	assert.Equal(t, 25, cfg.Search.ResultLimit)
	assert.False(t, cfg.Search.RerankEnabled)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout.Std())
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	// Untouched sections keep their defaults.
	assert.Equal(t, "http://localhost:9659", cfg.Reranker.Endpoint)
}

func TestLoadYAML_MissingFileIsFine(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.loadYAML(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadYAML_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o644))

	cfg := NewConfig()
	err := cfg.loadYAML(path)
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeConfigInvalid, naragerr.GetCode(err))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NARAGTIVE_OLLAMA_HOST", "http://embedhost:11434")
	t.Setenv("NARAGTIVE_EMBEDDER", "static")
	t.Setenv("NARAGTIVE_RERANK_ENABLED", "false")
	t.Setenv("NARAGTIVE_LOG_LEVEL", "debug")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://embedhost:11434", cfg.Embeddings.OllamaHost)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.False(t, cfg.Search.RerankEnabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "gpu-magic" }},
		{"zero result limit", func(c *Config) { c.Search.ResultLimit = 0 }},
		{"zero pool size", func(c *Config) { c.Search.RerankPoolSize = 0 }},
		{"zero min query length", func(c *Config) { c.Search.MinQueryLength = 0 }},
		{"empty data dir", func(c *Config) { c.Paths.DataDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, naragerr.ErrCodeConfigInvalid, naragerr.GetCode(err))
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Search.ResultLimit = 42
	require.NoError(t, cfg.Save(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, 42, loaded.Search.ResultLimit)
}
