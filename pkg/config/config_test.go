package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
embedding:
  base_url: "http://localhost:11434"
  model: "all-minilm:latest"
  vector_dim: 384
  workers: 4

database:
  url: "postgres://localhost:5432/creditrag"
  table_name: "filing_chunks"
  batch_size: 5000

index:
  backend: "pgvector"
  metric: "cosine"

chunker:
  chunk_size: 500
  chunk_overlap: 100

edgar:
  user_agent: "testco test@example.com"
  rate_limit: 5.0
  data_dir: "data/raw"

llm:
  model: "mistral"
  max_tokens: 1000
  temperature: 0.2
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Equal(t, 384, config.Embedding.VectorDim)
	assert.Equal(t, 4, config.Embedding.Workers)
	assert.Equal(t, "postgres://localhost:5432/creditrag", config.Database.URL)
	assert.Equal(t, 5000, config.Database.BatchSize)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, 500, config.Chunker.ChunkSize)
	assert.Equal(t, 100, config.Chunker.ChunkOverlap)
	assert.Equal(t, "testco test@example.com", config.Edgar.UserAgent)
	assert.Equal(t, 5.0, config.Edgar.RateLimit)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "all-minilm:latest", config.Embedding.Model)
	assert.Equal(t, 384, config.Embedding.VectorDim)
	assert.Equal(t, 1, config.Embedding.Workers)
	assert.Equal(t, "memory", config.Index.Backend)
	assert.Equal(t, "cosine", config.Index.Metric)
	assert.Equal(t, 1000, config.Chunker.ChunkSize)
	assert.Equal(t, 200, config.Chunker.ChunkOverlap)
	assert.Equal(t, 5000, config.Database.BatchSize)
	assert.Equal(t, 8.0, config.Edgar.RateLimit)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c, _ := getDefaultConfig()
		return c
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		field    string
		expected int
	}{
		{
			name:     "valid defaults",
			mutate:   func(c *Config) {},
			expected: 0,
		},
		{
			name:     "overlap not less than chunk size",
			mutate:   func(c *Config) { c.Chunker.ChunkOverlap = c.Chunker.ChunkSize },
			field:    "chunker.chunk_overlap",
			expected: 1,
		},
		{
			name:     "unknown index backend",
			mutate:   func(c *Config) { c.Index.Backend = "faiss" },
			field:    "index.backend",
			expected: 1,
		},
		{
			name:     "unknown metric",
			mutate:   func(c *Config) { c.Index.Metric = "manhattan" },
			field:    "index.metric",
			expected: 1,
		},
		{
			name:     "pgvector without database URL",
			mutate:   func(c *Config) { c.Index.Backend = "pgvector"; c.Database.URL = "" },
			field:    "database.url",
			expected: 1,
		},
		{
			name:     "rate limit above SEC ceiling",
			mutate:   func(c *Config) { c.Edgar.RateLimit = 50 },
			field:    "edgar.rate_limit",
			expected: 1,
		},
		{
			name:     "zero workers",
			mutate:   func(c *Config) { c.Embedding.Workers = 0 },
			field:    "embedding.workers",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			errs := config.Validate()
			assert.Len(t, errs, tt.expected)
			if tt.expected > 0 {
				assert.Equal(t, tt.field, errs[0].Field)
				assert.NotEmpty(t, errs[0].Error())
			}
		})
	}
}
