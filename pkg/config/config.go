package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	VectorDim int    `yaml:"vector_dim"`
	Workers   int    `yaml:"workers"`
	Local     bool   `yaml:"local"` // deterministic offline embedder, no server
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	BatchSize int    `yaml:"batch_size"`
}

type IndexConfig struct {
	Backend string `yaml:"backend"` // "pgvector" or "memory"
	Path    string `yaml:"path"`    // memory backend persistence file
	Metric  string `yaml:"metric"`  // "cosine" or "l2"
}

type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type EdgarConfig struct {
	UserAgent string  `yaml:"user_agent"`
	RateLimit float64 `yaml:"rate_limit"`
	DataDir   string  `yaml:"data_dir"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Index     IndexConfig     `yaml:"index"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Edgar     EdgarConfig     `yaml:"edgar"`
	LLM       LLMConfig       `yaml:"llm"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/creditrag/config.yaml"),
			"/etc/creditrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Embedding.Model == "" {
		config.Embedding.Model = "all-minilm:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}
	if config.Embedding.VectorDim == 0 {
		config.Embedding.VectorDim = 384
	}
	if config.Embedding.Workers == 0 {
		config.Embedding.Workers = 1
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "filing_chunks"
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 5000
	}

	if config.Index.Backend == "" {
		config.Index.Backend = "memory"
	}
	if config.Index.Path == "" {
		config.Index.Path = filepath.Join("data", "index", "filings.idx")
	}
	if config.Index.Metric == "" {
		config.Index.Metric = "cosine"
	}

	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 1000
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 200
	}

	if config.Edgar.RateLimit == 0 {
		config.Edgar.RateLimit = 8
	}
	if config.Edgar.DataDir == "" {
		config.Edgar.DataDir = filepath.Join("data", "raw")
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = config.Embedding.BaseURL
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if ua := os.Getenv("EDGAR_USER_AGENT"); ua != "" {
		config.Edgar.UserAgent = ua
	}
}
