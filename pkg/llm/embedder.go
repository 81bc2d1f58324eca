package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/finsight/creditrag/internal/types"
)

// EmbedderConfig represents the configuration for an embedding model.
type EmbedderConfig struct {
	Model     string
	BaseURL   string // Ollama server URL
	VectorDim int
}

// Embedder produces embeddings through an Ollama-served model. It holds no
// mutable state after construction, so each parallel worker can build its
// own instance.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

// NewEmbedderWithConfig creates an Embedder, applying defaults for any
// unset fields.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "all-minilm:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    emb,
	}, nil
}

// CreateEmbedding returns one vector per input text, in input order.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension of the configured model.
func (e *Embedder) Dimensions() int {
	return e.config.VectorDim
}

// Factory returns an EmbedderFactory so each embedding worker loads its own
// model connection.
func Factory(config EmbedderConfig) types.EmbedderFactory {
	return func() (types.Embedder, error) {
		return NewEmbedderWithConfig(config)
	}
}
