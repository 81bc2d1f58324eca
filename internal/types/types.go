package types

import (
	"context"

	"github.com/finsight/creditrag/internal/models"
)

// Core interfaces

// Embedder maps texts to fixed-dimension vectors, one per input, order
// preserved. Implementations must be safe to construct per worker.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbedderFactory builds an independent Embedder instance. Each parallel
// worker calls the factory so no model state is shared across workers.
type EmbedderFactory func() (Embedder, error)

// VectorIndex is a persistent append-only store of embedded chunks with
// nearest-neighbor query. A non-empty ticker restricts the search to records
// whose metadata matches; filtering happens inside the index so top-k
// semantics hold.
type VectorIndex interface {
	Add(ctx context.Context, records []models.IndexRecord) error
	Query(ctx context.Context, embedding []float32, topK int, ticker string) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Tickers(ctx context.Context) ([]string, error)
	Close() error
}

// Chunker splits a document into overlapping spans.
type Chunker interface {
	Split(text string) []string
}
