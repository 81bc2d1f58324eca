package llm

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/finsight/creditrag/internal/types"
)

// LocalEmbedder is a deterministic embedder that derives a unit vector from
// a hash of the text. The same text always maps to the same vector, so it
// serves offline runs and tests without an embedding server. It is not a
// semantic model: similarity is meaningful only for equal or near-equal text.
type LocalEmbedder struct {
	dimensions int
}

// NewLocalEmbedder returns an embedder producing vectors of the given
// dimension (384 if non-positive, matching the default model).
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// CreateEmbedding returns one deterministic unit vector per text.
func (e *LocalEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := float64(h.Sum64() % 100003)

	vec := make([]float32, e.dimensions)
	var sum float64
	for i := range vec {
		v := math.Sin(seed*float64(i+1)) * 0.1
		vec[i] = float32(v)
		sum += v * v
	}
	if sum > 0 {
		norm := float32(1.0 / math.Sqrt(sum))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}

// Dimensions returns the embedding dimension.
func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

// LocalFactory returns a factory producing independent LocalEmbedder
// instances of the given dimension.
func LocalFactory(dimensions int) types.EmbedderFactory {
	return func() (types.Embedder, error) {
		return NewLocalEmbedder(dimensions), nil
	}
}
