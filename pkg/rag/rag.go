package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/finsight/creditrag/internal/models"
	"github.com/finsight/creditrag/internal/types"
	"github.com/finsight/creditrag/pkg/chunker"
	"github.com/finsight/creditrag/pkg/llm"
)

// ErrEmptyQuery is returned by Retrieve for blank query text. An error
// rather than an empty result, so "no data" and "bad query" stay distinct.
var ErrEmptyQuery = errors.New("query text is empty")

// RAGConfig configures the ingestion and retrieval engine.
type RAGConfig struct {
	ChunkSize    int
	ChunkOverlap int
	// Workers > 1 embeds each document's chunks across that many parallel
	// workers, each loading its own embedder. 0 or 1 embeds serially.
	Workers int
}

// RAG wires the chunker, embedder and vector index into the two operations
// the rest of the system uses: ingest a filing, retrieve grounding text.
type RAG struct {
	config   RAGConfig
	chunker  *chunker.Chunker
	embedder types.EmbedderFactory
	index    types.VectorIndex
}

// NewWithConfig builds the engine. The embedder factory is called once per
// ingest on the serial path and once per worker on the parallel path; the
// query path reuses a single instance.
func NewWithConfig(config RAGConfig, embedder types.EmbedderFactory, index types.VectorIndex) (*RAG, error) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    config.ChunkSize,
		ChunkOverlap: config.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &RAG{
		config:   config,
		chunker:  c,
		embedder: embedder,
		index:    index,
	}, nil
}

// Ingest chunks a filing, embeds every chunk and appends the records to the
// index in one batch. The whole document commits or none of it does: an
// embedding failure, a worker failure or a duplicate ID aborts the call
// before or during the single Add. Returns the number of chunks stored.
//
// Record IDs are deterministic, so re-ingesting an unchanged filing fails
// with a store.DuplicateIDError rather than silently duplicating.
func (r *RAG) Ingest(ctx context.Context, ticker, documentText, docType string) (int, error) {
	if docType == "" {
		docType = "10-K"
	}

	chunks := r.chunker.Split(documentText)
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := llm.EmbedParallel(ctx, r.embedder, chunks, r.config.Workers)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %s %s: %w", ticker, docType, err)
	}

	records := make([]models.IndexRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.IndexRecord{
			ID:        models.RecordID(ticker, docType, i),
			Text:      chunk,
			Embedding: embeddings[i],
			Metadata: models.ChunkMetadata{
				Ticker:      ticker,
				DocType:     docType,
				ChunkID:     i,
				TotalChunks: len(chunks),
			},
		}
	}

	if err := r.index.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store %s %s: %w", ticker, docType, err)
	}
	return len(chunks), nil
}

// FilingLoader fetches the raw filing text for a ticker.
type FilingLoader func(ctx context.Context, ticker string) (string, error)

// IngestBatch builds the index for several tickers. One ticker's failure
// (missing filing, embedding error, duplicate) is logged and skipped; the
// rest of the batch continues. Returns chunk counts per ingested ticker.
func (r *RAG) IngestBatch(ctx context.Context, tickers []string, load FilingLoader) map[string]int {
	counts := make(map[string]int)
	for _, ticker := range tickers {
		text, err := load(ctx, ticker)
		if err != nil {
			log.Printf("skipping %s: %v", ticker, err)
			continue
		}
		n, err := r.Ingest(ctx, ticker, text, "10-K")
		if err != nil {
			log.Printf("skipping %s: %v", ticker, err)
			continue
		}
		counts[ticker] = n
	}
	return counts
}

// Retrieve embeds the query with the same embedder configuration used at
// ingestion and returns up to topK nearest chunks. A non-empty ticker
// restricts results to that company inside the index query.
func (r *RAG) Retrieve(ctx context.Context, query, ticker string, topK int) (models.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return models.RetrievalResult{}, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 5
	}

	emb, err := r.embedder()
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	vectors, err := emb.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := r.index.Query(ctx, vectors[0], topK, ticker)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("failed to query index: %w", err)
	}
	return models.RetrievalResult{Chunks: chunks}, nil
}

// Summary reports what the index currently holds.
func (r *RAG) Summary(ctx context.Context) (models.IndexSummary, error) {
	count, err := r.index.Count(ctx)
	if err != nil {
		return models.IndexSummary{}, err
	}
	tickers, err := r.index.Tickers(ctx)
	if err != nil {
		return models.IndexSummary{}, err
	}
	return models.IndexSummary{Records: count, Tickers: tickers}, nil
}
