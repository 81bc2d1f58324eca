package models

import "fmt"

// ChunkMetadata describes where a chunk came from. Fields are fixed rather
// than a free-form map so schema drift is caught at compile time.
type ChunkMetadata struct {
	Ticker      string `json:"ticker"`
	DocType     string `json:"doc_type"`
	ChunkID     int    `json:"chunk_id"`
	TotalChunks int    `json:"total_chunks"`
}

// IndexRecord is the persisted unit of the vector index: one chunk of a
// filing together with its embedding. Records are append-only; the index
// never updates or deletes them.
type IndexRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
}

// RecordID builds the deterministic record ID "{ticker}_{docType}_{index}".
// Re-ingesting the same filing reproduces the same IDs, which the index
// rejects as duplicates.
func RecordID(ticker, docType string, index int) string {
	return fmt.Sprintf("%s_%s_%d", ticker, docType, index)
}

// ScoredChunk is a single retrieval hit. Distance is in the index's metric
// space; smaller means more similar.
type ScoredChunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float32       `json:"distance"`
}

// RetrievalResult is an ordered set of hits, ascending by distance.
type RetrievalResult struct {
	Chunks []ScoredChunk `json:"chunks"`
}

// IndexSummary reports what the index currently holds.
type IndexSummary struct {
	Records int      `json:"records"`
	Tickers []string `json:"tickers"`
}
