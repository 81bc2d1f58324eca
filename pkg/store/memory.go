package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/finsight/creditrag/internal/models"
)

// MemoryIndexConfig configures an in-process vector index.
type MemoryIndexConfig struct {
	// Path, when set, is the file the index loads at startup and rewrites
	// after every successful Add, so records survive restarts.
	Path      string
	VectorDim int
	Metric    Metric
}

// MemoryIndex is a brute-force vector index for offline runs and tests. It
// honors the same contract as the pgvector store: append-only records,
// duplicate IDs rejected with no partial write, ticker filtering inside the
// query, ascending-distance results with insertion-order tie-breaks.
//
// A single mutex serializes all access; concurrent writers from other
// processes are not coordinated.
type MemoryIndex struct {
	config  MemoryIndexConfig
	mu      sync.RWMutex
	records []models.IndexRecord
	byID    map[string]struct{}
}

// NewMemoryIndex creates the index and, when a path is configured, loads
// any previously persisted records from it.
func NewMemoryIndex(config MemoryIndexConfig) (*MemoryIndex, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}
	if config.Metric == "" {
		config.Metric = MetricCosine
	}
	if config.Metric != MetricCosine && config.Metric != MetricL2 {
		return nil, fmt.Errorf("unsupported distance metric %q", config.Metric)
	}

	m := &MemoryIndex{
		config: config,
		byID:   make(map[string]struct{}),
	}
	if config.Path != "" {
		if err := m.load(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add appends records. The whole batch is validated before any state
// changes, so a duplicate or malformed record leaves the index untouched.
func (m *MemoryIndex) Add(ctx context.Context, records []models.IndexRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != m.config.VectorDim {
			return fmt.Errorf("record %q: vector dimension mismatch: got %d, expected %d",
				rec.ID, len(rec.Embedding), m.config.VectorDim)
		}
		if _, ok := m.byID[rec.ID]; ok {
			return &DuplicateIDError{ID: rec.ID}
		}
		if _, ok := seen[rec.ID]; ok {
			return &DuplicateIDError{ID: rec.ID}
		}
		seen[rec.ID] = struct{}{}
	}

	staged := len(m.records)
	for _, rec := range records {
		vec := make([]float32, len(rec.Embedding))
		copy(vec, rec.Embedding)
		rec.Embedding = vec
		m.records = append(m.records, rec)
		m.byID[rec.ID] = struct{}{}
	}

	if m.config.Path != "" {
		if err := m.save(); err != nil {
			// unwind the append so memory keeps matching the file and a
			// retry of the same batch is not misreported as a duplicate
			for _, rec := range m.records[staged:] {
				delete(m.byID, rec.ID)
			}
			m.records = m.records[:staged]
			return fmt.Errorf("failed to persist index: %w", err)
		}
	}
	return nil
}

// Query returns up to topK records nearest to the embedding, ascending by
// distance. A non-empty ticker restricts candidates before ranking, so the
// cap applies to the filtered set.
func (m *MemoryIndex) Query(ctx context.Context, embedding []float32, topK int, ticker string) ([]models.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(embedding) != m.config.VectorDim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(embedding), m.config.VectorDim)
	}
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []models.ScoredChunk
	for _, rec := range m.records {
		if ticker != "" && rec.Metadata.Ticker != ticker {
			continue
		}
		hits = append(hits, models.ScoredChunk{
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Distance: m.distance(embedding, rec.Embedding),
		})
	}

	// stable keeps insertion order for equal distances
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) distance(a, b []float32) float32 {
	switch m.config.Metric {
	case MetricL2:
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	default:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i] * b[i])
			na += float64(a[i] * a[i])
			nb += float64(b[i] * b[i])
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
	}
}

// Count returns the number of records in the index.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Tickers returns the distinct tickers present, sorted.
func (m *MemoryIndex) Tickers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var tickers []string
	for _, rec := range m.records {
		if _, ok := seen[rec.Metadata.Ticker]; !ok {
			seen[rec.Metadata.Ticker] = struct{}{}
			tickers = append(tickers, rec.Metadata.Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// Close is a no-op; the file on disk is rewritten on every Add.
func (m *MemoryIndex) Close() error {
	return nil
}

// save rewrites the whole record file. Called with the lock held.
func (m *MemoryIndex) save() error {
	if err := os.MkdirAll(filepath.Dir(m.config.Path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := m.config.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	enc := gob.NewEncoder(f)
	if err := enc.Encode(m.config.VectorDim); err == nil {
		err = enc.Encode(m.records)
	}
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, m.config.Path)
}

func (m *MemoryIndex) load() error {
	f, err := os.Open(m.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	var dim int
	if err := dec.Decode(&dim); err != nil {
		return fmt.Errorf("decode index dimensions: %w", err)
	}
	if dim != m.config.VectorDim {
		return fmt.Errorf("index dimension mismatch: file has %d, index expects %d", dim, m.config.VectorDim)
	}
	var records []models.IndexRecord
	if err := dec.Decode(&records); err != nil {
		return fmt.Errorf("decode index records: %w", err)
	}
	m.records = records
	for _, rec := range records {
		m.byID[rec.ID] = struct{}{}
	}
	return nil
}
