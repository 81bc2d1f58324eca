package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/finsight/creditrag/internal/models"
)

// VectorStoreConfig configures the pgvector-backed index.
type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int // rows per sub-batch within one transaction
	Metric     Metric
}

// VectorStore is the persistent vector index, backed by PostgreSQL with the
// pgvector extension. Adds are transactional: within one call either every
// record lands or none do. Concurrent writers are serialized by PostgreSQL
// itself; this store assumes a single logical writer at a time.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

// NewWithConfig connects to PostgreSQL and ensures the extension, table and
// vector index exist.
func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "filing_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}
	if config.BatchSize == 0 {
		config.BatchSize = 5000
	}
	if config.Metric == "" {
		config.Metric = MetricCosine
	}
	if config.Metric != MetricCosine && config.Metric != MetricL2 {
		return nil, fmt.Errorf("unsupported distance metric %q", config.Metric)
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	// seq records insertion order and breaks distance ties; id carries the
	// deterministic {ticker}_{doc_type}_{chunk} key, so re-ingestion trips
	// the primary key instead of duplicating rows.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			content TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err = vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	ops := "vector_cosine_ops"
	if vs.config.Metric == MetricL2 {
		ops = "vector_l2_ops"
	}
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding %s)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName, ops)

	if _, err = vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	tickerIndex := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_ticker_idx ON %s (ticker)",
		vs.config.TableName, vs.config.TableName)
	if _, err = vs.pool.Exec(ctx, tickerIndex); err != nil {
		return fmt.Errorf("failed to create ticker index: %w", err)
	}

	return nil
}

// Add appends records inside one transaction, inserting in sub-batches of
// BatchSize rows. A duplicate ID rolls the whole transaction back and
// surfaces as a DuplicateIDError.
func (vs *VectorStore) Add(ctx context.Context, records []models.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, ticker, doc_type, chunk_index, total_chunks, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vs.config.TableName)

	for i := 0; i < len(records); i += vs.config.BatchSize {
		end := i + vs.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		for _, rec := range records[i:end] {
			if len(rec.Embedding) != vs.config.VectorDim {
				return fmt.Errorf("record %q: vector dimension mismatch: got %d, expected %d",
					rec.ID, len(rec.Embedding), vs.config.VectorDim)
			}
			_, err := tx.Exec(ctx, stmt,
				rec.ID,
				rec.Metadata.Ticker,
				rec.Metadata.DocType,
				rec.Metadata.ChunkID,
				rec.Metadata.TotalChunks,
				sanitizeUTF8(rec.Text),
				pgvector.NewVector(rec.Embedding),
			)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return &DuplicateIDError{ID: rec.ID}
				}
				return fmt.Errorf("failed to insert record %q: %w", rec.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query returns up to topK nearest records, ascending by distance, ties
// broken by insertion order. A non-empty ticker filters inside the SQL, so
// the limit applies to the filtered candidate set.
func (vs *VectorStore) Query(ctx context.Context, embedding []float32, topK int, ticker string) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}

	op := "<=>"
	if vs.config.Metric == MetricL2 {
		op = "<->"
	}

	query := fmt.Sprintf(`
		SELECT content, ticker, doc_type, chunk_index, total_chunks, embedding %s $1 AS distance
		FROM %s
		WHERE $3::text = '' OR ticker = $3::text
		ORDER BY distance, seq
		LIMIT $2`,
		op, vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), topK, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var hits []models.ScoredChunk
	for rows.Next() {
		var hit models.ScoredChunk
		var distance float64
		err := rows.Scan(
			&hit.Text,
			&hit.Metadata.Ticker,
			&hit.Metadata.DocType,
			&hit.Metadata.ChunkID,
			&hit.Metadata.TotalChunks,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hit.Distance = float32(distance)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return hits, nil
}

// Count returns the number of stored records.
func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := vs.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Tickers returns the distinct tickers present, sorted.
func (vs *VectorStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := vs.pool.Query(ctx,
		fmt.Sprintf("SELECT DISTINCT ticker FROM %s ORDER BY ticker", vs.config.TableName))
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}

// Close releases the connection pool.
func (vs *VectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
