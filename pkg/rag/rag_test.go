package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/creditrag/pkg/llm"
	"github.com/finsight/creditrag/pkg/rag"
	"github.com/finsight/creditrag/pkg/store"
)

const testDim = 32

func newTestEngine(t *testing.T, workers int) (*rag.RAG, *store.MemoryIndex) {
	t.Helper()
	idx, err := store.NewMemoryIndex(store.MemoryIndexConfig{VectorDim: testDim})
	require.NoError(t, err)

	engine, err := rag.NewWithConfig(rag.RAGConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Workers:      workers,
	}, llm.LocalFactory(testDim), idx)
	require.NoError(t, err)
	return engine, idx
}

func TestIngestAndRetrieve_EndToEnd(t *testing.T) {
	engine, _ := newTestEngine(t, 1)
	ctx := context.Background()

	// 2500 chars, no periods: windows land at [0:1000] [800:1800]
	// [1600:2500] [2400:2500] = 4 chunks
	document := strings.Repeat("liquidity revenue earnings and capital ", 65)[:2500]

	count, err := engine.Ingest(ctx, "TEST", document, "")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	result, err := engine.Retrieve(ctx, "test query", "TEST", 2)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	for _, chunk := range result.Chunks {
		assert.Equal(t, "TEST", chunk.Metadata.Ticker)
		assert.Equal(t, "10-K", chunk.Metadata.DocType)
		assert.Equal(t, 4, chunk.Metadata.TotalChunks)
		assert.NotEmpty(t, chunk.Text)
	}
	assert.LessOrEqual(t, result.Chunks[0].Distance, result.Chunks[1].Distance)
}

func TestIngest_ParallelMatchesSerial(t *testing.T) {
	ctx := context.Background()
	document := strings.Repeat("debt obligations borrowings liquidity financing plans ", 100)

	serial, _ := newTestEngine(t, 1)
	parallel, _ := newTestEngine(t, 8)

	n1, err := serial.Ingest(ctx, "ACME", document, "10-K")
	require.NoError(t, err)
	n2, err := parallel.Ingest(ctx, "ACME", document, "10-K")
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	a, err := serial.Retrieve(ctx, "liquidity", "ACME", 5)
	require.NoError(t, err)
	b, err := parallel.Retrieve(ctx, "liquidity", "ACME", 5)
	require.NoError(t, err)
	assert.Equal(t, a, b, "worker count must not change retrieval results")
}

func TestIngest_ReingestFailsOnDuplicateIDs(t *testing.T) {
	engine, idx := newTestEngine(t, 1)
	ctx := context.Background()

	document := strings.Repeat("risk factors and market conditions ", 80)

	_, err := engine.Ingest(ctx, "AAPL", document, "10-K")
	require.NoError(t, err)

	countBefore, err := idx.Count(ctx)
	require.NoError(t, err)

	_, err = engine.Ingest(ctx, "AAPL", document, "10-K")
	var dup *store.DuplicateIDError
	require.ErrorAs(t, err, &dup)

	countAfter, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter)
}

func TestIngest_EmptyDocument(t *testing.T) {
	engine, idx := newTestEngine(t, 1)

	count, err := engine.Ingest(context.Background(), "AAPL", "", "10-K")
	require.NoError(t, err)
	assert.Zero(t, count)

	stored, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stored)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t, 1)

	_, err := engine.Retrieve(context.Background(), "   ", "", 5)
	assert.ErrorIs(t, err, rag.ErrEmptyQuery)
}

func TestRetrieve_TickerFilterExcludesOtherCompanies(t *testing.T) {
	engine, _ := newTestEngine(t, 1)
	ctx := context.Background()

	_, err := engine.Ingest(ctx, "AAPL", strings.Repeat("apple hardware revenue ", 60), "10-K")
	require.NoError(t, err)
	_, err = engine.Ingest(ctx, "MSFT", strings.Repeat("microsoft cloud revenue ", 60), "10-K")
	require.NoError(t, err)

	result, err := engine.Retrieve(ctx, "revenue", "AAPL", 10)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	for _, chunk := range result.Chunks {
		assert.Equal(t, "AAPL", chunk.Metadata.Ticker)
	}
}

func TestIngestBatch_SkipsFailedTickersAndContinues(t *testing.T) {
	engine, _ := newTestEngine(t, 1)
	ctx := context.Background()

	notFound := errors.New("no 10-K filing found")
	filings := map[string]string{
		"AAPL": strings.Repeat("apple filing text ", 80),
		"TSLA": strings.Repeat("tesla filing text ", 80),
	}

	counts := engine.IngestBatch(ctx, []string{"AAPL", "MISSING", "TSLA"}, func(ctx context.Context, ticker string) (string, error) {
		text, ok := filings[ticker]
		if !ok {
			return "", notFound
		}
		return text, nil
	})

	assert.Len(t, counts, 2)
	assert.Contains(t, counts, "AAPL")
	assert.Contains(t, counts, "TSLA")
	assert.NotContains(t, counts, "MISSING")
}

func TestSummary(t *testing.T) {
	engine, _ := newTestEngine(t, 1)
	ctx := context.Background()

	_, err := engine.Ingest(ctx, "MSFT", strings.Repeat("microsoft filing ", 80), "10-K")
	require.NoError(t, err)
	_, err = engine.Ingest(ctx, "AAPL", strings.Repeat("apple filing ", 80), "10-K")
	require.NoError(t, err)

	summary, err := engine.Summary(ctx)
	require.NoError(t, err)
	assert.Greater(t, summary.Records, 0)
	assert.Equal(t, []string{"AAPL", "MSFT"}, summary.Tickers)
}

func TestTopicQueries_WordingPreserved(t *testing.T) {
	// The exact wording drives retrieval; it must not drift.
	assert.Equal(t,
		"risk factors business risks financial risks market risks operational risks",
		rag.RiskFactorsQuery)
	assert.Equal(t,
		"revenue earnings profit loss performance results operations financial condition",
		rag.FinancialPerformanceQuery)
	assert.Equal(t,
		"debt obligations borrowings liquidity capital structure financing",
		rag.DebtDiscussionQuery)
}

func TestTopicHelpers_DefaultToThreeResults(t *testing.T) {
	engine, _ := newTestEngine(t, 1)
	ctx := context.Background()

	_, err := engine.Ingest(ctx, "AAPL", strings.Repeat("risk factors and debt discussion text ", 200), "10-K")
	require.NoError(t, err)

	result, err := engine.GetRiskFactors(ctx, "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 3)

	result, err = engine.GetDebtDiscussion(ctx, "AAPL", 2)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
}
