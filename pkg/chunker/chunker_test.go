package chunker_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/creditrag/pkg/chunker"
)

func TestNewWithConfig_RejectsOverlapGreaterThanSize(t *testing.T) {
	_, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.Error(t, err)

	_, err = chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 150})
	assert.Error(t, err)

	_, err = chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 50})
	assert.NoError(t, err)
}

func TestNewWithConfig_ZeroOverlapRespected(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, c.ChunkOverlap())

	chunks := c.Split(strings.Repeat("x", 250))
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)

	// a fully zero config still means the defaults
	c, err = chunker.NewWithConfig(chunker.ChunkerConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1000, c.ChunkSize())
	assert.Equal(t, 200, c.ChunkOverlap())
}

func TestSplit_EmptyText(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{})
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)

	text := "  The company reported strong revenue growth.  "
	chunks := c.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0])
}

func TestSplit_SentenceBoundarySnapping(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 20, ChunkOverlap: 5})
	require.NoError(t, err)

	chunks := c.Split("Sentence one. Sentence two. Sentence three.")

	// The first window covers "Sentence one. Senten"; its last period is
	// past the halfway mark, so the chunk snaps to end just after it.
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Sentence one.", chunks[0])
	assert.Equal(t, []string{
		"Sentence one.",
		"one. Sentence two.",
		"two. Sentence three",
		"three.",
	}, chunks)
}

func TestSplit_TerminatesWhenOverlapExceedsHalfWindow(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 20, ChunkOverlap: 15})
	require.NoError(t, err)

	// Every window's last period lands just past the midpoint but short of
	// the overlap, a snap there used to move the next start backward and
	// the walk never reached the end of the text.
	text := strings.Repeat("abcdefghij.", 10)

	done := make(chan []string, 1)
	go func() { done <- c.Split(text) }()

	select {
	case chunks := <-done:
		require.NotEmpty(t, chunks)
		assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]),
			"final chunk must reach the end of the text")
	case <-time.After(5 * time.Second):
		t.Fatal("Split did not finish")
	}
}

func TestSplit_FourChunksFor2500Chars(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)

	// No periods, so no boundary snapping: windows land at
	// [0:1000] [800:1800] [1600:2500] [2400:2500].
	text := strings.Repeat("x", 2500)
	chunks := c.Split(text)

	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 900)
	assert.Len(t, chunks[3], 100)
}

func TestSplit_CoverageWithoutGaps(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	// Sentences long enough that no period falls past a window's midpoint,
	// keeping the chunk count at the nominal formula.
	text := strings.Repeat("abcdefghi ", 55) // 550 chars, no periods
	chunks := c.Split(text)

	// ceil((550-20)/(100-20)) = 7, within ±1 for boundary effects
	assert.InDelta(t, 7, len(chunks), 1)

	// Every chunk reappears verbatim in the source and consecutive chunks
	// overlap, so concatenation covers the whole text.
	offset := 0
	for i, chunk := range chunks {
		idx := strings.Index(text[offset:], chunk)
		require.GreaterOrEqual(t, idx, 0, "chunk %d not found in remaining text", i)
		offset += idx
	}
}

func TestSplit_OverlapSharedBetweenChunks(t *testing.T) {
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 50, ChunkOverlap: 10})
	require.NoError(t, err)

	text := strings.Repeat("0123456789", 12)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-10:]
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d does not start with the previous chunk's overlap", i)
	}
}
