package chunker

import (
	"fmt"
	"strings"
)

type ChunkerConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Chunker splits filing text into overlapping spans. Offsets are byte
// offsets; SEC full-submission text is ASCII-dominated so the window
// arithmetic matches character counts in practice.
type Chunker struct {
	config ChunkerConfig
}

// NewWithConfig validates the window parameters. Overlap must be smaller
// than the chunk size or the start offset would never advance. A zero-value
// config gets the defaults (1000/200); setting ChunkSize explicitly with
// ChunkOverlap zero means no overlap.
func NewWithConfig(config ChunkerConfig) (*Chunker, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
		if config.ChunkOverlap == 0 {
			config.ChunkOverlap = 200
		}
	}
	if config.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative, got %d", config.ChunkOverlap)
	}
	if config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be less than chunk size %d", config.ChunkOverlap, config.ChunkSize)
	}
	return &Chunker{config: config}, nil
}

// Split walks the text with a window of ChunkSize bytes. When the window
// stops short of the end of the text, the cut is pulled back to just after
// the last '.' in the window, provided that period sits past the halfway
// point. The next window starts overlap bytes before the previous cut, so
// consecutive chunks share text and no span of the source is skipped.
//
// Empty text yields no chunks; text shorter than ChunkSize yields one.
func (c *Chunker) Split(text string) []string {
	var chunks []string

	size := c.config.ChunkSize
	overlap := c.config.ChunkOverlap

	start := 0
	for start < len(text) {
		end := start + size
		if end < len(text) {
			// pull the cut back to the last sentence terminator in the
			// window, but only when it sits past the halfway point and the
			// snapped cut still clears the overlap; a shorter snap would
			// move the next start backward and the walk would never finish
			if period := strings.LastIndexByte(text[start:end], '.'); period*2 > size && period+1 > overlap {
				end = start + period + 1
			}
			chunks = append(chunks, strings.TrimSpace(text[start:end]))
		} else {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
		}
		// overlap is measured from the actual cut, so a snapped boundary
		// shifts every later window with it
		start = end - overlap
	}

	return chunks
}

// ChunkSize returns the configured nominal window size.
func (c *Chunker) ChunkSize() int { return c.config.ChunkSize }

// ChunkOverlap returns the configured overlap between consecutive chunks.
func (c *Chunker) ChunkOverlap() int { return c.config.ChunkOverlap }
