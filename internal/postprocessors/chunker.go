package postprocessors

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// ChunkSize is the maximum characters per chunk. Must be > 0.
	ChunkSize int

	// Overlap is the exact character overlap between consecutive chunks.
	// Must satisfy 0 <= Overlap < ChunkSize.
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool

	// MinChunkLength drops chunks shorter than this after trimming.
	// Zero disables the filter.
	MinChunkLength int
}

// DefaultChunkConfig returns the deployment defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:          1000,
		Overlap:            200,
		PreserveSentences:  true,
		PreserveParagraphs: true,
		MinChunkLength:     50,
	}
}

// Validate checks the chunking constraints.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be > 0, got %d", domain.ErrInvalidInput, c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d out of range [0,%d)", domain.ErrInvalidInput, c.Overlap, c.ChunkSize)
	}
	return nil
}

// Chunker splits content into overlapping segments. Splits prefer
// paragraph, sentence and word boundaries, falling back to hard character
// cuts so that every segment is at most ChunkSize characters. Consecutive
// segments overlap by exactly Overlap characters (the last may be
// shorter). Splitting is deterministic, so re-indexing a document always
// reproduces the same boundaries.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Process splits each input segment into overlapping segments.
func (c *Chunker) Process(segments []driven.Segment) []driven.Segment {
	var result []driven.Segment
	position := 0

	for _, seg := range segments {
		result = append(result, c.split(seg.Content, seg.StartOffset, &position)...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0 - chunker runs first.
func (c *Chunker) Order() int {
	return 0
}

// split cuts content into overlapping segments. The next segment always
// starts exactly Overlap characters before the previous end, so a break
// point is only accepted when it leaves room to advance.
func (c *Chunker) split(content string, baseOffset int, position *int) []driven.Segment {
	if content == "" {
		return nil
	}

	size := c.config.ChunkSize
	overlap := c.config.Overlap

	var segments []driven.Segment
	start := 0

	for start < len(content) {
		end := start + size
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) {
			if bp := c.findBreakPoint(content, start, end); bp > start+overlap {
				end = bp
			}
		}

		segments = append(segments, driven.Segment{
			Content:     content[start:end],
			Position:    *position,
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		})
		*position++

		if end >= len(content) {
			break
		}

		// end > start+overlap holds above, so this always advances
		start = end - overlap
	}

	return segments
}

// findBreakPoint looks for a natural boundary near maxEnd, scanning the
// tail of the window.
func (c *Chunker) findBreakPoint(content string, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	window := content[searchStart:maxEnd]

	if c.config.PreserveParagraphs {
		if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
			return searchStart + idx + 2
		}
	}

	if c.config.PreserveSentences {
		enders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		best := -1
		for _, ender := range enders {
			if idx := strings.LastIndex(window, ender); idx != -1 {
				if pos := idx + len(ender); pos > best {
					best = pos
				}
			}
		}
		if best > 0 {
			return searchStart + best
		}
	}

	if idx := strings.LastIndex(window, " "); idx != -1 {
		return searchStart + idx + 1
	}

	return maxEnd
}
