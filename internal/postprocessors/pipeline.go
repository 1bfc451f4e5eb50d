package postprocessors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains multiple post-processors in order, starting with a Chunker.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
// Input is the raw document content; output is the segments ready for
// embedding and indexing. Deterministic: identical content always yields
// identical segments.
func (p *Pipeline) Process(content string) []driven.Segment {
	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	if content == "" {
		return nil
	}

	// Start with a single segment containing all content
	segments := []driven.Segment{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   len(content),
		},
	}

	for _, proc := range processors {
		segments = proc.Process(segments)
	}

	// Reassign positions after filtering stages
	for i := range segments {
		segments[i].Position = i
	}

	return segments
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default processors.
func DefaultPipeline() (*Pipeline, error) {
	return BuildPipeline(DefaultChunkConfig())
}

// BuildPipeline creates the standard chunk-trim-filter pipeline for the
// given chunk configuration.
func BuildPipeline(cfg ChunkConfig) (*Pipeline, error) {
	chunker, err := NewChunker(cfg)
	if err != nil {
		return nil, err
	}

	p := NewPipeline()
	p.Add(chunker)
	p.Add(NewEdgeTrimmer())
	if cfg.MinChunkLength > 0 {
		p.Add(NewShortSegmentFilter(cfg.MinChunkLength))
	}
	return p, nil
}

// EdgeTrimmer trims leading and trailing whitespace from each segment,
// keeping the source offsets accurate as it does so. Segments that are
// all whitespace are dropped.
type EdgeTrimmer struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*EdgeTrimmer)(nil)

// NewEdgeTrimmer creates a new edge trimmer.
func NewEdgeTrimmer() *EdgeTrimmer {
	return &EdgeTrimmer{}
}

// Process trims segment edges, adjusting offsets to match.
func (e *EdgeTrimmer) Process(segments []driven.Segment) []driven.Segment {
	result := make([]driven.Segment, 0, len(segments))

	for _, seg := range segments {
		trimmedLeft := strings.TrimLeft(seg.Content, " \t\r\n")
		lead := len(seg.Content) - len(trimmedLeft)
		trimmed := strings.TrimRight(trimmedLeft, " \t\r\n")

		if trimmed == "" {
			continue
		}

		seg.StartOffset += lead
		seg.EndOffset = seg.StartOffset + len(trimmed)
		seg.Content = trimmed
		result = append(result, seg)
	}

	return result
}

// Name returns the processor name.
func (e *EdgeTrimmer) Name() string {
	return "edge-trimmer"
}

// Order returns 5 - runs between chunker and filters.
func (e *EdgeTrimmer) Order() int {
	return 5
}

// ShortSegmentFilter drops segments too short to carry retrievable
// meaning. Embedding near-empty fragments wastes index space and skews
// similarity scores.
type ShortSegmentFilter struct {
	minLength int
}

// Verify interface compliance
var _ driven.PostProcessor = (*ShortSegmentFilter)(nil)

// NewShortSegmentFilter creates a filter dropping segments shorter than minLength.
func NewShortSegmentFilter(minLength int) *ShortSegmentFilter {
	return &ShortSegmentFilter{minLength: minLength}
}

// Process drops segments below the minimum length.
func (f *ShortSegmentFilter) Process(segments []driven.Segment) []driven.Segment {
	result := make([]driven.Segment, 0, len(segments))
	for _, seg := range segments {
		if len(seg.Content) >= f.minLength {
			result = append(result, seg)
		}
	}
	return result
}

// Name returns the processor name.
func (f *ShortSegmentFilter) Name() string {
	return "short-segment-filter"
}

// Order returns 10 - runs after trimming.
func (f *ShortSegmentFilter) Order() int {
	return 10
}
