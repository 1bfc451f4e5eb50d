package driven

// Segment is a span of document text flowing through the post-processing
// pipeline before it becomes a persisted chunk.
type Segment struct {
	// Content is the segment text
	Content string

	// Position is the segment's sequence within the document
	Position int

	// StartOffset is the character offset into the source text
	StartOffset int

	// EndOffset is the exclusive end offset into the source text
	EndOffset int
}

// PostProcessor transforms segments in the processing pipeline
type PostProcessor interface {
	// Process transforms the segments
	Process(segments []Segment) []Segment

	// Name returns a unique processor name
	Name() string

	// Order determines execution order (lower runs first)
	Order() int
}

// PostProcessorPipeline chains post-processors, starting with a chunker
type PostProcessorPipeline interface {
	// Process splits and transforms raw document content into segments
	// ready for embedding and indexing
	Process(content string) []Segment

	// List returns processor names in execution order
	List() []string
}
