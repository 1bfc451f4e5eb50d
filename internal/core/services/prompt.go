package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

const (
	// DefaultMaxContextChars bounds the context block of an assembled
	// prompt. Chunks that do not fit are dropped lowest-score first.
	DefaultMaxContextChars = 12000

	contextHeader = "Answer the question using only the context below. " +
		"If the context does not contain the answer, say that you don't know."
	contextBegin = "--- BEGIN CONTEXT ---"
	contextEnd   = "--- END CONTEXT ---"
)

// PromptAssembler renders a query and its retrieved context into the
// prompt sent to the generation backend. Assembly is deterministic:
// the same query and chunks always produce the same prompt.
type PromptAssembler struct {
	maxContextChars int
}

// NewPromptAssembler creates an assembler with the given context
// budget. A non-positive budget uses DefaultMaxContextChars.
func NewPromptAssembler(maxContextChars int) *PromptAssembler {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &PromptAssembler{maxContextChars: maxContextChars}
}

// Assemble builds the grounded prompt. Chunks arrive ranked by score
// descending; when the context budget is exceeded the lowest-scored
// chunks are dropped first, and the survivors keep their rank order.
// Returns the prompt and the chunks that made it in.
func (a *PromptAssembler) Assemble(query string, chunks []domain.RetrievedChunk) (string, []domain.RetrievedChunk) {
	kept := a.fitToBudget(chunks)

	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteString("\n\n")
	b.WriteString(contextBegin)
	b.WriteString("\n")
	for i, c := range kept {
		source := c.Filename
		if source == "" {
			source = c.DocumentID
		}
		fmt.Fprintf(&b, "[%d] (source: %s, chunk %d)\n%s\n", i+1, source, c.Position, c.Content)
		if i < len(kept)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString(contextEnd)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")

	return b.String(), kept
}

// AssembleUngrounded builds a prompt with no context block, used when
// retrieval found nothing and the caller allows ungrounded answers.
func (a *PromptAssembler) AssembleUngrounded(query string) string {
	return "Question: " + query + "\n\nAnswer:"
}

// fitToBudget trims the ranked chunk list until the combined content
// fits the context budget. At least one chunk always survives so a
// single oversized chunk cannot empty the context.
func (a *PromptAssembler) fitToBudget(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	if len(chunks) == 0 {
		return nil
	}
	total := 0
	for _, c := range chunks {
		total += len(c.Content)
	}
	kept := chunks
	for len(kept) > 1 && total > a.maxContextChars {
		total -= len(kept[len(kept)-1].Content)
		kept = kept[:len(kept)-1]
	}
	return kept
}
