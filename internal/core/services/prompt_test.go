package services

import (
	"strings"
	"testing"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func rankedChunks() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{Content: "Go compiles to native code.", Score: 0.95, DocumentID: "doc-1", Filename: "go.txt", Position: 0},
		{Content: "Channels synchronise goroutines.", Score: 0.80, DocumentID: "doc-1", Filename: "go.txt", Position: 3},
		{Content: "Rust has no garbage collector.", Score: 0.60, DocumentID: "doc-2", Filename: "rust.txt", Position: 1},
	}
}

func TestPromptAssembler_IncludesContextAndQuestion(t *testing.T) {
	a := NewPromptAssembler(0)
	prompt, kept := a.Assemble("how do goroutines talk?", rankedChunks())

	if len(kept) != 3 {
		t.Fatalf("kept %d chunks, want 3", len(kept))
	}
	for _, want := range []string{
		contextBegin,
		contextEnd,
		"Go compiles to native code.",
		"(source: go.txt, chunk 3)",
		"(source: rust.txt, chunk 1)",
		"Question: how do goroutines talk?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Context comes before the question, question before the answer cue.
	if strings.Index(prompt, contextEnd) > strings.Index(prompt, "Question:") {
		t.Error("context block does not precede the question")
	}
	if !strings.HasSuffix(prompt, "Answer:") {
		t.Error("prompt does not end with the answer cue")
	}
}

func TestPromptAssembler_IsDeterministic(t *testing.T) {
	a := NewPromptAssembler(0)
	first, _ := a.Assemble("q", rankedChunks())
	for i := 0; i < 5; i++ {
		again, _ := a.Assemble("q", rankedChunks())
		if again != first {
			t.Fatal("identical inputs produced different prompts")
		}
	}
}

func TestPromptAssembler_BudgetDropsLowestScoredFirst(t *testing.T) {
	chunks := rankedChunks()
	budget := len(chunks[0].Content) + len(chunks[1].Content)
	a := NewPromptAssembler(budget)

	prompt, kept := a.Assemble("q", chunks)
	if len(kept) != 2 {
		t.Fatalf("kept %d chunks, want 2", len(kept))
	}
	if kept[0].Score < kept[1].Score {
		t.Error("kept chunks lost their rank order")
	}
	if strings.Contains(prompt, "Rust has no garbage collector.") {
		t.Error("lowest-scored chunk survived the budget cut")
	}
	if !strings.Contains(prompt, "Go compiles to native code.") {
		t.Error("highest-scored chunk was dropped")
	}
}

func TestPromptAssembler_OversizedSingleChunkSurvives(t *testing.T) {
	a := NewPromptAssembler(10)
	chunks := []domain.RetrievedChunk{
		{Content: strings.Repeat("x", 100), Score: 0.9, DocumentID: "doc-1"},
	}
	_, kept := a.Assemble("q", chunks)
	if len(kept) != 1 {
		t.Errorf("kept %d chunks, want 1 (never empty the context)", len(kept))
	}
}

func TestPromptAssembler_FallsBackToDocumentID(t *testing.T) {
	a := NewPromptAssembler(0)
	chunks := []domain.RetrievedChunk{
		{Content: "some text", Score: 0.9, DocumentID: "doc-42", Position: 0},
	}
	prompt, _ := a.Assemble("q", chunks)
	if !strings.Contains(prompt, "(source: doc-42, chunk 0)") {
		t.Errorf("prompt missing document-id attribution:\n%s", prompt)
	}
}

func TestPromptAssembler_Ungrounded(t *testing.T) {
	a := NewPromptAssembler(0)
	prompt := a.AssembleUngrounded("what is Go?")
	if strings.Contains(prompt, contextBegin) {
		t.Error("ungrounded prompt contains a context block")
	}
	if !strings.Contains(prompt, "Question: what is Go?") {
		t.Error("ungrounded prompt missing the question")
	}
}
