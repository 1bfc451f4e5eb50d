package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func TestDocument_DeleteRemovesIndexEntries(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()
	svc := NewDocumentService(f.store, f.index, nil)

	id, err := f.orch.SubmitDocument(ctx, ingestTestText, "go.txt")
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}
	if err := f.orch.IngestDocument(ctx, id); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	count, _ := f.index.Count(ctx, id)
	if count == 0 {
		t.Fatal("no index entries after ingestion")
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.Get(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	count, _ = f.index.Count(ctx, id)
	if count != 0 {
		t.Errorf("index holds %d entries after delete, want 0", count)
	}
}

func TestDocument_DeleteUnknown(t *testing.T) {
	f := newIngestFixture(t)
	svc := NewDocumentService(f.store, f.index, nil)

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDocument_ListIncludesStatus(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()
	svc := NewDocumentService(f.store, f.index, nil)

	readyID, _ := f.orch.SubmitDocument(ctx, ingestTestText, "ready.txt")
	if err := f.orch.IngestDocument(ctx, readyID); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if _, err := f.orch.SubmitDocument(ctx, ingestTestText, "pending.txt"); err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}

	docs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("List() returned %d documents, want 2", len(docs))
	}
	statuses := map[string]domain.DocumentStatus{}
	for _, d := range docs {
		statuses[d.Filename] = d.Status
	}
	if statuses["ready.txt"] != domain.DocumentStatusReady {
		t.Errorf("ready.txt status = %s", statuses["ready.txt"])
	}
	if statuses["pending.txt"] != domain.DocumentStatusPending {
		t.Errorf("pending.txt status = %s", statuses["pending.txt"])
	}
}
