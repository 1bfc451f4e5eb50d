package domain

import "testing"

func TestDocumentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from DocumentStatus
		to   DocumentStatus
		want bool
	}{
		{"pending to chunking", DocumentStatusPending, DocumentStatusChunking, true},
		{"pending to failed", DocumentStatusPending, DocumentStatusFailed, true},
		{"pending to ready skips stages", DocumentStatusPending, DocumentStatusReady, false},
		{"chunking to embedding", DocumentStatusChunking, DocumentStatusEmbedding, true},
		{"chunking to failed", DocumentStatusChunking, DocumentStatusFailed, true},
		{"embedding to ready", DocumentStatusEmbedding, DocumentStatusReady, true},
		{"embedding to failed", DocumentStatusEmbedding, DocumentStatusFailed, true},
		{"ready is terminal", DocumentStatusReady, DocumentStatusPending, false},
		{"failed restarts from pending", DocumentStatusFailed, DocumentStatusPending, true},
		{"failed cannot jump to ready", DocumentStatusFailed, DocumentStatusReady, false},
		{"no backwards transition", DocumentStatusEmbedding, DocumentStatusChunking, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
