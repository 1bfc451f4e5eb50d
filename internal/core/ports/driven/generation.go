package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// GenerationService produces answers from a remote text-generation model
type GenerationService interface {
	// Generate sends the prompt and returns the full answer with usage
	Generate(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.Answer, error)

	// GenerateStream sends the prompt and returns a cancellable stream of
	// answer fragments. Cancelling the stream (or ctx) aborts the request
	// and releases the underlying connection.
	GenerateStream(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.AnswerStream, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the generation service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generation service
	Close() error
}
