package driving

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// QueryService answers natural-language questions against the index
type QueryService interface {
	// AnswerQuery runs retrieve, assemble and generate, returning the
	// answer together with the context it was grounded on. When
	// retrieval finds nothing and the ungrounded fallback is disabled it
	// returns domain.ErrNoContext.
	AnswerQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// AnswerQueryStream is the streaming variant. The retrieval result
	// is available immediately; answer fragments arrive on the stream.
	AnswerQueryStream(ctx context.Context, req domain.QueryRequest) (*domain.RetrievalResult, *domain.AnswerStream, error)

	// Retrieve runs retrieval only, without generation. Returns
	// domain.ErrNoResults when nothing clears the similarity floor.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error)
}
