package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
	"github.com/custodia-labs/ragcore/internal/runtime"
)

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

const defaultGenerateTimeout = 60 * time.Second

// queryService implements the QueryService interface: retrieve context,
// assemble the prompt, generate the answer.
type queryService struct {
	retriever *Retriever
	assembler *PromptAssembler
	services  *runtime.Services
	logger    *slog.Logger

	// allowUngrounded permits answering without retrieved context when
	// retrieval comes back empty. Off by default: an empty retrieval
	// then fails with domain.ErrNoContext.
	allowUngrounded bool

	// minScore is the similarity floor applied to answer-path
	// retrieval. Chunks scoring below it never reach the prompt.
	minScore        float64
	generateTimeout time.Duration
}

// QueryServiceConfig holds dependencies for the query service.
type QueryServiceConfig struct {
	Retriever *Retriever
	Assembler *PromptAssembler
	Services  *runtime.Services
	Logger    *slog.Logger

	// AllowUngrounded lets queries fall back to the model's own
	// knowledge when no context clears the similarity floor.
	AllowUngrounded bool

	// MinScore is the similarity floor for answer-path retrieval.
	// Matches scoring below it are treated as no context at all.
	MinScore float64
}

// NewQueryService creates a new QueryService.
func NewQueryService(cfg QueryServiceConfig) driving.QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &queryService{
		retriever:       cfg.Retriever,
		assembler:       cfg.Assembler,
		services:        cfg.Services,
		logger:          logger,
		allowUngrounded: cfg.AllowUngrounded,
		minScore:        cfg.MinScore,
		generateTimeout: defaultGenerateTimeout,
	}
}

// AnswerQuery runs the full query pipeline and returns the complete
// answer.
func (s *queryService) AnswerQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()

	prompt, contextChunks, params, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	generator := s.services.GenerationService()
	if generator == nil {
		return nil, fmt.Errorf("%w: no generation backend configured", domain.ErrUpstreamUnavailable)
	}

	var answer *domain.Answer
	err = withRetry(ctx, defaultRetryAttempts, defaultRetryBaseWait, func() error {
		genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
		defer cancel()
		var genErr error
		answer, genErr = generator.Generate(genCtx, prompt, params)
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Info("query answered",
		"grounded", len(contextChunks) > 0,
		"context_chunks", len(contextChunks),
		"took", time.Since(start))

	return &domain.QueryResult{
		Query:     req.Query,
		Answer:    answer.Text,
		Grounded:  len(contextChunks) > 0,
		Model:     answer.Model,
		Usage:     answer.Usage,
		Context:   contextChunks,
		Took:      time.Since(start),
		CreatedAt: time.Now(),
	}, nil
}

// AnswerQueryStream runs retrieval synchronously and starts streaming
// generation. The caller owns the returned stream and must drain or
// cancel it.
func (s *queryService) AnswerQueryStream(ctx context.Context, req domain.QueryRequest) (*domain.RetrievalResult, *domain.AnswerStream, error) {
	start := time.Now()

	prompt, contextChunks, params, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	generator := s.services.GenerationService()
	if generator == nil {
		return nil, nil, fmt.Errorf("%w: no generation backend configured", domain.ErrUpstreamUnavailable)
	}

	stream, err := generator.GenerateStream(ctx, prompt, params)
	if err != nil {
		return nil, nil, fmt.Errorf("start answer stream: %w", err)
	}

	retrieval := &domain.RetrievalResult{
		Query:  req.Query,
		Chunks: contextChunks,
		Took:   time.Since(start),
	}
	return retrieval, stream, nil
}

// Retrieve runs retrieval without generation.
func (s *queryService) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	result, err := s.retriever.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, fmt.Errorf("query %q: %w", query, domain.ErrNoResults)
	}
	return result, nil
}

// prepare validates the request, retrieves context and assembles the
// prompt shared by both answer paths.
func (s *queryService) prepare(ctx context.Context, req domain.QueryRequest) (string, []domain.RetrievedChunk, domain.GenerationParams, error) {
	var params domain.GenerationParams

	if strings.TrimSpace(req.Query) == "" {
		return "", nil, params, fmt.Errorf("%w: query is empty", domain.ErrEmptyInput)
	}
	params = req.GenerationParams()
	if err := params.Validate(); err != nil {
		return "", nil, params, err
	}

	retrieval, err := s.retriever.Retrieve(ctx, req.Query, domain.RetrieveOptions{
		TopK:     req.TopK,
		MinScore: s.minScore,
	})
	if err != nil {
		return "", nil, params, err
	}

	if retrieval.Empty() {
		if !s.allowUngrounded {
			return "", nil, params, fmt.Errorf("query %q: %w", req.Query, domain.ErrNoContext)
		}
		s.logger.Warn("answering without context", "query", req.Query)
		return s.assembler.AssembleUngrounded(req.Query), nil, params, nil
	}

	prompt, kept := s.assembler.Assemble(req.Query, retrieval.Chunks)
	return prompt, kept, params, nil
}
