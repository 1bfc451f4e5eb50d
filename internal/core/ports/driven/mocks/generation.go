package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockGenerationService is a mock implementation of GenerationService for testing
type MockGenerationService struct {
	mu        sync.Mutex
	model     string
	answer    string
	fragments []string
	failures  int
	failWith  error
	prompts   []string // prompts received, for assertions
}

// NewMockGenerationService creates a new MockGenerationService
func NewMockGenerationService() *MockGenerationService {
	return &MockGenerationService{
		model:     "mock-generation-model",
		answer:    "mock answer",
		fragments: []string{"mock ", "answer"},
		failWith:  domain.ErrUpstreamUnavailable,
	}
}

func (m *MockGenerationService) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.Answer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := m.record(prompt); err != nil {
		return nil, err
	}
	return &domain.Answer{
		Text:  m.answer,
		Model: m.model,
		Usage: domain.Usage{
			PromptTokens:     len(strings.Fields(prompt)),
			CompletionTokens: len(strings.Fields(m.answer)),
		},
	}, nil
}

func (m *MockGenerationService) GenerateStream(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.AnswerStream, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := m.record(prompt); err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream := domain.NewAnswerStream(cancel)

	m.mu.Lock()
	fragments := append([]string(nil), m.fragments...)
	m.mu.Unlock()

	go func() {
		for _, text := range fragments {
			select {
			case <-streamCtx.Done():
				stream.CloseSend(streamCtx.Err())
				return
			default:
			}
			if !stream.Send(domain.Fragment{Text: text}) {
				stream.CloseSend(streamCtx.Err())
				return
			}
		}
		stream.Send(domain.Fragment{Done: true, Usage: &domain.Usage{CompletionTokens: len(fragments)}})
		stream.CloseSend(nil)
	}()

	return stream, nil
}

func (m *MockGenerationService) Model() string {
	return m.model
}

func (m *MockGenerationService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockGenerationService) Close() error {
	return nil
}

func (m *MockGenerationService) record(prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.failures > 0 {
		m.failures--
		return m.failWith
	}
	return nil
}

// Helper methods for testing

// SetAnswer sets the canned non-streaming answer
func (m *MockGenerationService) SetAnswer(answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer = answer
}

// SetFragments sets the canned stream fragments
func (m *MockGenerationService) SetFragments(fragments ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = fragments
}

// FailNext makes the next n calls fail with err
func (m *MockGenerationService) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failWith = err
}

// Prompts returns the prompts received so far
func (m *MockGenerationService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
