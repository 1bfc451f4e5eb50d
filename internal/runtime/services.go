// Package runtime holds the registry of dynamically configurable
// services. The embedding and generation backends can be replaced
// while the process is running.
package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Services holds references to the AI backends. Thread-safe for
// concurrent access; either service may be nil when unconfigured.
type Services struct {
	mu sync.RWMutex

	config *domain.RuntimeConfig

	embeddingService  driven.EmbeddingService
	generationService driven.GenerationService
}

// NewServices creates a registry with no backends configured.
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{config: config}
}

// Config returns the runtime configuration.
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding backend (may be nil).
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// GenerationService returns the current generation backend (may be nil).
func (s *Services) GenerationService() driven.GenerationService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generationService
}

// SetEmbeddingService replaces the embedding backend, closing the old
// one if present.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}
	s.embeddingService = svc

	model := ""
	if svc != nil {
		model = svc.Model()
	}
	s.config.SetEmbeddingAvailable(svc != nil, model)
}

// SetGenerationService replaces the generation backend, closing the old
// one if present.
func (s *Services) SetGenerationService(svc driven.GenerationService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generationService != nil {
		_ = s.generationService.Close()
	}
	s.generationService = svc

	model := ""
	if svc != nil {
		model = svc.Model()
	}
	s.config.SetGenerationAvailable(svc != nil, model)
}

// ValidateAndSetEmbedding checks connectivity before installing the
// embedding backend. A nil service clears the slot.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetGeneration checks connectivity before installing the
// generation backend. A nil service clears the slot.
func (s *Services) ValidateAndSetGeneration(ctx context.Context, svc driven.GenerationService) error {
	if svc == nil {
		s.SetGenerationService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetGenerationService(svc)
	return nil
}

// Close shuts down all configured backends.
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.generationService != nil {
		_ = s.generationService.Close()
		s.generationService = nil
	}

	s.config.SetEmbeddingAvailable(false, "")
	s.config.SetGenerationAvailable(false, "")
	return nil
}
