package driven

import "github.com/custodia-labs/ragcore/internal/core/domain"

// AIServiceFactory creates AI backends from settings
type AIServiceFactory interface {
	// CreateEmbeddingService builds an embedding backend. Returns
	// (nil, nil) when the settings are not configured.
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateGenerationService builds a generation backend. Returns
	// (nil, nil) when the settings are not configured.
	CreateGenerationService(settings *domain.GenerationSettings) (GenerationService, error)
}
