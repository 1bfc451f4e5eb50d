package domain

import "sync"

// RuntimeConfig tracks which AI capabilities are currently available.
// Embedding and generation backends can be swapped at runtime, so the
// flags are guarded for concurrent readers.
type RuntimeConfig struct {
	mu sync.RWMutex

	embeddingAvailable  bool
	generationAvailable bool
	embeddingModel      string
	generationModel     string
}

// NewRuntimeConfig creates a config with no capabilities available.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{}
}

// EmbeddingAvailable reports whether an embedding backend is configured.
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// GenerationAvailable reports whether a generation backend is configured.
func (c *RuntimeConfig) GenerationAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationAvailable
}

// SetEmbeddingAvailable updates the embedding capability flag and model.
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
	c.embeddingModel = model
}

// SetGenerationAvailable updates the generation capability flag and model.
func (c *RuntimeConfig) SetGenerationAvailable(available bool, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generationAvailable = available
	c.generationModel = model
}

// Models returns the configured embedding and generation model names.
func (c *RuntimeConfig) Models() (embedding, generation string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingModel, c.generationModel
}
