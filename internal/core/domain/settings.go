package domain

// AIProvider identifies an AI backend vendor
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// EmbeddingSettings configures the embedding backend
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"`
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured reports whether the settings name a usable backend
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// GenerationSettings configures the generation backend
type GenerationSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"`
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured reports whether the settings name a usable backend
func (s *GenerationSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}
