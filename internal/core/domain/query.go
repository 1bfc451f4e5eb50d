package domain

import "time"

// QueryRequest is a natural-language question against the knowledge base
type QueryRequest struct {
	Query       string  `json:"query"`
	TopK        int     `json:"top_k"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

// GenerationParams builds validated generation parameters from the request,
// filling unset fields with defaults.
func (r QueryRequest) GenerationParams() GenerationParams {
	p := DefaultGenerationParams()
	if r.Temperature != 0 {
		p.Temperature = r.Temperature
	}
	if r.MaxTokens != 0 {
		p.MaxTokens = r.MaxTokens
	}
	return p
}

// QueryResult is a grounded (or fallback ungrounded) answer to a query
type QueryResult struct {
	Query     string           `json:"query"`
	Answer    string           `json:"answer"`
	Grounded  bool             `json:"grounded"`
	Model     string           `json:"model"`
	Usage     Usage            `json:"usage"`
	Context   []RetrievedChunk `json:"context,omitempty"`
	Took      time.Duration    `json:"took"`
	CreatedAt time.Time        `json:"created_at"`
}
