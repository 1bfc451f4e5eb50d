package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Ensure OllamaLLM implements GenerationService
var _ driven.GenerationService = (*OllamaLLM)(nil)

// OllamaLLM implements GenerationService using a local Ollama server.
// Streaming responses arrive as newline-delimited JSON objects.
type OllamaLLM struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaLLM creates a new Ollama generation service
func NewOllamaLLM(baseURL, model string) (driven.GenerationService, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}

	return &OllamaLLM{
		baseURL: baseURL,
		model:   model,
		// No client timeout: generation calls are bounded by the
		// caller's context, and streams may legitimately run long.
		client: &http.Client{},
	}, nil
}

// ollamaGenerateRequest is the request body for /api/generate
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// ollamaGenerateResponse is one response object from /api/generate.
// Non-streaming calls return exactly one; streaming calls return one
// per line, with counters only on the final object.
type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// Generate produces a complete answer in one call
func (l *OllamaLLM) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.Answer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	resp, err := l.doRequest(ctx, prompt, params, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapTransportError(err)
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if genResp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", genResp.Error)
	}

	return &domain.Answer{
		Text:  genResp.Response,
		Model: l.model,
		Usage: domain.Usage{
			PromptTokens:     genResp.PromptEvalCount,
			CompletionTokens: genResp.EvalCount,
		},
	}, nil
}

// GenerateStream produces the answer incrementally. Cancelling the
// returned stream aborts the request and releases the connection.
func (l *OllamaLLM) GenerateStream(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.AnswerStream, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	resp, err := l.doRequest(streamCtx, prompt, params, true)
	if err != nil {
		cancel()
		return nil, err
	}

	stream := domain.NewAnswerStream(cancel)
	go l.consumeStream(resp.Body, stream)
	return stream, nil
}

// consumeStream reads NDJSON objects off the wire and forwards them as
// fragments until the final object or a consumer cancel.
func (l *OllamaLLM) consumeStream(body io.ReadCloser, stream *domain.AnswerStream) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			stream.CloseSend(fmt.Errorf("failed to parse stream chunk: %w", err))
			return
		}
		if chunk.Error != "" {
			stream.CloseSend(fmt.Errorf("ollama error: %s", chunk.Error))
			return
		}

		if chunk.Done {
			stream.Send(domain.Fragment{
				Done: true,
				Usage: &domain.Usage{
					PromptTokens:     chunk.PromptEvalCount,
					CompletionTokens: chunk.EvalCount,
				},
			})
			stream.CloseSend(nil)
			return
		}

		if !stream.Send(domain.Fragment{Text: chunk.Response}) {
			// Consumer cancelled; the deferred Close aborts the request
			stream.CloseSend(nil)
			return
		}
	}

	err := scanner.Err()
	if err != nil {
		err = mapTransportError(err)
	} else {
		err = fmt.Errorf("ollama stream ended without a final chunk")
	}
	stream.CloseSend(err)
}

// Model returns the model name being used
func (l *OllamaLLM) Model() string {
	return l.model
}

// Ping verifies the Ollama server is reachable
func (l *OllamaLLM) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return mapStatusError("ollama", resp.StatusCode, "")
	}
	return nil
}

// Close releases resources held by the generation service
func (l *OllamaLLM) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

func (l *OllamaLLM) doRequest(ctx context.Context, prompt string, params domain.GenerationParams, stream bool) (*http.Response, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  l.model,
		Prompt: prompt,
		Stream: stream,
		Options: ollamaOptions{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		var e ollamaGenerateResponse
		_ = json.Unmarshal(respBody, &e)
		return nil, mapStatusError("ollama", resp.StatusCode, e.Error)
	}
	return resp, nil
}
