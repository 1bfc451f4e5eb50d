package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Ensure OpenAILLM implements GenerationService
var _ driven.GenerationService = (*OpenAILLM)(nil)

// OpenAILLM implements GenerationService using OpenAI's chat completions
// API. Streaming responses arrive as server-sent events.
type OpenAILLM struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAILLM creates a new OpenAI generation service
func NewOpenAILLM(apiKey, model, baseURL string) (driven.GenerationService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAILLM{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{},
	}, nil
}

// chatRequest is the request body for the chat completions API
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is a non-streaming chat completion
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// chatStreamChunk is one SSE data event of a streaming completion
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

// Generate produces a complete answer in one call
func (l *OpenAILLM) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.Answer, error) {
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

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openai API error: %s (type: %s)", chatResp.Error.Message, chatResp.Error.Type)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &domain.Answer{
		Text:  chatResp.Choices[0].Message.Content,
		Model: l.model,
		Usage: domain.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}

// GenerateStream produces the answer incrementally. Cancelling the
// returned stream aborts the request and releases the connection.
func (l *OpenAILLM) GenerateStream(ctx context.Context, prompt string, params domain.GenerationParams) (*domain.AnswerStream, error) {
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

// consumeStream reads SSE events off the wire and forwards deltas as
// fragments until [DONE] or a consumer cancel.
func (l *OpenAILLM) consumeStream(body io.ReadCloser, stream *domain.AnswerStream) {
	defer body.Close()

	var usage domain.Usage
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			stream.Send(domain.Fragment{Done: true, Usage: &usage})
			stream.CloseSend(nil)
			return
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			stream.CloseSend(fmt.Errorf("failed to parse stream chunk: %w", err))
			return
		}
		if chunk.Usage != nil {
			usage.PromptTokens = chunk.Usage.PromptTokens
			usage.CompletionTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		if !stream.Send(domain.Fragment{Text: chunk.Choices[0].Delta.Content}) {
			// Consumer cancelled; the deferred Close aborts the request
			stream.CloseSend(nil)
			return
		}
	}

	err := scanner.Err()
	if err != nil {
		err = mapTransportError(err)
	} else {
		err = fmt.Errorf("openai stream ended without [DONE]")
	}
	stream.CloseSend(err)
}

// Model returns the model name being used
func (l *OpenAILLM) Model() string {
	return l.model
}

// Ping verifies the API is reachable and the key is accepted
func (l *OpenAILLM) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return mapStatusError("openai", resp.StatusCode, "")
	}
	return nil
}

// Close releases resources held by the generation service
func (l *OpenAILLM) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

func (l *OpenAILLM) doRequest(ctx context.Context, prompt string, params domain.GenerationParams, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		var e chatResponse
		_ = json.Unmarshal(respBody, &e)
		detail := ""
		if e.Error != nil {
			detail = e.Error.Message
		}
		return nil, mapStatusError("openai", resp.StatusCode, detail)
	}
	return resp, nil
}
