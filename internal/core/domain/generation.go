package domain

import (
	"fmt"
	"sync"
)

// Default generation parameters
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// GenerationParams are the recognised knobs for a generation call.
// Passed by value; defaults and validation live here rather than
// scattered at call sites.
type GenerationParams struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultGenerationParams returns the centrally defined defaults
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Validate checks parameter ranges. Violations are input errors and
// are never retried.
func (p GenerationParams) Validate() error {
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f out of range [0,1]", ErrInvalidParams, p.Temperature)
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be > 0, got %d", ErrInvalidParams, p.MaxTokens)
	}
	return nil
}

// Usage is the token accounting reported by the generation model
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Answer is the result of a non-streaming generation call
type Answer struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Fragment is one increment of a streaming answer. The terminal fragment
// has Done set; Usage is only populated on the terminal fragment.
type Fragment struct {
	Text  string `json:"text"`
	Done  bool   `json:"done"`
	Usage *Usage `json:"usage,omitempty"`
}

// AnswerStream is a lazy, finite, cancellable sequence of answer fragments.
// Consumers range over Fragments(); the channel is closed after the terminal
// fragment or a failure, and Err() reports what ended the stream.
// Cancel aborts the underlying request; no fragments are delivered after it
// returns beyond those already buffered.
type AnswerStream struct {
	fragments chan Fragment
	cancel    func()
	err       error
	done      chan struct{}
	once      sync.Once
}

// NewAnswerStream creates a stream fed by a producer goroutine.
// cancel aborts the producer; it must be safe to call more than once.
func NewAnswerStream(cancel func()) *AnswerStream {
	return &AnswerStream{
		fragments: make(chan Fragment, 8),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Fragments returns the fragment channel. It is closed when the stream ends.
func (s *AnswerStream) Fragments() <-chan Fragment {
	return s.fragments
}

// Send delivers a fragment to the consumer. It returns false if the
// consumer is gone (stream closed) and the producer should stop.
func (s *AnswerStream) Send(f Fragment) bool {
	select {
	case s.fragments <- f:
		return true
	case <-s.done:
		return false
	}
}

// CloseSend terminates the stream from the producer side, recording the
// error that ended it (nil for normal completion).
func (s *AnswerStream) CloseSend(err error) {
	s.err = err
	close(s.fragments)
}

// Cancel aborts the stream from the consumer side. The underlying
// connection is released; pending Sends unblock.
func (s *AnswerStream) Cancel() {
	s.once.Do(func() { close(s.done) })
	s.cancel()
}

// Err reports the error that ended the stream, if any. Only meaningful
// after the Fragments channel is closed.
func (s *AnswerStream) Err() error {
	return s.err
}
