package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid and must not be retried
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput indicates blank text was passed where content is required
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidParams indicates out-of-range generation parameters
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrUpstreamUnavailable indicates a remote model service could not be reached
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout indicates a remote call exceeded its bounded wait
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrNoResults indicates retrieval found nothing above the similarity floor.
	// This is a reportable outcome, not a pipeline failure; callers branch on it.
	ErrNoResults = errors.New("no results")

	// ErrNoContext indicates a query had no retrieved context and the
	// ungrounded fallback is disabled
	ErrNoContext = errors.New("no context available")

	// ErrIngestInProgress indicates an ingestion is already running for the document
	ErrIngestInProgress = errors.New("ingestion already in progress")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")
)

// IsRetryable reports whether the error is a transient upstream condition
// that may succeed on retry. Input errors are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamTimeout)
}
