// Package ai holds adapters for embedding and generation backends.
// Each adapter maps transport failures onto the domain error taxonomy
// so callers can decide what is retryable without knowing the vendor.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// mapTransportError classifies a failed HTTP round trip.
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}

// mapStatusError classifies a non-2xx response. Overload and server
// errors are transient; other client errors are permanent.
func mapStatusError(provider string, status int, detail string) error {
	if detail != "" {
		detail = ": " + detail
	}
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: %s returned status %d%s", domain.ErrUpstreamUnavailable, provider, status, detail)
	case status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: %s returned status %d%s", domain.ErrUpstreamTimeout, provider, status, detail)
	default:
		return fmt.Errorf("%s returned status %d%s", provider, status, detail)
	}
}
