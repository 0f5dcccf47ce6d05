package weather

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Provider failure kinds. Match with errors.Is.
var (
	ErrTimeout     = errors.New("provider timeout")
	ErrNoCoverage  = errors.New("no coverage")
	ErrUnavailable = errors.New("provider unavailable")
)

// ProviderError is returned by every adapter when a fetch fails
type ProviderError struct {
	Provider string
	Kind     error // one of ErrTimeout, ErrNoCoverage, ErrUnavailable
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newProviderError(provider string, kind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// statusError carries a non-OK upstream HTTP status
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// classify maps a transport or HTTP failure onto a provider failure kind
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
			return ErrNoCoverage
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return ErrTimeout
		}
	}
	return ErrUnavailable
}

// retryable reports whether another attempt could succeed
func retryable(ctx context.Context, err error) bool {
	return ctx.Err() == nil && classify(ctx, err) == ErrUnavailable
}

// KindLabel returns a short label for the failure kind of err
func KindLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNoCoverage):
		return "no_coverage"
	default:
		return "unavailable"
	}
}
