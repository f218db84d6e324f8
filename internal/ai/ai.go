package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Generator sends a prompt to an inference service and returns the raw completion.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, model, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

// TransportError is returned when the inference endpoint is unreachable or answers
// with a non-success status.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	provider := e.Provider
	if provider == "" {
		provider = "model"
	}
	if e.StatusCode != 0 && e.Err != nil {
		return fmt.Sprintf("%s api error: %d, %v", provider, e.StatusCode, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error: %d, %s", provider, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", provider, e.Err)
	}
	return fmt.Sprintf("%s request failed", provider)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same call may succeed.
func (e *TransportError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return !errors.Is(e.Err, context.Canceled)
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= http.StatusInternalServerError
	}
}

// MalformedResponseError is returned when no valid structured payload can be
// recovered from a model response.
type MalformedResponseError struct {
	Stage     string
	Sanitized string
	Err       error
}

func (e *MalformedResponseError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("malformed model response: %v", e.Err)
	}
	return fmt.Sprintf("malformed %s response: %v", e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsRetryable is the default classification used by retry policies.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Temporary()
	}
	return false
}
