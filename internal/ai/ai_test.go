package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTransportErrorTemporary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *TransportError
		want bool
	}{
		{name: "network", err: &TransportError{Err: errors.New("connection refused")}, want: true},
		{name: "canceled", err: &TransportError{Err: context.Canceled}, want: false},
		{name: "server error", err: &TransportError{StatusCode: http.StatusBadGateway}, want: true},
		{name: "rate limited", err: &TransportError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "not found", err: &TransportError{StatusCode: http.StatusNotFound, Body: "model not found"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Temporary(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{Provider: "ollama", StatusCode: 404, Body: `{"error":"model 'evaluator' not found"}`}
	want := `ollama api error: 404, {"error":"model 'evaluator' not found"}`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	wrapped := fmt.Errorf("structuring: %w", &TransportError{StatusCode: 503})
	if !IsRetryable(wrapped) {
		t.Fatal("expected wrapped 503 to be retryable")
	}

	if IsRetryable(&MalformedResponseError{Err: errors.New("bad")}) {
		t.Fatal("malformed responses must not be retried")
	}

	if IsRetryable(nil) {
		t.Fatal("nil error is not retryable")
	}
}
