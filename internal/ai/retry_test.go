package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", errors.New("unexpected call")
}

func fastRetry(attempts int, logger *zap.Logger) ExponentialRetry {
	return ExponentialRetry{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Logger:          logger,
	}
}

func TestRetryingGeneratorRetriesTemporaryErrors(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)

	gen := &scriptedGenerator{
		responses: []string{"", "ok"},
		errs:      []error{&TransportError{StatusCode: http.StatusInternalServerError}},
	}

	out, err := NewRetryingGenerator(gen, fastRetry(3, zap.New(core))).Generate(context.Background(), "m", "p")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out != "ok" {
		t.Fatalf("unexpected output: %q", out)
	}

	if gen.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", gen.calls)
	}

	if observed.Len() != 1 {
		t.Fatalf("expected a single retry warning, got %d", observed.Len())
	}
}

func TestRetryingGeneratorStopsAfterMaxAttempts(t *testing.T) {
	temp := &TransportError{StatusCode: http.StatusServiceUnavailable}
	gen := &scriptedGenerator{errs: []error{temp, temp, temp, temp}}

	_, err := NewRetryingGenerator(gen, fastRetry(3, nil)).Generate(context.Background(), "m", "p")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if gen.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", gen.calls)
	}
}

func TestRetryingGeneratorDoesNotRetryPermanentErrors(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{&TransportError{StatusCode: http.StatusNotFound, Body: "no model"}}}

	_, err := NewRetryingGenerator(gen, fastRetry(5, nil)).Generate(context.Background(), "m", "p")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected the 404 TransportError, got %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("expected single call, got %d", gen.calls)
	}
}

func TestNoRetryIsDefault(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{&TransportError{StatusCode: http.StatusBadGateway}}}

	if _, err := NewRetryingGenerator(gen, nil).Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected error")
	}

	if gen.calls != 1 {
		t.Fatalf("expected single call, got %d", gen.calls)
	}
}

func TestExponentialRetryStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := fastRetry(10, nil).Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return &TransportError{StatusCode: http.StatusBadGateway}
	})

	if err == nil {
		t.Fatal("expected error")
	}

	if calls != 1 {
		t.Fatalf("expected a single call after cancellation, got %d", calls)
	}

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected the last TransportError to be kept, got %v", err)
	}

	if transportErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, transportErr.StatusCode)
	}
}
