package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/ai"
)

func TestGenerateSendsNonStreamingRequest(t *testing.T) {
	var received map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &received); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"{\"Skills\": [\"Go\"]}","done":true}`))
	}))
	defer srv.Close()

	temperature := 0.0
	client := New(Config{URL: srv.URL + "/", JSONMode: true, Temperature: &temperature}, zap.NewNop())

	out, err := client.Generate(context.Background(), "llama3.2", "structure this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != `{"Skills": ["Go"]}` {
		t.Fatalf("unexpected output: %q", out)
	}

	if received["model"] != "llama3.2" || received["prompt"] != "structure this" {
		t.Fatalf("unexpected request payload: %+v", received)
	}

	if stream, ok := received["stream"].(bool); !ok || stream {
		t.Fatalf("expected stream=false, got %v", received["stream"])
	}

	if received["format"] != "json" {
		t.Fatalf("expected json format, got %v", received["format"])
	}

	options, ok := received["options"].(map[string]any)
	if !ok || options["temperature"] != 0.0 {
		t.Fatalf("expected temperature option, got %v", received["options"])
	}
}

func TestGenerateOmitsOptionalFields(t *testing.T) {
	var received map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &received)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	if _, err := New(Config{URL: srv.URL}, nil).Generate(context.Background(), "evaluator", "p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := received["format"]; ok {
		t.Fatalf("format must be omitted when json mode is off: %+v", received)
	}
	if _, ok := received["options"]; ok {
		t.Fatalf("options must be omitted without temperature: %+v", received)
	}
}

func TestGenerateReturnsTransportErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"evaluator\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	_, err := New(Config{URL: srv.URL}, zap.NewNop()).Generate(context.Background(), "evaluator", "p")

	var transportErr *ai.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if transportErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", transportErr.StatusCode)
	}

	if transportErr.Body != `{"error":"model \"evaluator\" not found, try pulling it first"}` {
		t.Fatalf("unexpected body: %q", transportErr.Body)
	}

	if transportErr.Temporary() {
		t.Fatal("404 must not be temporary")
	}
}

func TestGenerateRejectsBodyWithoutResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	_, err := New(Config{URL: srv.URL}, zap.NewNop()).Generate(context.Background(), "evaluator", "p")

	var transportErr *ai.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if transportErr.Temporary() {
		t.Fatal("contract violation must not be retried")
	}
}

func TestGenerateUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{URL: url}, zap.NewNop()).Generate(context.Background(), "evaluator", "p")

	var transportErr *ai.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if transportErr.StatusCode != 0 || !transportErr.Temporary() {
		t.Fatalf("expected temporary network error, got %+v", transportErr)
	}
}

func TestGenerateRequiresModel(t *testing.T) {
	if _, err := New(Config{}, nil).Generate(context.Background(), "  ", "p"); err == nil {
		t.Fatal("expected error for empty model")
	}
}
