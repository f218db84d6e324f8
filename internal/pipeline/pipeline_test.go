package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/evaluation"
	"github.com/spigell/resumatch/internal/extract"
	"github.com/spigell/resumatch/internal/resume"
	"github.com/spigell/resumatch/internal/storage"
)

type stubExtractor struct {
	texts map[string]string
}

func (s stubExtractor) Extract(_ context.Context, path string) (string, error) {
	text, ok := s.texts[path]
	if !ok {
		return "", &extract.Error{Path: path, Err: errors.New("no such file")}
	}
	return text, nil
}

type recordingStore struct {
	mu      sync.Mutex
	records []*storage.Record
	err     error
	ctxErr  error
}

func (s *recordingStore) Save(ctx context.Context, record *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return &storage.PersistenceError{Driver: "stub", Err: s.err}
	}
	s.records = append(s.records, record)
	return nil
}

func (s *recordingStore) Close() error { return nil }

const janeVerdict = `{"Personal Information":{"Name":"Jane Doe","Email":"jane@x.com"},"overallMatch":85,"summary":"Good fit"}`

// modelStub answers structuring prompts with structure and evaluation prompts with verdict.
func modelStub(structure, verdict string) ai.Generator {
	return ai.GeneratorFunc(func(_ context.Context, model, _ string) (string, error) {
		switch model {
		case resume.DefaultModel:
			return structure, nil
		case evaluation.DefaultModel:
			return verdict, nil
		default:
			return "", fmt.Errorf("unexpected model %q", model)
		}
	})
}

func newTestPipeline(gen ai.Generator, texts map[string]string, store storage.Store, log *zap.Logger) *Pipeline {
	return New(Deps{
		Extractor:  stubExtractor{texts: texts},
		Structurer: resume.NewStructurer(gen, resume.Config{}, log),
		Evaluator:  evaluation.NewEvaluator(gen, evaluation.Config{}, log),
		Store:      store,
		Logger:     log,
	}, Config{})
}

func stateTransitions(logs *observer.ObservedLogs) []string {
	var transitions []string
	for _, entry := range logs.FilterMessage("pipeline state").All() {
		fields := entry.ContextMap()
		transitions = append(transitions, fmt.Sprintf("%s->%s", fields["from"], fields["to"]))
	}
	return transitions
}

func TestRunProducesVerdictAndPersists(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := &recordingStore{}
	gen := modelStub(`{"Personal Information":{"Name":"Jane Doe","Email":"jane@x.com"}}`, "```json\n"+janeVerdict+"\n```")

	p := newTestPipeline(gen, map[string]string{"jane.pdf": "Jane Doe\njane@x.com"}, store, zap.New(core))

	result, err := p.Run(context.Background(), Request{DocumentPath: "jane.pdf", JobDescription: "Go engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encoded, _ := result.Verdict.MarshalJSON()
	if string(encoded) != janeVerdict {
		t.Fatalf("unexpected verdict: %s", encoded)
	}

	if result.PersistError != nil {
		t.Fatalf("unexpected persist error: %v", result.PersistError)
	}

	if len(store.records) != 1 || store.records[0].Name != "Jane Doe" || store.records[0].DocumentName != "jane.pdf" {
		t.Fatalf("unexpected stored records: %+v", store.records)
	}

	want := "pending->extracting,extracting->structuring,structuring->evaluating,evaluating->persisting,persisting->done"
	if got := strings.Join(stateTransitions(logs), ","); got != want {
		t.Fatalf("unexpected transitions:\n got %s\nwant %s", got, want)
	}
}

func TestRunWithoutStoreSkipsPersisting(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gen := modelStub(`{}`, janeVerdict)

	_, err := newTestPipeline(gen, map[string]string{"jane.pdf": "text"}, nil, zap.New(core)).
		Run(context.Background(), Request{DocumentPath: "jane.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, transition := range stateTransitions(logs) {
		if strings.Contains(transition, string(StatePersisting)) {
			t.Fatalf("persisting must be skipped without a store: %v", stateTransitions(logs))
		}
	}
}

func TestRunStoreFailureDoesNotFailRun(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &recordingStore{err: errors.New("connection refused")}

	result, err := newTestPipeline(modelStub(`{}`, janeVerdict), map[string]string{"jane.pdf": "text"}, store, zap.New(core)).
		Run(context.Background(), Request{DocumentPath: "jane.pdf", JobDescription: "jd"})
	if err != nil {
		t.Fatalf("store failure must not fail the run: %v", err)
	}

	var persistErr *storage.PersistenceError
	if !errors.As(result.PersistError, &persistErr) {
		t.Fatalf("expected persistence error, got %v", result.PersistError)
	}

	encoded, _ := result.Verdict.MarshalJSON()
	if string(encoded) != janeVerdict {
		t.Fatalf("verdict must be unaffected by storage: %s", encoded)
	}

	if logs.FilterMessage("failed to store evaluation, continuing").Len() != 1 {
		t.Fatalf("expected a warning, got %v", logs.All())
	}
}

func TestRunPersistsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := ai.GeneratorFunc(func(_ context.Context, model, _ string) (string, error) {
		if model == evaluation.DefaultModel {
			cancel()
			return janeVerdict, nil
		}
		return `{}`, nil
	})
	store := &recordingStore{}

	result, err := newTestPipeline(gen, map[string]string{"jane.pdf": "text"}, store, nil).
		Run(ctx, Request{DocumentPath: "jane.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PersistError != nil || store.ctxErr != nil || len(store.records) != 1 {
		t.Fatalf("expected the write to outlive cancellation: persist=%v ctx=%v records=%d",
			result.PersistError, store.ctxErr, len(store.records))
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name      string
		gen       ai.Generator
		document  string
		wantState State
		check     func(error) bool
	}{
		{
			name:      "extraction",
			gen:       modelStub(`{}`, janeVerdict),
			document:  "missing.pdf",
			wantState: StateExtracting,
			check: func(err error) bool {
				var target *extract.Error
				return errors.As(err, &target)
			},
		},
		{
			name: "structuring transport",
			gen: ai.GeneratorFunc(func(context.Context, string, string) (string, error) {
				return "", &ai.TransportError{Provider: "ollama", Err: errors.New("connection refused")}
			}),
			document:  "jane.pdf",
			wantState: StateStructuring,
			check: func(err error) bool {
				var target *ai.TransportError
				return errors.As(err, &target)
			},
		},
		{
			name:      "malformed verdict",
			gen:       modelStub(`{}`, "I am unable to evaluate this resume."),
			document:  "jane.pdf",
			wantState: StateEvaluating,
			check: func(err error) bool {
				var target *ai.MalformedResponseError
				return errors.As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &recordingStore{}
			result, err := newTestPipeline(tt.gen, map[string]string{"jane.pdf": "text"}, store, nil).
				Run(context.Background(), Request{DocumentPath: tt.document})

			if result != nil {
				t.Fatalf("no partial result expected, got %+v", result)
			}

			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("expected stage error, got %v", err)
			}
			if stageErr.State != tt.wantState {
				t.Fatalf("expected state %s, got %s", tt.wantState, stageErr.State)
			}
			if !tt.check(err) {
				t.Fatalf("unexpected cause: %v", err)
			}
			if len(store.records) != 0 {
				t.Fatal("failed runs must not be stored")
			}
		})
	}
}

func TestRunBlankDocument(t *testing.T) {
	var structurePrompt string
	gen := ai.GeneratorFunc(func(_ context.Context, model, prompt string) (string, error) {
		if model == resume.DefaultModel {
			structurePrompt = prompt
			return "{}", nil
		}
		return "{}", nil
	})

	result, err := newTestPipeline(gen, map[string]string{"blank.pdf": ""}, nil, nil).
		Run(context.Background(), Request{DocumentPath: "blank.pdf", JobDescription: "jd"})
	if err != nil {
		t.Fatalf("blank document must be evaluated: %v", err)
	}

	if structurePrompt == "" {
		t.Fatal("expected the structuring stage to run")
	}

	if result.Verdict.Identification != (evaluation.Identification{Name: evaluation.Unknown, Email: evaluation.Unknown}) {
		t.Fatalf("unexpected identification: %+v", result.Verdict.Identification)
	}
}
