// Package pipeline runs a resume through extraction, structuring, evaluation and
// optional persistence.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/evaluation"
	"github.com/spigell/resumatch/internal/extract"
	"github.com/spigell/resumatch/internal/logger"
	"github.com/spigell/resumatch/internal/resume"
	"github.com/spigell/resumatch/internal/storage"
)

// DefaultPersistTimeout bounds a single store write.
const DefaultPersistTimeout = 10 * time.Second

type Structurer interface {
	Structure(ctx context.Context, text string) (*resume.Resume, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, r *resume.Resume, jobDescription string) (*evaluation.Verdict, error)
}

// Deps aggregates the stages of a run. Store is optional.
type Deps struct {
	Extractor  extract.Extractor
	Structurer Structurer
	Evaluator  Evaluator
	Store      storage.Store
	Logger     *zap.Logger
}

type Config struct {
	PersistTimeout time.Duration
}

type Pipeline struct {
	deps           Deps
	persistTimeout time.Duration
}

func New(deps Deps, cfg Config) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	timeout := cfg.PersistTimeout
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}

	return &Pipeline{deps: deps, persistTimeout: timeout}
}

type Request struct {
	DocumentPath   string
	JobDescription string
}

type Result struct {
	Request Request
	Resume  *resume.Resume
	Verdict *evaluation.Verdict
	// PersistError is set when the verdict could not be stored. The run still succeeds.
	PersistError error
	Took         time.Duration
}

// Run evaluates one document. Failures of the first three stages are returned as
// *StageError; persistence failures are only reported in Result.PersistError.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	log := logger.WithFields(p.deps.Logger, logger.RunFields(req.DocumentPath, "")...)
	t := newTracker(log)

	t.to(StateExtracting)
	text, err := p.deps.Extractor.Extract(ctx, req.DocumentPath)
	if err != nil {
		return nil, t.fail(err)
	}

	t.to(StateStructuring)
	parsed, err := p.deps.Structurer.Structure(ctx, text)
	if err != nil {
		return nil, t.fail(err)
	}

	t.to(StateEvaluating)
	verdict, err := p.deps.Evaluator.Evaluate(ctx, parsed, req.JobDescription)
	if err != nil {
		return nil, t.fail(err)
	}

	result := &Result{Request: req, Resume: parsed, Verdict: verdict}

	if p.deps.Store != nil {
		t.to(StatePersisting)
		if err := p.persist(ctx, req, verdict); err != nil {
			result.PersistError = err
			log.Warn("failed to store evaluation, continuing", zap.Error(err))
		}
	}

	t.to(StateDone)
	result.Took = time.Since(started)

	log.Info("resume evaluated",
		zap.String("name", verdict.Identification.Name),
		zap.Float64("overall_match", verdict.OverallMatch),
		zap.Duration("took", result.Took),
	)

	return result, nil
}

// persist stores the verdict. The write outlives cancellation of ctx but is bounded
// by the persist timeout.
func (p *Pipeline) persist(ctx context.Context, req Request, verdict *evaluation.Verdict) error {
	record, err := storage.NewRecord(verdict, req.JobDescription, req.DocumentPath)
	if err != nil {
		return &storage.PersistenceError{Driver: "encode", Err: err}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.persistTimeout)
	defer cancel()

	return p.deps.Store.Save(ctx, record)
}
