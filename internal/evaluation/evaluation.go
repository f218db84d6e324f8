// Package evaluation scores a structured resume against a job description.
package evaluation

import (
	"context"
	_ "embed"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/logger"
	"github.com/spigell/resumatch/internal/resume"
	"github.com/spigell/resumatch/internal/utils"
)

const (
	// DefaultModel is the model used to evaluate resumes.
	DefaultModel = "evaluator"
	// Stage names the evaluation step in logs and errors.
	Stage = "evaluation"

	defaultMaxLogLength = 200
)

//go:embed prompt.md
var promptTemplate string

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

type Config struct {
	Model        string
	MaxLogLength int
}

type Evaluator struct {
	generator    ai.Generator
	model        string
	maxLogLength int
	logger       *zap.Logger
}

func NewEvaluator(generator ai.Generator, cfg Config, log *zap.Logger) *Evaluator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	maxLogLength := cfg.MaxLogLength
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		generator:    generator,
		model:        model,
		maxLogLength: maxLogLength,
		logger:       logger.WithFields(log, zap.String(logger.FieldStage, Stage), zap.String(logger.FieldModel, model)),
	}
}

func (e *Evaluator) Model() string { return e.model }

// Prompt renders the evaluation prompt. Both inputs are substituted verbatim.
func Prompt(jobDescription, resumeText string) string {
	return strings.NewReplacer(
		"{{job_description}}", jobDescription,
		"{{resume}}", resumeText,
	).Replace(promptTemplate)
}

// Evaluate asks the model for a verdict on r. The answer must decode to an object,
// otherwise an *ai.MalformedResponseError is returned.
func (e *Evaluator) Evaluate(ctx context.Context, r *resume.Resume, jobDescription string) (*Verdict, error) {
	if r == nil {
		return nil, errors.New("structured resume is required")
	}

	started := time.Now()

	output, err := e.generator.Generate(ctx, e.model, Prompt(jobDescription, r.Text))
	if err != nil {
		return nil, err
	}

	doc, err := ai.DecodeObject(Stage, output)
	if err != nil {
		e.logger.Debug("evaluation response rejected",
			zap.String("preview", utils.TruncateForLog(output, e.maxLogLength)),
		)
		return nil, err
	}

	verdict := NewVerdict(doc)
	e.resolveIdentification(verdict, r)

	if !verdict.HasOverallMatch() {
		e.logger.Warn("verdict has no numeric overall match, using 0")
	} else if verdict.OverallMatch < 0 || verdict.OverallMatch > 100 {
		e.logger.Warn("overall match outside of 0-100", zap.Float64("overall_match", verdict.OverallMatch))
	}

	e.logger.Debug("resume evaluated",
		zap.String("name", verdict.Identification.Name),
		zap.Float64("overall_match", verdict.OverallMatch),
		zap.Int("skills", len(verdict.SkillMatch)),
		zap.Duration("took", time.Since(started)),
	)

	return verdict, nil
}

// resolveIdentification fills gaps in the model's identification from the resume
// and writes the result back as the first key of the document.
func (e *Evaluator) resolveIdentification(v *Verdict, r *resume.Resume) {
	fromModel := v.Identification
	fromResume := searchIdentification(r.Value)
	if fromResume.Email == "" {
		fromResume.Email = emailPattern.FindString(r.Raw)
	}

	resolved := Identification{
		Name:  firstNonEmpty(fromModel.Name, fromResume.Name, Unknown),
		Email: firstNonEmpty(fromModel.Email, fromResume.Email, Unknown),
	}

	if differs(fromModel.Name, fromResume.Name) || differs(fromModel.Email, fromResume.Email) {
		v.IdentityMismatch = true
		e.logger.Warn("candidate identification differs between verdict and resume",
			zap.String("verdict_name", fromModel.Name),
			zap.String("resume_name", fromResume.Name),
			zap.String("verdict_email", fromModel.Email),
			zap.String("resume_email", fromResume.Email),
		)
	}

	if resolved != fromModel {
		e.logger.Debug("identification completed from resume",
			zap.String("name", resolved.Name),
			zap.String("email", resolved.Email),
		)
	}

	v.Identification = resolved
	setIdentification(v.Document, resolved)
}

func differs(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return !strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
