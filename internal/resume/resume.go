// Package resume turns raw resume text into a structured payload using a language model.
package resume

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/logger"
	"github.com/spigell/resumatch/internal/structured"
	"github.com/spigell/resumatch/internal/utils"
)

const (
	// DefaultModel is the model used to structure resumes.
	DefaultModel = "llama3.2"
	// Stage names the structuring step in logs and errors.
	Stage = "structuring"

	defaultMaxLogLength = 200
)

//go:embed prompt.md
var promptTemplate string

// Resume is the structured form of a resume.
type Resume struct {
	// Raw is the extracted document text.
	Raw string
	// Text is the sanitized model output passed on to the evaluator.
	Text string
	// Value is the parsed payload, nil when Text does not decode to an object.
	Value *structured.Value
}

// Fields returns the top-level object of the structured resume, if any.
func (r *Resume) Fields() *structured.Object {
	if r == nil {
		return nil
	}
	return r.Value.Object()
}

type Config struct {
	Model string
	// Strict turns an unparseable model answer into an error instead of a warning.
	Strict       bool
	MaxLogLength int
}

type Structurer struct {
	generator    ai.Generator
	model        string
	strict       bool
	maxLogLength int
	logger       *zap.Logger
}

func NewStructurer(generator ai.Generator, cfg Config, log *zap.Logger) *Structurer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	maxLogLength := cfg.MaxLogLength
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Structurer{
		generator:    generator,
		model:        model,
		strict:       cfg.Strict,
		maxLogLength: maxLogLength,
		logger:       logger.WithFields(log, zap.String(logger.FieldStage, Stage), zap.String(logger.FieldModel, model)),
	}
}

func (s *Structurer) Model() string { return s.model }

// Prompt renders the structuring prompt for text. Text is substituted verbatim.
func Prompt(text string) string {
	return strings.NewReplacer("{{resume_text}}", text).Replace(promptTemplate)
}

// Structure asks the model to split text into sections. Empty text is sent as is.
func (s *Structurer) Structure(ctx context.Context, text string) (*Resume, error) {
	started := time.Now()

	output, err := s.generator.Generate(ctx, s.model, Prompt(text))
	if err != nil {
		return nil, err
	}

	sanitized := ai.SanitizeResponse(output)
	result := &Resume{Raw: text, Text: sanitized}

	obj, err := ai.DecodeObject(Stage, output)
	switch {
	case err == nil:
		result.Value = structured.FromObject(obj)
	case s.strict:
		return nil, err
	default:
		s.logger.Warn("structured resume is not a valid object, passing it through",
			zap.String("preview", utils.TruncateForLog(sanitized, s.maxLogLength)),
			zap.Error(err),
		)
	}

	s.logger.Debug("resume structured",
		zap.Int("sections", result.Fields().Len()),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}
