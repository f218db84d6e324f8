// Package gemini implements ai.Generator on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/logger"
	"github.com/spigell/resumatch/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel        = "gemini-2.5-pro"
	defaultMaxLogLength = 200
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey string
	// Model is used when a caller does not name one.
	Model        string
	JSONMode     bool
	Temperature  *float64
	MaxLogLength int
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models       modelsAPI
	defaultModel string
	config       *genai.GenerateContentConfig
	logger       *zap.Logger
	maxLogLen    int
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, log), nil
}

func newGenerator(models modelsAPI, cfg Config, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	if log == nil {
		log = zap.NewNop()
	}

	var genCfg *genai.GenerateContentConfig
	if cfg.JSONMode || cfg.Temperature != nil {
		genCfg = &genai.GenerateContentConfig{}
		if cfg.JSONMode {
			genCfg.ResponseMIMEType = "application/json"
		}
		if cfg.Temperature != nil {
			temperature := float32(*cfg.Temperature)
			genCfg.Temperature = &temperature
		}
	}

	return &Generator{
		models:       models,
		defaultModel: model,
		config:       genCfg,
		logger:       log,
		maxLogLen:    maxLogLen,
	}
}

// Generate sends the prompt to Gemini and returns the concatenated textual response.
func (g *Generator) Generate(ctx context.Context, model, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = g.defaultModel
	}

	log := logger.WithCommonFields(g.logger, Provider, model)
	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), g.config)
	if err != nil {
		return "", transportError(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", &ai.TransportError{Provider: Provider, Err: errors.New("gemini api returned empty response")}
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.defaultModel
}

func transportError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.TransportError{Provider: Provider, StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ai.TransportError{Provider: Provider, StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message, Err: err}
	}

	return &ai.TransportError{Provider: Provider, Err: err}
}
