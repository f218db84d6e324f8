// Package ollama implements ai.Generator on top of the Ollama generate API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/logger"
	"github.com/spigell/resumatch/internal/utils"
)

const (
	Provider = "ollama"

	DefaultURL          = "http://localhost:11434"
	defaultTimeout      = 5 * time.Minute
	defaultMaxLogLength = 200
	generatePath        = "/api/generate"
)

type Config struct {
	URL     string
	Timeout time.Duration
	// JSONMode asks the server to constrain the output to valid JSON.
	JSONMode     bool
	Temperature  *float64
	MaxLogLength int
}

type Client struct {
	http        *resty.Client
	logger      *zap.Logger
	jsonMode    bool
	temperature *float64
	maxLogLen   int
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

func New(cfg Config, log *zap.Logger) *Client {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		url = DefaultURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	if log == nil {
		log = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:        httpClient,
		logger:      log,
		jsonMode:    cfg.JSONMode,
		temperature: cfg.Temperature,
		maxLogLen:   maxLogLen,
	}
}

// Generate runs a single non-streaming completion.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model name is required")
	}

	log := logger.WithCommonFields(c.logger, Provider, model)

	body := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}
	if c.jsonMode {
		body.Format = "json"
	}
	if c.temperature != nil {
		body.Options = map[string]any{"temperature": *c.temperature}
	}

	log.Debug("ollama generate request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(generatePath)
	if err != nil {
		return "", &ai.TransportError{Provider: Provider, Err: err}
	}

	if !resp.IsSuccess() {
		return "", &ai.TransportError{
			Provider:   Provider,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
		}
	}

	field := gjson.Get(resp.String(), "response")
	if field.Type != gjson.String {
		return "", &ai.TransportError{
			Provider:   Provider,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
			Err:        fmt.Errorf("response field is missing in body: %s", utils.TruncateForLog(resp.String(), c.maxLogLen)),
		}
	}

	output := field.String()

	log.Debug("ollama generate response",
		zap.Duration("took", time.Since(started)),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, c.maxLogLen)),
	)

	return output, nil
}
