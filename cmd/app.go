package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/ai/gemini"
	"github.com/spigell/resumatch/internal/ai/ollama"
	"github.com/spigell/resumatch/internal/evaluation"
	"github.com/spigell/resumatch/internal/extract"
	"github.com/spigell/resumatch/internal/logger"
	"github.com/spigell/resumatch/internal/notify"
	"github.com/spigell/resumatch/internal/pipeline"
	"github.com/spigell/resumatch/internal/resume"
	"github.com/spigell/resumatch/internal/secrets"
	"github.com/spigell/resumatch/internal/storage"
)

const (
	providerOllama = "ollama"
	providerGemini = "gemini"
)

// setup builds the logger and reads the configuration shared by all commands.
func setup() (*zap.Logger, *Config, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return log, nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		return log, nil, fmt.Errorf("config is required")
	}

	return log, config, nil
}

func newGenerator(ctx context.Context, config *Config, log *zap.Logger) (ai.Generator, error) {
	var generator ai.Generator

	switch provider := strings.ToLower(strings.TrimSpace(config.Provider)); provider {
	case "", providerOllama:
		generator = ollama.New(ollama.Config{
			URL:          config.Ollama.URL,
			Timeout:      config.Model.Timeout,
			JSONMode:     config.Ollama.JSONMode,
			Temperature:  config.Model.Temperature,
			MaxLogLength: config.Model.MaxLogLength,
		}, log)
	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: config.Gemini.APIKey,
			File:  config.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		g, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:       apiKey,
			Model:        config.Gemini.Model,
			Temperature:  config.Model.Temperature,
			MaxLogLength: config.Model.MaxLogLength,
		}, log)
		if err != nil {
			return nil, err
		}
		generator = g
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", config.Provider)
	}

	return ai.NewRetryingGenerator(generator, retryPolicy(config.Retry, log)), nil
}

func retryPolicy(cfg *RetryConfig, log *zap.Logger) ai.RetryPolicy {
	if cfg == nil || cfg.MaxAttempts <= 1 {
		return ai.NoRetry{}
	}

	return ai.ExponentialRetry{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Logger:          log,
	}
}

// modelNames resolves the structuring and evaluation models for the configured provider.
func modelNames(config *Config) (string, string) {
	structurer := strings.TrimSpace(config.Models.Structurer)
	evaluator := strings.TrimSpace(config.Models.Evaluator)

	if strings.EqualFold(config.Provider, providerGemini) {
		if structurer == "" {
			structurer = config.Gemini.Model
		}
		if evaluator == "" {
			evaluator = config.Gemini.Model
		}
	}

	if structurer == "" {
		structurer = resume.DefaultModel
	}
	if evaluator == "" {
		evaluator = evaluation.DefaultModel
	}

	return structurer, evaluator
}

func newStore(config *Config, log *zap.Logger) (storage.Store, error) {
	dsn, err := secrets.LoadOptional(secrets.Source{
		Name:  "database dsn",
		Value: config.Storage.DSN,
		File:  config.Storage.DSNFile,
	})
	if err != nil {
		return nil, err
	}

	return storage.Open(storage.Config{
		Driver:       config.Storage.Driver,
		DSN:          dsn,
		Path:         config.Storage.Path,
		MaxOpenConns: config.Storage.MaxOpenConns,
	}, log)
}

// newPipeline wires all stages. The returned close function releases the store.
func newPipeline(ctx context.Context, config *Config, withStore bool, log *zap.Logger) (*pipeline.Pipeline, func(), error) {
	generator, err := newGenerator(ctx, config, log)
	if err != nil {
		return nil, nil, fmt.Errorf("building model client: %w", err)
	}

	structurerModel, evaluatorModel := modelNames(config)
	provider := strings.ToLower(config.Provider)

	deps := pipeline.Deps{
		Extractor: extract.New(log),
		Structurer: resume.NewStructurer(generator, resume.Config{
			Model:        structurerModel,
			Strict:       config.Models.StrictStructure,
			MaxLogLength: config.Model.MaxLogLength,
		}, logger.WithFields(log, logger.CommonFields(provider, "")...)),
		Evaluator: evaluation.NewEvaluator(generator, evaluation.Config{
			Model:        evaluatorModel,
			MaxLogLength: config.Model.MaxLogLength,
		}, logger.WithFields(log, logger.CommonFields(provider, "")...)),
		Logger: log,
	}

	closeFn := func() {}
	if withStore {
		store, err := newStore(config, log)
		if err != nil {
			return nil, nil, fmt.Errorf("opening storage: %w", err)
		}
		deps.Store = store
		closeFn = func() {
			if err := store.Close(); err != nil {
				log.Warn("closing storage", zap.Error(err))
			}
		}
	}

	return pipeline.New(deps, pipeline.Config{PersistTimeout: config.Storage.Timeout}), closeFn, nil
}

func newNotifier(ctx context.Context, config *Config, log *zap.Logger) (*notify.Notifier, error) {
	password, err := secrets.LoadOptional(secrets.Source{
		Name:  "email password",
		Value: config.Email.Password,
		File:  config.Email.PasswordFile,
	})
	if err != nil {
		return nil, err
	}

	sender, err := notify.NewSender(ctx, notify.SenderConfig{
		Provider: config.Email.Provider,
		SMTP: notify.SMTPConfig{
			Host:     config.Email.Host,
			Port:     config.Email.Port,
			Username: config.Email.User,
			Password: password,
			From:     config.Email.From,
			ReplyTo:  config.Email.ReplyTo,
			Timeout:  config.Email.Timeout,
		},
		SES: notify.SESConfig{
			Region:  config.Email.Region,
			From:    firstNonEmpty(config.Email.From, config.Email.User),
			ReplyTo: config.Email.ReplyTo,
		},
	}, log)
	if err != nil {
		return nil, err
	}

	return notify.NewNotifier(sender, notify.Config{
		Concurrency: config.Email.Concurrency,
		Signature:   config.Email.Signature,
	}, log), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
