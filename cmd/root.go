package cmd

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resumatch"
)

type Config struct {
	Provider string         `mapstructure:"provider"`
	Ollama   *OllamaConfig  `mapstructure:"ollama"`
	Gemini   *GeminiConfig  `mapstructure:"gemini"`
	Models   *ModelsConfig  `mapstructure:"models"`
	Model    *ModelConfig   `mapstructure:"model"`
	Retry    *RetryConfig   `mapstructure:"retry"`
	Storage  *StorageConfig `mapstructure:"storage"`
	Email    *EmailConfig   `mapstructure:"email"`
	Batch    *BatchConfig   `mapstructure:"batch"`
	Server   *ServerConfig  `mapstructure:"server"`
}

type OllamaConfig struct {
	URL      string `mapstructure:"url"`
	JSONMode bool   `mapstructure:"json-mode"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type ModelsConfig struct {
	Structurer      string `mapstructure:"structurer"`
	Evaluator       string `mapstructure:"evaluator"`
	StrictStructure bool   `mapstructure:"strict-structure"`
}

type ModelConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Temperature  *float64      `mapstructure:"temperature"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max-attempts"`
	InitialInterval time.Duration `mapstructure:"initial-interval"`
	MaxInterval     time.Duration `mapstructure:"max-interval"`
}

type StorageConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	DSNFile      string        `mapstructure:"dsn-file"`
	Path         string        `mapstructure:"path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxOpenConns int           `mapstructure:"max-open-conns"`
}

type EmailConfig struct {
	Provider     string        `mapstructure:"provider"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	PasswordFile string        `mapstructure:"password-file"`
	From         string        `mapstructure:"from"`
	ReplyTo      string        `mapstructure:"reply-to"`
	Region       string        `mapstructure:"region"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	Signature    string        `mapstructure:"signature"`
}

type BatchConfig struct {
	Concurrency int     `mapstructure:"concurrency"`
	Threshold   float64 `mapstructure:"threshold"`
}

type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	UploadDir string `mapstructure:"upload-dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resumatch evaluates resumes against a job description with a local language model",
	}
)

// envBindings maps configuration keys to the environment variables that may set them.
var envBindings = map[string][]string{
	"ollama.url":          {"OLLAMA_HOST"},
	"gemini.api-key":      {"GEMINI_API_KEY"},
	"gemini.api-key-file": {"GEMINI_API_KEY_FILE"},
	"storage.dsn":         {"DATABASE_DSN"},
	"storage.dsn-file":    {"DATABASE_DSN_FILE"},
	"email.host":          {"EMAIL_HOST"},
	"email.port":          {"EMAIL_PORT"},
	"email.user":          {"EMAIL_USER"},
	"email.password":      {"EMAIL_PASSWORD"},
	"email.password-file": {"EMAIL_PASSWORD_FILE"},
	"email.from":          {"EMAIL_FROM"},
	"email.reply-to":      {"EMAIL_REPLY_TO"},
	"email.region":        {"AWS_REGION"},
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	for key, envs := range envBindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			log.Fatalf("binding %v environment variables: %v", envs, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resumatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", providerOllama)

	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.json-mode", false)

	v.SetDefault("gemini.model", "gemini-2.5-pro")

	v.SetDefault("models.strict-structure", false)

	v.SetDefault("model.timeout", 5*time.Minute)
	v.SetDefault("model.max-log-length", 200)

	v.SetDefault("retry.max-attempts", 1)
	v.SetDefault("retry.initial-interval", time.Second)
	v.SetDefault("retry.max-interval", 30*time.Second)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "evaluations.jsonl")
	v.SetDefault("storage.timeout", 10*time.Second)

	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.concurrency", 4)
	v.SetDefault("email.timeout", 30*time.Second)

	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.threshold", 70)

	v.SetDefault("server.listen", ":8080")
}

func initConfig() {
	// .env is optional, as is the config file: every setting has a default or an env binding.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("loading .env: %v", err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
