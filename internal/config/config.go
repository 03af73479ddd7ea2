// Package config loads labelpipe configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// LLM provider
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Batch scheduling
	BatchSize          int
	Concurrency        int
	MaxRetries         int
	BackoffMin         time.Duration
	BackoffMax         time.Duration
	CheckpointInterval int
	RequestTimeout     time.Duration

	// Dataset
	TextColumn    string
	CheckpointDir string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// Defaults match the tuned production values for the labeling job.
func Load() Config {
	return Config{
		Provider:        getEnv("LABELPIPE_PROVIDER", ProviderOpenAI),
		Model:           getEnv("LABELPIPE_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		BatchSize:          getEnvInt("LABELPIPE_BATCH_SIZE", 50),
		Concurrency:        getEnvInt("LABELPIPE_CONCURRENCY", 10),
		MaxRetries:         getEnvInt("LABELPIPE_MAX_RETRIES", 5),
		BackoffMin:         getEnvDuration("LABELPIPE_BACKOFF_MIN", 2*time.Second),
		BackoffMax:         getEnvDuration("LABELPIPE_BACKOFF_MAX", 60*time.Second),
		CheckpointInterval: getEnvInt("LABELPIPE_CHECKPOINT_INTERVAL", 5),
		RequestTimeout:     getEnvDuration("LABELPIPE_REQUEST_TIMEOUT", 120*time.Second),

		TextColumn:    getEnv("LABELPIPE_TEXT_COLUMN", "cleaned_text"),
		CheckpointDir: getEnv("LABELPIPE_CHECKPOINT_DIR", "label_data"),

		LogFile:  getEnv("LABELPIPE_LOG_FILE", "labelpipe.log"),
		LogLevel: parseLogLevel(getEnv("LABELPIPE_LOG_LEVEL", "INFO")),
	}
}

// fileConfig is the YAML shape of a config file. Durations are strings so
// "2s" and "1m" both work; zero values mean "not set".
type fileConfig struct {
	Provider           string `yaml:"provider"`
	Model              string `yaml:"model"`
	OllamaHost         string `yaml:"ollama_host"`
	BatchSize          int    `yaml:"batch_size"`
	Concurrency        int    `yaml:"concurrency"`
	MaxRetries         int    `yaml:"max_retries"`
	BackoffMin         string `yaml:"backoff_min"`
	BackoffMax         string `yaml:"backoff_max"`
	CheckpointInterval int    `yaml:"checkpoint_interval"`
	RequestTimeout     string `yaml:"request_timeout"`
	TextColumn         string `yaml:"text_column"`
	CheckpointDir      string `yaml:"checkpoint_dir"`
	LogFile            string `yaml:"log_file"`
	LogLevel           string `yaml:"log_level"`
}

// MergeFile overlays values from a YAML config file onto c. Only keys present
// in the file are applied; secrets stay environment-only.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Provider, fc.Provider)
	setString(&c.Model, fc.Model)
	setString(&c.OllamaHost, fc.OllamaHost)
	setInt(&c.BatchSize, fc.BatchSize)
	setInt(&c.Concurrency, fc.Concurrency)
	setInt(&c.MaxRetries, fc.MaxRetries)
	setInt(&c.CheckpointInterval, fc.CheckpointInterval)
	setString(&c.TextColumn, fc.TextColumn)
	setString(&c.CheckpointDir, fc.CheckpointDir)
	setString(&c.LogFile, fc.LogFile)
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	for _, d := range []struct {
		dst *time.Duration
		raw string
	}{
		{&c.BackoffMin, fc.BackoffMin},
		{&c.BackoffMax, fc.BackoffMax},
		{&c.RequestTimeout, fc.RequestTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse duration %q in %s: %w", d.raw, path, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Validate checks values the pipeline depends on.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0, got %d", c.Concurrency)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1, got %d", c.MaxRetries)
	}
	if c.BackoffMin <= 0 || c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("backoff bounds invalid: min=%s max=%s", c.BackoffMin, c.BackoffMax)
	}
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint_interval must be > 0, got %d", c.CheckpointInterval)
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Bare numbers are seconds, matching the older flag surface.
		if n, err := strconv.Atoi(val); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
