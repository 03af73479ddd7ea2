// Package llm provides the classification service adapter using langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/junhyuk-choi/labelpipe/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completion is the raw outcome of one classification call.
type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Classifier wraps a langchaingo model for batch review classification.
type Classifier struct {
	llm       llms.Model
	modelName string
	timeout   time.Duration
}

// NewClassifier creates a classifier based on configuration.
func NewClassifier(cfg config.Config) (*Classifier, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &Classifier{
		llm:       model,
		modelName: cfg.Model,
		timeout:   cfg.RequestTimeout,
	}, nil
}

// NewClassifierWithModel wraps an existing llms.Model (for testing).
func NewClassifierWithModel(model llms.Model, name string, timeout time.Duration) *Classifier {
	return &Classifier{llm: model, modelName: name, timeout: timeout}
}

// Classify sends one batch of review texts and returns the raw completion.
// The prompt asks for a JSON array with one object per input text; parsing
// and validation of that array belong to the label package.
func (c *Classifier) Classify(ctx context.Context, texts []string) (*Completion, error) {
	userPrompt, err := BuildUserPrompt(texts)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	duration := time.Since(start)

	if err != nil {
		slog.Debug("classify call failed", "model", c.modelName, "batch_len", len(texts), "duration_ms", duration.Milliseconds(), "error", err)
		return nil, fmt.Errorf("classify: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("classify: no response choices")
	}

	choice := response.Choices[0]
	comp := &Completion{Content: choice.Content}
	if choice.GenerationInfo != nil {
		if n, ok := choice.GenerationInfo["PromptTokens"].(int); ok {
			comp.InputTokens = n
		}
		if n, ok := choice.GenerationInfo["CompletionTokens"].(int); ok {
			comp.OutputTokens = n
		}
	}

	slog.Debug("classify call complete", "model", c.modelName, "batch_len", len(texts), "duration_ms", duration.Milliseconds(), "output_len", len(comp.Content))
	return comp, nil
}

// Model returns the configured model name.
func (c *Classifier) Model() string {
	return c.modelName
}
