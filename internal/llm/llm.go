// Package llm is the language model boundary used to generate answers.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/errdefs"
)

// LanguageModel completes a rendered prompt.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to LanguageModel.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the language model selected by cfg. The API key is read from the
// environment variable named by cfg.APIKeyEnv.
func New(cfg config.LLMConfig) (LanguageModel, error) {
	switch cfg.Provider {
	case "openai", "":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, &errdefs.ConfigurationError{
				Field:  "llm.api_key_env",
				Reason: fmt.Sprintf("environment variable %s is not set", cfg.APIKeyEnv),
			}
		}
		return NewOpenAIChat(cfg.BaseURL, key, cfg.Model, cfg.Temperature, cfg.Timeout)
	default:
		return nil, &errdefs.ConfigurationError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}
