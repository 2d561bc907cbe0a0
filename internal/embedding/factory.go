package embedding

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/errdefs"
)

// New builds the embedder selected by cfg, wrapped in an LRU cache when cfg.CacheSize > 0.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "hash", "":
		e = NewHashEmbedder(cfg.Dimensions)
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, &errdefs.ConfigurationError{Field: "embedding.api_key_env", Reason: fmt.Sprintf("environment variable %s is not set", cfg.APIKeyEnv)}
		}
		e, err = NewOpenAIEmbedder(cfg.BaseURL, key, cfg.Model, cfg.Dimensions, cfg.Timeout)
	case "onnx":
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	default:
		return nil, &errdefs.ConfigurationError{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Provider, err)
	}
	logger.Debug("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", e.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
