package embedding

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
)

// NewFromConfig builds the configured provider wrapped in a CachedEmbedder.
// A negative cache_size disables caching.
func NewFromConfig(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		inner Embedder
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderHash:
		inner = NewHashEmbedder(cfg.Dimensions)
	case ProviderONNX:
		inner, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			OutputName: cfg.OutputName,
		})
	case ProviderHTTP:
		inner, err = NewHTTPEmbedder(HTTPConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey(),
			Model:       cfg.Model,
			Dimensions:  cfg.Dimensions,
			Timeout:     cfg.Timeout,
			BatchSize:   cfg.BatchSize,
			Concurrency: cfg.Concurrency,
			MaxRetries:  cfg.MaxRetries,
		}, logger.Named("embedding"))
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Provider, err)
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", inner.ModelName()),
		zap.Int("dimensions", inner.Dimensions()))
	if cfg.CacheSize < 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
