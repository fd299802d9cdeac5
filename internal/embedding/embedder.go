// Package embedding maps text to unit-normalized vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every returned vector has
// Dimensions() elements and unit L2 norm, so inner product equals cosine
// similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelName identifies the model; cache keys include it.
	ModelName() string
	Close() error
}

// Provider names accepted by NewFromConfig.
const (
	ProviderHash = "hash"
	ProviderONNX = "onnx"
	ProviderHTTP = "http"
)
