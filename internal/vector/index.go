// Package vector provides the append-only vector store used by the knowledge base.
package vector

import "context"

// VectorIndex is an append-only similarity index over unit-normalized vectors.
// Entries are addressed by position: the i-th appended vector lives at position i
// for the lifetime of the index. There is no removal; callers compact by building
// a fresh index from reconstructed vectors.
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns at most k hits ordered by descending inner product.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// Reconstruct returns an exact copy of the vector stored at position.
	Reconstruct(position int) ([]float32, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	Position int
	Score    float64 // Inner product, equal to cosine similarity for normalized vectors
}
