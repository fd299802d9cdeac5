// Package search retrieves the knowledge base chunks most relevant to a
// query: similarity search, a score threshold with fallback, then maximal
// marginal relevance re-ranking.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
	"github.com/hyperjump/voxkb/internal/embedding"
	"github.com/hyperjump/voxkb/internal/kb"
	"github.com/hyperjump/voxkb/internal/models"
	"github.com/hyperjump/voxkb/pkg/utils"
)

// Default retrieval parameters.
const (
	DefaultScoreThreshold  = 0.30
	DefaultMMRLambda       = 0.7
	DefaultFetchMultiplier = 4
)

// Engine answers retrieval queries against a knowledge base.
type Engine struct {
	store    *kb.Store
	embedder embedding.Embedder
	config   *config.KnowledgeBaseConfig
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(store *kb.Store, embedder embedding.Embedder, cfg *config.KnowledgeBaseConfig, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns up to topK chunks for query. topK <= 0 uses the configured
// default. An empty knowledge base gives an empty result, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) (*models.RAGContext, error) {
	topK = resolveTopK(topK, e.config.DefaultTopK)
	out := models.EmptyContext()

	var empty bool
	_ = e.store.Read(func(v kb.View) error {
		empty = v.Size() == 0
		return nil
	})
	if empty {
		return out, nil
	}

	// Embedding runs outside the lock so writers are not held up by it.
	q, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", kb.ErrEmbeddingFailure, err)
	}

	err = e.store.Read(func(v kb.View) error {
		size := v.Size()
		if size == 0 {
			return nil
		}
		hits, err := v.Search(ctx, q, fetchSize(topK, e.config.FetchMultiplier, size))
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		candidates := make([]Candidate, 0, len(hits))
		for _, h := range hits {
			if h.Position >= 0 && h.Position < size {
				candidates = append(candidates, Candidate{Position: h.Position, Score: h.Score})
			}
		}
		candidates = FilterByThreshold(candidates, e.config.ScoreThreshold, topK)
		selected, err := SelectMMR(candidates, topK, e.config.MMRLambda, v.Vector)
		if err != nil {
			return fmt.Errorf("mmr: %w", err)
		}
		for _, c := range selected {
			rec, ok := v.Record(c.Position)
			if !ok {
				continue
			}
			out.Chunks = append(out.Chunks, rec.Text)
			out.Sources = append(out.Sources, SourceLabel(rec.Filename, rec.ChunkIndex))
			out.Scores = append(out.Scores, utils.Round(c.Score, 4))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("retrieved chunks",
		zap.Int("top_k", topK),
		zap.Int("count", out.Len()),
		zap.Float64s("scores", out.Scores))
	return out, nil
}

// SourceLabel is the human-readable origin of a chunk.
func SourceLabel(filename string, chunkIndex int) string {
	return fmt.Sprintf("%s (chunk %d)", filename, chunkIndex)
}
