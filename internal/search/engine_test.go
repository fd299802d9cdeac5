package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/voxkb/internal/config"
	"github.com/hyperjump/voxkb/internal/embedding"
	"github.com/hyperjump/voxkb/internal/kb"
	"github.com/hyperjump/voxkb/internal/ledger"
)

// tableEmbedder returns fixed vectors for known texts.
type tableEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vecs[text]
	if !ok {
		return nil, fmt.Errorf("unknown text %q", text)
	}
	return v, nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int   { return 3 }
func (e *tableEmbedder) ModelName() string { return "table" }
func (e *tableEmbedder) Close() error      { return nil }

var _ embedding.Embedder = (*tableEmbedder)(nil)

func testKBConfig() *config.KnowledgeBaseConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return &cfg.KnowledgeBase
}

func openTestStore(t *testing.T, dir string) *kb.Store {
	t.Helper()
	s, err := kb.Open(kb.Options{
		IndexPath:  filepath.Join(dir, "faiss_index.index"),
		LedgerPath: filepath.Join(dir, "metadata.json"),
		IndexType:  "memory",
		Dimensions: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *kb.Store, texts []string, vecs [][]float32) {
	t.Helper()
	recs := make([]ledger.Record, len(texts))
	for i, text := range texts {
		recs[i] = ledger.Record{DocID: "doc_1", Filename: "handbook.pdf", ChunkIndex: i, Text: text, CreatedAt: time.Now()}
	}
	require.NoError(t, s.Append(context.Background(), vecs, recs))
}

func TestEngine_RetrieveEmpty(t *testing.T) {
	emb := &tableEmbedder{err: errors.New("should not be called")}
	e := NewEngine(openTestStore(t, t.TempDir()), emb, testKBConfig())

	got, err := e.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.NotNil(t, got.Chunks)
	assert.Zero(t, got.Len())
}

func TestEngine_RetrieveDiverse(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	seed(t, s,
		[]string{"near one", "near two", "distinct", "near three"},
		[][]float32{{0.9, 0.4359, 0}, {0.89, 0.456, 0}, {0.8, -0.6, 0}, {0.88, 0.475, 0}})
	emb := &tableEmbedder{vecs: map[string][]float32{"question": {1, 0, 0}}}
	e := NewEngine(s, emb, testKBConfig())

	got, err := e.Retrieve(context.Background(), "question", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"near one", "distinct"}, got.Chunks)
	assert.Equal(t, []string{"handbook.pdf (chunk 0)", "handbook.pdf (chunk 2)"}, got.Sources)
	assert.Equal(t, []float64{0.9, 0.8}, got.Scores)
}

func TestEngine_RetrieveThresholdFallback(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	seed(t, s,
		[]string{"a", "b", "c"},
		[][]float32{{0.2, 0.9798, 0}, {0.1, 0, 0.995}, {0.25, 0, -0.9682}})
	emb := &tableEmbedder{vecs: map[string][]float32{"q": {1, 0, 0}}}
	e := NewEngine(s, emb, testKBConfig())

	got, err := e.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "c", got.Chunks[0])
	for _, sc := range got.Scores {
		assert.Less(t, sc, 0.30)
	}
}

func TestEngine_RetrieveDefaultTopKAndRounding(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	texts := make([]string, 8)
	vecs := make([][]float32, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
		// Orthogonal to each other except for the shared query component.
		v := []float32{0.6, 0, 0}
		if i%2 == 0 {
			v[1] = 0.8
		} else {
			v[2] = 0.8
		}
		vecs[i] = v
	}
	seed(t, s, texts, vecs)
	emb := &tableEmbedder{vecs: map[string][]float32{"q": {0.123456, 0, 0.992350}}}
	cfg := testKBConfig()
	cfg.DefaultTopK = 3
	e := NewEngine(s, emb, cfg)

	got, err := e.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
	for _, sc := range got.Scores {
		assert.InDelta(t, math.Round(sc*1e4)/1e4, sc, 1e-12)
	}
}

func TestEngine_RetrieveEmbeddingFailure(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	seed(t, s, []string{"a"}, [][]float32{{1, 0, 0}})
	e := NewEngine(s, &tableEmbedder{err: errors.New("model offline")}, testKBConfig())

	_, err := e.Retrieve(context.Background(), "q", 1)
	assert.ErrorIs(t, err, kb.ErrEmbeddingFailure)
}

func TestEngine_RetrieveStableAcrossReload(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	seed(t, s,
		[]string{"near one", "near two", "distinct", "near three"},
		[][]float32{{0.9, 0.4359, 0}, {0.89, 0.456, 0}, {0.8, -0.6, 0}, {0.88, 0.475, 0}})
	emb := &tableEmbedder{vecs: map[string][]float32{"question": {1, 0, 0}}}

	before, err := NewEngine(s, emb, testKBConfig()).Retrieve(context.Background(), "question", 3)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	after, err := NewEngine(openTestStore(t, dir), emb, testKBConfig()).Retrieve(context.Background(), "question", 3)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
