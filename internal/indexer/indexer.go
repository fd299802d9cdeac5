package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
	"github.com/hyperjump/voxkb/internal/embedding"
	"github.com/hyperjump/voxkb/internal/extract"
	"github.com/hyperjump/voxkb/internal/fileid"
	"github.com/hyperjump/voxkb/internal/kb"
	"github.com/hyperjump/voxkb/internal/ledger"
	"github.com/hyperjump/voxkb/internal/models"
	"github.com/hyperjump/voxkb/internal/storage"
	"github.com/hyperjump/voxkb/pkg/utils"
)

// Indexer manages the document lifecycle: ingest, delete, clear and list.
type Indexer struct {
	store      *kb.Store
	embedder   embedding.Embedder
	chunker    *Chunker
	extractor  *extract.Extractor
	registry   storage.Registry
	uploadsDir string
	now        func() time.Time
	logger     *zap.Logger

	// pending holds doc IDs assigned to ingests that have not committed yet.
	mu      sync.Mutex
	pending map[string]struct{}
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithUploads stores uploaded files under dir and records them in registry.
func WithUploads(registry storage.Registry, dir string) IndexerOption {
	return func(idx *Indexer) {
		idx.registry = registry
		idx.uploadsDir = dir
	}
}

// WithClock overrides the ingestion clock.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an indexer. extractor may be nil, in which case every
// known format is accepted.
func NewIndexer(
	store *kb.Store,
	embedder embedding.Embedder,
	extractor *extract.Extractor,
	cfg *config.KnowledgeBaseConfig,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:     store,
		embedder:  embedder,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extractor: extractor,
		now:       time.Now,
		logger:    zap.NewNop(),
		pending:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest chunks text, embeds every chunk in one batch and appends the result
// to the knowledge base under a new doc_id. Text that yields no chunks
// returns a result with zero chunks and leaves the store untouched.
func (idx *Indexer) Ingest(ctx context.Context, text, filename string) (*models.IngestResult, error) {
	at := idx.now()
	docID, release := idx.reserveDocID(filename, at)
	defer release()

	chunks := idx.chunker.Split(text)
	result := &models.IngestResult{DocID: docID, Filename: filename, Chunks: len(chunks)}
	if len(chunks) == 0 {
		idx.logger.Info("document produced no chunks", zap.String("filename", filename))
		return result, nil
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kb.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", kb.ErrEmbeddingFailure, len(vectors), len(chunks))
	}

	records := make([]ledger.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = ledger.Record{
			DocID:      docID,
			Filename:   filename,
			ChunkIndex: i,
			Text:       chunk,
			CreatedAt:  at,
		}
	}
	if err := idx.store.Append(ctx, vectors, records); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", filename, err)
	}
	idx.logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)))
	return result, nil
}

// reserveDocID assigns a doc_id not used by the store or by another ingest in
// flight. A same-second re-ingest of the same filename gets a numeric suffix.
func (idx *Indexer) reserveDocID(filename string, at time.Time) (string, func()) {
	base := fileid.DocID(filename, at)
	existing := make(map[string]struct{})
	_ = idx.store.Read(func(v kb.View) error {
		for _, r := range v.Records() {
			if strings.HasPrefix(r.DocID, base) {
				existing[r.DocID] = struct{}{}
			}
		}
		return nil
	})

	idx.mu.Lock()
	defer idx.mu.Unlock()
	id := base
	for n := 2; ; n++ {
		_, inStore := existing[id]
		_, inFlight := idx.pending[id]
		if !inStore && !inFlight {
			break
		}
		id = base + "_" + strconv.Itoa(n)
	}
	idx.pending[id] = struct{}{}
	return id, func() {
		idx.mu.Lock()
		delete(idx.pending, id)
		idx.mu.Unlock()
	}
}

// IngestFile extracts the file at path and ingests it as filename (the base
// name of path when empty). The extension of filename must be supported.
func (idx *Indexer) IngestFile(ctx context.Context, path, filename string) (*models.IngestResult, error) {
	if filename == "" {
		filename = filepath.Base(path)
	}
	if err := idx.extractor.CheckFilename(filename); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text, err := idx.extractor.ExtractBytes(content, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	return idx.Ingest(ctx, text, filename)
}

// IngestUpload stores an uploaded file and ingests it. The file is staged
// under a temporary name, extracted, ingested, then renamed after its doc_id
// and recorded in the upload registry. Nothing is kept if ingestion fails.
func (idx *Indexer) IngestUpload(ctx context.Context, r io.Reader, filename string) (*models.IngestResult, error) {
	filename = utils.SafeFilename(filename)
	if err := idx.extractor.CheckFilename(filename); err != nil {
		return nil, err
	}
	if idx.uploadsDir == "" {
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		text, err := idx.extractor.ExtractBytes(content, filepath.Ext(filename))
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", filename, err)
		}
		return idx.Ingest(ctx, text, filename)
	}

	if err := os.MkdirAll(idx.uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	staged := filepath.Join(idx.uploadsDir, fileid.StagingName(filepath.Ext(filename)))
	size, err := writeFile(staged, r)
	if err != nil {
		_ = os.Remove(staged)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	result, err := idx.IngestFile(ctx, staged, filename)
	if err != nil {
		_ = os.Remove(staged)
		return nil, err
	}

	stored := filepath.Join(idx.uploadsDir, utils.SafeFilename(result.DocID))
	if err := os.Rename(staged, stored); err != nil {
		idx.logger.Warn("failed to move upload into place", zap.String("path", staged), zap.Error(err))
		stored = staged
	}
	if idx.registry != nil {
		up := &storage.Upload{
			DocID:      result.DocID,
			Filename:   filename,
			StoredPath: stored,
			SizeBytes:  size,
			Chunks:     result.Chunks,
			CreatedAt:  idx.now(),
		}
		if err := idx.registry.Put(ctx, up); err != nil {
			idx.logger.Warn("failed to register upload", zap.String("doc_id", result.DocID), zap.Error(err))
		}
	}
	return result, nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// DeleteDocument removes every chunk of docID and rebuilds the knowledge
// base. The stored upload, if any, is removed too. Returns kb.ErrNotFound
// when docID has no chunks.
func (idx *Indexer) DeleteDocument(ctx context.Context, docID string) error {
	n, err := idx.store.Remove(ctx, func(r ledger.Record) bool { return r.DocID == docID })
	if err != nil {
		return fmt.Errorf("delete %s: %w", docID, err)
	}
	idx.forgetUploads(ctx, docID)
	idx.logger.Info("document deleted", zap.String("doc_id", docID), zap.Int("chunks", n))
	return nil
}

// DeleteByFilename removes every document ingested under filename and
// returns how many chunks were removed.
func (idx *Indexer) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	return idx.deleteByFilename(ctx, filename, "")
}

// deleteByFilename removes documents named filename except keepDocID.
func (idx *Indexer) deleteByFilename(ctx context.Context, filename, keepDocID string) (int, error) {
	docIDs := make(map[string]struct{})
	n, err := idx.store.Remove(ctx, func(r ledger.Record) bool {
		if r.Filename != filename || r.DocID == keepDocID {
			return false
		}
		docIDs[r.DocID] = struct{}{}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", filename, err)
	}
	ids := make([]string, 0, len(docIDs))
	for id := range docIDs {
		ids = append(ids, id)
	}
	idx.forgetUploads(ctx, ids...)
	idx.logger.Info("documents deleted by filename",
		zap.String("filename", filename),
		zap.Int("documents", len(ids)),
		zap.Int("chunks", n))
	return n, nil
}

// ReplaceFile ingests the file at path, then removes older documents with the
// same filename. If ingestion fails the older documents are kept.
func (idx *Indexer) ReplaceFile(ctx context.Context, path string) (*models.IngestResult, error) {
	result, err := idx.IngestFile(ctx, path, "")
	if err != nil {
		return nil, err
	}
	if _, err := idx.deleteByFilename(ctx, result.Filename, result.DocID); err != nil && !errors.Is(err, kb.ErrNotFound) {
		return result, err
	}
	return result, nil
}

// ClearAll empties the knowledge base and removes every stored upload. It
// returns the filenames of the uploads that were removed.
func (idx *Indexer) ClearAll(ctx context.Context) ([]string, error) {
	if err := idx.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("clear knowledge base: %w", err)
	}
	deleted := []string{}
	if idx.registry != nil {
		removed, err := idx.registry.Clear(ctx)
		if err != nil {
			idx.logger.Warn("failed to clear upload registry", zap.Error(err))
		}
		for _, u := range removed {
			if removeQuietly(u.StoredPath, idx.logger) {
				deleted = append(deleted, u.Filename)
			}
		}
	}
	idx.logger.Info("knowledge base cleared", zap.Int("uploads_removed", len(deleted)))
	return deleted, nil
}

// forgetUploads drops registry rows and stored files for docIDs.
func (idx *Indexer) forgetUploads(ctx context.Context, docIDs ...string) {
	if idx.registry == nil {
		return
	}
	for _, id := range docIDs {
		u, err := idx.registry.Delete(ctx, id)
		if err != nil {
			if !errors.Is(err, storage.ErrUploadNotFound) {
				idx.logger.Warn("failed to remove upload record", zap.String("doc_id", id), zap.Error(err))
			}
			continue
		}
		removeQuietly(u.StoredPath, idx.logger)
	}
}

func removeQuietly(path string, logger *zap.Logger) bool {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove stored upload", zap.String("path", path), zap.Error(err))
	}
	return err == nil
}

// ListDocuments groups chunks by doc_id, in order of first appearance.
func (idx *Indexer) ListDocuments() []models.DocumentInfo {
	var docs []models.DocumentInfo
	_ = idx.store.Read(func(v kb.View) error {
		byID := make(map[string]int)
		for _, r := range v.Records() {
			i, ok := byID[r.DocID]
			if !ok {
				byID[r.DocID] = len(docs)
				docs = append(docs, models.DocumentInfo{
					DocID:     r.DocID,
					Filename:  r.Filename,
					CreatedAt: r.CreatedAt,
				})
				i = len(docs) - 1
			}
			docs[i].Chunks++
			if r.CreatedAt.Before(docs[i].CreatedAt) {
				docs[i].CreatedAt = r.CreatedAt
			}
		}
		return nil
	})
	if docs == nil {
		docs = []models.DocumentInfo{}
	}
	return docs
}

// IngestedAt returns the latest created_at of the chunks ingested under
// filename. ok is false when the knowledge base has none.
func (idx *Indexer) IngestedAt(filename string) (at time.Time, ok bool) {
	_ = idx.store.Read(func(v kb.View) error {
		for _, r := range v.Records() {
			if r.Filename == filename && (!ok || r.CreatedAt.After(at)) {
				at, ok = r.CreatedAt, true
			}
		}
		return nil
	})
	return at, ok
}

// EmbedderModel names the embedding model in use.
func (idx *Indexer) EmbedderModel() string {
	return idx.embedder.ModelName()
}

// Stats returns knowledge base counts.
func (idx *Indexer) Stats() kb.Stats {
	return idx.store.Stats()
}

// Supported returns the accepted file extensions.
func (idx *Indexer) Supported() []string {
	return idx.extractor.Supported()
}

// IsSupported reports whether files named like path can be ingested.
func (idx *Indexer) IsSupported(path string) bool {
	return idx.extractor.IsSupported(filepath.Ext(path))
}
