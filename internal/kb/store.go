// Package kb holds the knowledge base: a vector index and its metadata ledger,
// kept position-aligned, guarded by one readers-writer lock and persisted as a
// unit.
package kb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/ledger"
	"github.com/hyperjump/voxkb/internal/vector"
)

// Options configures Open.
type Options struct {
	IndexPath  string
	LedgerPath string
	// LockPath, when set, is flocked for the lifetime of the Store.
	LockPath   string
	IndexType  string
	Dimensions int
	Logger     *zap.Logger
}

// Store is the knowledge base. Every exported method is safe for concurrent
// use. Mutations hold the write lock through persistence.
type Store struct {
	mu       sync.RWMutex
	index    vector.VectorIndex
	ledger   *ledger.Ledger
	newIndex func() (vector.VectorIndex, error)

	indexPath  string
	ledgerPath string
	lock       *flock.Flock
	recovered  error
	logger     *zap.Logger
}

// Open loads the knowledge base from disk. Missing files give an empty store.
// Unreadable or mismatched files are logged and replaced by an empty store;
// Recovered reports the cause.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		newIndex:   vector.Factory(opts.IndexType, opts.Dimensions),
		indexPath:  opts.IndexPath,
		ledgerPath: opts.LedgerPath,
		logger:     logger,
	}
	for _, p := range []string{opts.IndexPath, opts.LedgerPath, opts.LockPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	if opts.LockPath != "" {
		fl := flock.New(opts.LockPath)
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock data dir: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, opts.LockPath)
		}
		s.lock = fl
	}

	idx, led, err := s.load()
	if err != nil {
		s.logger.Warn("knowledge base unreadable, starting empty",
			zap.String("index", s.indexPath),
			zap.String("ledger", s.ledgerPath),
			zap.Error(err))
		s.recovered = err
		if idx != nil {
			_ = idx.Close()
		}
		idx, err = s.newIndex()
		if err != nil {
			s.unlock()
			return nil, fmt.Errorf("create index: %w", err)
		}
		led = ledger.New()
	}
	s.index, s.ledger = idx, led
	s.logger.Info("knowledge base loaded",
		zap.String("index_type", idx.Type()),
		zap.Int("chunks", led.Size()))
	return s, nil
}

// load returns a non-nil index whenever one was created, even on error.
func (s *Store) load() (vector.VectorIndex, *ledger.Ledger, error) {
	idx, err := s.newIndex()
	if err != nil {
		return nil, nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Load(s.indexPath); err != nil {
		return idx, nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	led, err := ledger.Load(s.ledgerPath)
	if err != nil {
		return idx, nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if idx.Size() != led.Size() {
		return idx, nil, fmt.Errorf("%w: index has %d vectors, ledger has %d records",
			ErrCorruptState, idx.Size(), led.Size())
	}
	return idx, led, nil
}

// Recovered returns the load error that caused Open to start empty, or nil.
func (s *Store) Recovered() error {
	return s.recovered
}

// Read runs fn under the read lock. The View must not be retained after fn
// returns.
func (s *Store) Read(fn func(View) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(View{index: s.index, ledger: s.ledger})
}

// Append adds vectors and their records in one step. Either both structures
// grow and are persisted, or neither changes.
func (s *Store) Append(ctx context.Context, vectors [][]float32, records []ledger.Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("append: %d vectors but %d records", len(vectors), len(records))
	}
	if len(vectors) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ledger.Size()
	if err := s.index.Add(ctx, vectors); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	if err := ctx.Err(); err != nil {
		s.rollback(prev)
		return err
	}
	s.ledger.Append(records...)

	if err := s.persist(s.index, s.ledger); err != nil {
		s.rollback(prev)
		if rerr := s.persist(s.index, s.ledger); rerr != nil {
			s.logger.Error("failed to restore knowledge base files after rollback", zap.Error(rerr))
		}
		return err
	}
	return nil
}

// rollback shrinks both structures back to n entries. The index cannot drop
// entries, so it is rebuilt from the first n vectors.
func (s *Store) rollback(n int) {
	s.ledger.Truncate(n)
	if s.index.Size() == n {
		return
	}
	keep := make([]int, n)
	for i := range keep {
		keep[i] = i
	}
	idx, err := s.rebuildIndex(context.Background(), keep)
	if err != nil {
		// Leave the ledger authoritative; the next load will detect the mismatch.
		s.logger.Error("index rollback failed", zap.Int("size", n), zap.Error(err))
		return
	}
	_ = s.index.Close()
	s.index = idx
}

// Remove deletes every entry whose record matches and returns how many were
// removed. The index and ledger are rebuilt from the surviving positions in
// their original order. ErrNotFound is returned when nothing matches.
func (s *Store) Remove(ctx context.Context, match func(ledger.Record) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := s.ledger.Filter(func(r ledger.Record) bool { return !match(r) })
	removed := s.ledger.Size() - len(keep)
	if removed == 0 {
		return 0, ErrNotFound
	}

	idx, err := s.rebuildIndex(ctx, keep)
	if err != nil {
		return 0, err
	}
	led := ledger.New()
	for _, pos := range keep {
		r, _ := s.ledger.Get(pos)
		led.Append(r)
	}
	if err := s.commit(idx, led); err != nil {
		_ = idx.Close()
		return 0, err
	}
	return removed, nil
}

// Reset replaces the knowledge base with an empty one.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.newIndex()
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.commit(idx, ledger.New()); err != nil {
		_ = idx.Close()
		return err
	}
	return nil
}

func (s *Store) rebuildIndex(ctx context.Context, positions []int) (vector.VectorIndex, error) {
	idx, err := s.newIndex()
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	vectors := make([][]float32, 0, len(positions))
	for _, pos := range positions {
		v, err := s.index.Reconstruct(pos)
		if err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("%w: reconstruct position %d: %v", ErrCorruptState, pos, err)
		}
		vectors = append(vectors, v)
	}
	if err := idx.Add(ctx, vectors); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return idx, nil
}

// commit persists idx and led, then swaps them in. On failure the current
// structures stay in place and their files are rewritten.
func (s *Store) commit(idx vector.VectorIndex, led *ledger.Ledger) error {
	if err := s.persist(idx, led); err != nil {
		if rerr := s.persist(s.index, s.ledger); rerr != nil {
			s.logger.Error("failed to restore knowledge base files", zap.Error(rerr))
		}
		return err
	}
	old := s.index
	s.index, s.ledger = idx, led
	if old != idx {
		_ = old.Close()
	}
	return nil
}

// persist writes vectors first, then the ledger.
func (s *Store) persist(idx vector.VectorIndex, led *ledger.Ledger) error {
	if err := idx.Save(s.indexPath); err != nil {
		return fmt.Errorf("%w: save index: %v", ErrPersistenceFailure, err)
	}
	if s.ledgerPath == "" {
		return nil
	}
	if err := led.Save(s.ledgerPath); err != nil {
		return fmt.Errorf("%w: save ledger: %v", ErrPersistenceFailure, err)
	}
	return nil
}

// Stats describes the current contents.
type Stats struct {
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Vectors    int    `json:"vectors"`
	Dimensions int    `json:"dimensions"`
	IndexType  string `json:"index_type"`
}

// Stats returns counts under the read lock.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make(map[string]struct{})
	for _, r := range s.ledger.Records() {
		docs[r.DocID] = struct{}{}
	}
	return Stats{
		Documents:  len(docs),
		Chunks:     s.ledger.Size(),
		Vectors:    s.index.Size(),
		Dimensions: s.index.Dimensions(),
		IndexType:  s.index.Type(),
	}
}

// Close releases the index and the data directory lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	errs = append(errs, s.unlock())
	return errors.Join(errs...)
}

func (s *Store) unlock() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}
