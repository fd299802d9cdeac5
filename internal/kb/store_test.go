package kb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/voxkb/internal/ledger"
)

const testDim = 3

func testOptions(dir string) Options {
	return Options{
		IndexPath:  filepath.Join(dir, "faiss_index.index"),
		LedgerPath: filepath.Join(dir, "metadata.json"),
		LockPath:   filepath.Join(dir, ".voxkb.lock"),
		IndexType:  "memory",
		Dimensions: testDim,
	}
}

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(testOptions(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// entries builds n unit vectors along one axis, each tagged with its text.
func entries(docID string, n int) ([][]float32, []ledger.Record) {
	vecs := make([][]float32, n)
	recs := make([]ledger.Record, n)
	for i := range n {
		v := make([]float32, testDim)
		v[i%testDim] = 1
		vecs[i] = v
		recs[i] = ledger.Record{
			DocID:      docID,
			Filename:   docID + ".txt",
			ChunkIndex: i,
			Text:       fmt.Sprintf("%s chunk %d", docID, i),
			CreatedAt:  time.Date(2024, 5, 1, 12, 0, i, 0, time.UTC),
		}
	}
	return vecs, recs
}

func snapshot(t *testing.T, s *Store) ([][]float32, []ledger.Record) {
	t.Helper()
	var vecs [][]float32
	var recs []ledger.Record
	require.NoError(t, s.Read(func(v View) error {
		recs = v.Records()
		for p := range v.Size() {
			vec, err := v.Vector(p)
			if err != nil {
				return err
			}
			vecs = append(vecs, vec)
		}
		return nil
	}))
	return vecs, recs
}

func TestStore_AppendAndReopen(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()

	v1, r1 := entries("d1", 3)
	v2, r2 := entries("d2", 2)
	require.NoError(t, s.Append(ctx, v1, r1))
	require.NoError(t, s.Append(ctx, v2, r2))

	vecs, recs := snapshot(t, s)
	require.Len(t, vecs, 5)
	require.Len(t, recs, 5)
	assert.Equal(t, append(v1, v2...), vecs)
	assert.Equal(t, "d2 chunk 0", recs[3].Text)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	assert.NoError(t, reopened.Recovered())
	gotVecs, gotRecs := snapshot(t, reopened)
	assert.Equal(t, vecs, gotVecs)
	assert.Equal(t, recs, gotRecs)
	assert.Equal(t, Stats{Documents: 2, Chunks: 5, Vectors: 5, Dimensions: testDim, IndexType: "memory"}, reopened.Stats())
}

func TestStore_AppendLengthMismatch(t *testing.T) {
	s := openStore(t, t.TempDir())
	v, r := entries("d", 2)
	assert.Error(t, s.Append(context.Background(), v, r[:1]))
	assert.Zero(t, s.Stats().Chunks)
}

func TestStore_AppendWrongDimensionLeavesStoreUnchanged(t *testing.T) {
	s := openStore(t, t.TempDir())
	_, r := entries("d", 1)
	assert.Error(t, s.Append(context.Background(), [][]float32{{1, 0}}, r))
	st := s.Stats()
	assert.Zero(t, st.Chunks)
	assert.Zero(t, st.Vectors)
}

func TestStore_AppendCanceled(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, r := entries("d", 2)
	assert.ErrorIs(t, s.Append(ctx, v, r), context.Canceled)
	assert.Zero(t, s.Stats().Vectors)
}

func TestStore_AppendPersistFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()
	v1, r1 := entries("keep", 2)
	require.NoError(t, s.Append(ctx, v1, r1))

	// A directory where the ledger file should go makes the rename fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))
	s.ledgerPath = blocked

	v2, r2 := entries("lost", 3)
	err := s.Append(ctx, v2, r2)
	require.ErrorIs(t, err, ErrPersistenceFailure)

	st := s.Stats()
	assert.Equal(t, 2, st.Chunks)
	assert.Equal(t, 2, st.Vectors)
	vecs, recs := snapshot(t, s)
	assert.Equal(t, v1, vecs)
	assert.Equal(t, r1, recs)
}

func TestStore_Remove(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()
	v1, r1 := entries("d1", 3)
	v2, r2 := entries("d2", 2)
	require.NoError(t, s.Append(ctx, v1, r1))
	require.NoError(t, s.Append(ctx, v2, r2))

	n, err := s.Remove(ctx, func(r ledger.Record) bool { return r.DocID == "d1" })
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	vecs, recs := snapshot(t, s)
	assert.Equal(t, v2, vecs)
	assert.Equal(t, r2, recs)

	_, err = s.Remove(ctx, func(r ledger.Record) bool { return r.DocID == "d1" })
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Close())
	reopened := openStore(t, dir)
	_, recs = snapshot(t, reopened)
	assert.Equal(t, r2, recs)
}

func TestStore_RemoveEverything(t *testing.T) {
	s := openStore(t, t.TempDir())
	v, r := entries("only", 2)
	require.NoError(t, s.Append(context.Background(), v, r))

	n, err := s.Remove(context.Background(), func(ledger.Record) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, s.Stats().Vectors)
}

func TestStore_Reset(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	v, r := entries("d", 3)
	require.NoError(t, s.Append(context.Background(), v, r))
	require.NoError(t, s.Reset(context.Background()))
	assert.Zero(t, s.Stats().Chunks)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	assert.Zero(t, reopened.Stats().Vectors)
	assert.NoError(t, reopened.Recovered())
}

func TestOpen_CorruptStateStartsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, opts Options)
	}{
		{"length mismatch", func(t *testing.T, opts Options) {
			s, err := Open(opts)
			require.NoError(t, err)
			v, r := entries("d", 2)
			require.NoError(t, s.Append(context.Background(), v, r))
			require.NoError(t, s.Close())
			require.NoError(t, os.WriteFile(opts.LedgerPath, []byte("[]"), 0o644))
		}},
		{"garbage ledger", func(t *testing.T, opts Options) {
			require.NoError(t, os.WriteFile(opts.LedgerPath, []byte("{not json"), 0o644))
		}},
		{"garbage index", func(t *testing.T, opts Options) {
			require.NoError(t, os.WriteFile(opts.IndexPath, []byte("not an index"), 0o644))
		}},
		{"dimension change", func(t *testing.T, opts Options) {
			other := opts
			other.Dimensions = 2
			s, err := Open(other)
			require.NoError(t, err)
			require.NoError(t, s.Append(context.Background(), [][]float32{{1, 0}}, []ledger.Record{{DocID: "d"}}))
			require.NoError(t, s.Close())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t.TempDir())
			tt.setup(t, opts)

			s, err := Open(opts)
			require.NoError(t, err)
			defer s.Close()
			assert.ErrorIs(t, s.Recovered(), ErrCorruptState)
			assert.Zero(t, s.Stats().Chunks)
			assert.Zero(t, s.Stats().Vectors)

			v, r := entries("fresh", 1)
			require.NoError(t, s.Append(context.Background(), v, r))
		})
	}
}

func TestOpen_Locked(t *testing.T) {
	dir := t.TempDir()
	first := openStore(t, dir)

	_, err := Open(testOptions(dir))
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Close())
	second, err := Open(testOptions(dir))
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestStore_ConcurrentReadersAndWriter(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 20 {
			v, r := entries(fmt.Sprintf("doc%d", i), 3)
			assert.NoError(t, s.Append(ctx, v, r))
			if i%3 == 0 {
				_, err := s.Remove(ctx, func(r ledger.Record) bool { return r.DocID == fmt.Sprintf("doc%d", i) })
				assert.NoError(t, err)
			}
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = s.Read(func(v View) error {
					assert.Equal(t, v.Size(), len(v.Records()))
					for p := range v.Size() {
						rec, ok := v.Record(p)
						assert.True(t, ok)
						vec, err := v.Vector(p)
						assert.NoError(t, err)
						assert.Len(t, vec, testDim)
						assert.Equal(t, float32(1), vec[rec.ChunkIndex%testDim])
					}
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 13*3, s.Stats().Chunks)
}
