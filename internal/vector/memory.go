package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/hyperjump/voxkb/pkg/utils"
)

// memoryMagic tags the on-disk format of a MemoryIndex.
var memoryMagic = [8]byte{'V', 'O', 'X', 'K', 'B', 'V', '0', '1'}

const memoryHeaderSize = 8 + 4 + 4

// ErrFormat is returned by Load when the file is not a valid index of the
// expected dimension.
var ErrFormat = errors.New("vector index format mismatch")

// MemoryIndex is an exact flat inner-product index held in memory.
type MemoryIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the fixed vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add appends vectors in order. Either all vectors are added or none are.
func (m *MemoryIndex) Add(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), m.dimensions)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k positions by inner product. Equal scores keep
// insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	scores := make([]VectorResult, len(m.vectors))
	for i, vec := range m.vectors {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scores[i] = VectorResult{Position: i, Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*VectorResult, k)
	for i := 0; i < k; i++ {
		r := scores[i]
		result[i] = &r
	}
	return result, nil
}

// Reconstruct returns a copy of the vector at position.
func (m *MemoryIndex) Reconstruct(position int) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if position < 0 || position >= len(m.vectors) {
		return nil, fmt.Errorf("position %d out of range [0,%d)", position, len(m.vectors))
	}
	out := make([]float32, m.dimensions)
	copy(out, m.vectors[position])
	return out, nil
}

// Save atomically persists the index to path. Format (little endian):
// magic (8), dimension (4), count (4), then count*dimension float32 values.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	return utils.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		if _, err := w.Write(memoryMagic[:]); err != nil {
			return fmt.Errorf("write magic: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
			return fmt.Errorf("write dimensions: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(m.vectors))); err != nil {
			return fmt.Errorf("write count: %w", err)
		}
		for _, vec := range m.vectors {
			if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
		return nil
	})
}

// Load reads the index from path and replaces the in-memory contents.
// A missing file leaves the index unchanged and returns nil. A file with a
// different magic, dimension, or an unexpected size returns ErrFormat and
// leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	r := bufio.NewReader(f)
	var header [memoryHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("%w: short header: %v", ErrFormat, err)
	}
	if [8]byte(header[:8]) != memoryMagic {
		return fmt.Errorf("%w: bad magic", ErrFormat)
	}
	dim := binary.LittleEndian.Uint32(header[8:12])
	n := binary.LittleEndian.Uint32(header[12:16])
	if int(dim) != m.dimensions {
		return fmt.Errorf("%w: file has dimension %d, index expects %d", ErrFormat, dim, m.dimensions)
	}
	want := int64(memoryHeaderSize) + int64(n)*int64(dim)*4
	if st.Size() != want {
		return fmt.Errorf("%w: file size %d, expected %d", ErrFormat, st.Size(), want)
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	m.mu.Lock()
	m.vectors = vectors
	m.mu.Unlock()
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
