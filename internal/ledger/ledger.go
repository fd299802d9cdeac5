// Package ledger stores the per-position metadata that describes each vector
// in the knowledge base. Position i in the ledger always describes vector i.
package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hyperjump/voxkb/pkg/utils"
)

// Record describes one chunk.
type Record struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger is an ordered list of records. It is not safe for concurrent use;
// the knowledge base serializes access.
type Ledger struct {
	records []Record
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{records: make([]Record, 0)}
}

// Append adds records at the end, in order.
func (l *Ledger) Append(records ...Record) {
	l.records = append(l.records, records...)
}

// Get returns the record at position.
func (l *Ledger) Get(position int) (Record, bool) {
	if position < 0 || position >= len(l.records) {
		return Record{}, false
	}
	return l.records[position], true
}

// Filter returns, in ascending order, the positions whose record satisfies keep.
func (l *Ledger) Filter(keep func(Record) bool) []int {
	positions := make([]int, 0, len(l.records))
	for i, r := range l.records {
		if keep(r) {
			positions = append(positions, i)
		}
	}
	return positions
}

// Size returns the number of records.
func (l *Ledger) Size() int {
	return len(l.records)
}

// Truncate drops every record at or after position n.
func (l *Ledger) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(l.records) {
		clear(l.records[n:])
		l.records = l.records[:n]
	}
}

// Records returns a copy of all records in order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Save atomically writes the ledger as a JSON array.
func (l *Ledger) Save(path string) error {
	return utils.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(l.records); err != nil {
			return fmt.Errorf("encode ledger: %w", err)
		}
		return nil
	})
}

// Load reads a ledger saved by Save. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if records == nil {
		records = make([]Record, 0)
	}
	return &Ledger{records: records}, nil
}
