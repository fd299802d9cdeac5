package kb

import (
	"context"

	"github.com/hyperjump/voxkb/internal/ledger"
	"github.com/hyperjump/voxkb/internal/vector"
)

// View is read access to the knowledge base, valid only inside Store.Read.
type View struct {
	index  vector.VectorIndex
	ledger *ledger.Ledger
}

// Size returns the number of entries.
func (v View) Size() int { return v.ledger.Size() }

// Dimensions returns the vector dimension.
func (v View) Dimensions() int { return v.index.Dimensions() }

// Search returns up to k positions by descending similarity to query.
func (v View) Search(ctx context.Context, query []float32, k int) ([]*vector.VectorResult, error) {
	return v.index.Search(ctx, query, k)
}

// Vector returns the exact vector stored at position.
func (v View) Vector(position int) ([]float32, error) {
	return v.index.Reconstruct(position)
}

// Record returns the metadata stored at position.
func (v View) Record(position int) (ledger.Record, bool) {
	return v.ledger.Get(position)
}

// Records returns a copy of every record in position order.
func (v View) Records() []ledger.Record {
	return v.ledger.Records()
}
