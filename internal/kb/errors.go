package kb

import (
	"errors"

	"github.com/hyperjump/voxkb/internal/extract"
)

// Error taxonomy shared by the indexer, the retrieval engine and the HTTP
// layer. Test with errors.Is.
var (
	ErrUnsupportedFormat  = extract.ErrUnsupportedFormat
	ErrEmbeddingFailure   = errors.New("embedding failure")
	ErrNotFound           = errors.New("document not found")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrCorruptState       = errors.New("corrupt knowledge base state")

	// ErrLocked is returned by Open when another process holds the data directory.
	ErrLocked = errors.New("knowledge base is locked by another process")
)
