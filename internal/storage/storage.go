// Package storage keeps the bookkeeping for uploaded source files: where each
// upload lives on disk and which knowledge base document it produced.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUploadNotFound is returned when no upload is registered for a doc_id.
var ErrUploadNotFound = errors.New("upload not found")

// Upload is one stored source file.
type Upload struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"stored_path"`
	SizeBytes  int64     `json:"size_bytes"`
	Chunks     int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

// Registry records uploads.
type Registry interface {
	Put(ctx context.Context, u *Upload) error
	Get(ctx context.Context, docID string) (*Upload, error)
	// Delete removes the row and returns it.
	Delete(ctx context.Context, docID string) (*Upload, error)
	List(ctx context.Context) ([]*Upload, error)
	// Clear removes every row and returns what was removed.
	Clear(ctx context.Context) ([]*Upload, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
