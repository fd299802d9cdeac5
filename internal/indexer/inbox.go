package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/hyperjump/voxkb/internal/kb"
)

// Inbox adapts an Indexer to the inbox watcher: a changed file replaces the
// documents ingested under its name, a removed file deletes them.
type Inbox struct {
	idx *Indexer
}

// NewInbox returns an Inbox backed by idx.
func NewInbox(idx *Indexer) *Inbox {
	return &Inbox{idx: idx}
}

// Accept reports whether path has a supported extension.
func (in *Inbox) Accept(path string) bool {
	return in.idx.IsSupported(path)
}

func (in *Inbox) FileChanged(ctx context.Context, path string) error {
	_, err := in.idx.ReplaceFile(ctx, path)
	return err
}

// UpToDate reports whether path was ingested no earlier than modTime.
func (in *Inbox) UpToDate(path string, modTime time.Time) bool {
	at, ok := in.idx.IngestedAt(filepath.Base(path))
	return ok && !at.Before(modTime)
}

func (in *Inbox) FileRemoved(ctx context.Context, path string) error {
	_, err := in.idx.DeleteByFilename(ctx, filepath.Base(path))
	if errors.Is(err, kb.ErrNotFound) {
		return nil
	}
	return err
}
