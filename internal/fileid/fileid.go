// Package fileid names knowledge base documents and their stored uploads.
package fileid

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix          = "doc_"
	timestampLayout = "20060102_150405"
	stagingSuffix   = ".part"
)

// DocID returns the document ID for filename ingested at t:
// "doc_" + t formatted as YYYYMMDD_HHMMSS + "_" + filename.
func DocID(filename string, t time.Time) string {
	return prefix + t.Format(timestampLayout) + "_" + filename
}

// Timestamp parses the ingestion time back out of a DocID. ok is false for
// IDs not produced by DocID.
func Timestamp(docID string) (t time.Time, ok bool) {
	rest, found := strings.CutPrefix(docID, prefix)
	if !found || len(rest) < len(timestampLayout)+1 || rest[len(timestampLayout)] != '_' {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(timestampLayout, rest[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StagingName returns a unique temporary file name that keeps ext, so the
// staged file can be extracted before it gets its final name.
func StagingName(ext string) string {
	return uuid.NewString() + strings.ToLower(ext) + stagingSuffix
}

// IsStaging reports whether name was produced by StagingName.
func IsStaging(name string) bool {
	return strings.HasSuffix(filepath.Base(name), stagingSuffix)
}
