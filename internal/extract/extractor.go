// Package extract turns uploaded document files into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported file format")

type extractFunc func(content []byte) (string, error)

var extractors = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".txt":  extractPlain,
	".md":   extractPlain,
	".xlsx": extractExcel,
	".pptx": extractPPTX,
	".odt":  extractWithCat(".odt"),
	".rtf":  extractWithCat(".rtf"),
}

// Extractor extracts plain text from document files. It only accepts the
// extensions it was constructed with.
type Extractor struct {
	allowed map[string]bool
}

// NewExtractor returns an Extractor limited to exts (with leading dots,
// case-insensitive). With no arguments every known format is accepted.
// Unknown extensions in exts are ignored.
func NewExtractor(exts ...string) *Extractor {
	allowed := make(map[string]bool)
	if len(exts) == 0 {
		for ext := range extractors {
			allowed[ext] = true
		}
	}
	for _, ext := range exts {
		ext = normalizeExt(ext)
		if _, ok := extractors[ext]; ok {
			allowed[ext] = true
		}
	}
	return &Extractor{allowed: allowed}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Supported returns the accepted extensions, sorted.
func (e *Extractor) Supported() []string {
	out := make([]string, 0, len(e.allowed))
	for ext := range e.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether ext (e.g. ".PDF") is accepted.
func (e *Extractor) IsSupported(ext string) bool {
	return e.allowed[normalizeExt(ext)]
}

// CheckFilename returns ErrUnsupportedFormat (wrapped) when name's extension
// is not accepted.
func (e *Extractor) CheckFilename(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !e.IsSupported(ext) {
		if ext == "" {
			return fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return nil
}

// Extract reads the file at path and returns its text content. The extension
// is checked before the file is opened.
func (e *Extractor) Extract(path string) (string, error) {
	if err := e.CheckFilename(path); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on the given extension
// (with leading dot, e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = normalizeExt(ext)
	if !e.allowed[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return extractors[ext](content)
}
