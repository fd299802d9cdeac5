package extract

import (
	"fmt"
	"os"

	"github.com/lu4p/cat"
)

// extractWithCat handles OpenDocument text and RTF through lu4p/cat, which
// only reads from a path; content is spooled to a temp file first.
func extractWithCat(ext string) extractFunc {
	return func(content []byte) (string, error) {
		f, err := os.CreateTemp("", "voxkb-*"+ext)
		if err != nil {
			return "", fmt.Errorf("spool %s: %w", ext, err)
		}
		defer os.Remove(f.Name())
		if _, err := f.Write(content); err != nil {
			f.Close()
			return "", fmt.Errorf("spool %s: %w", ext, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("spool %s: %w", ext, err)
		}
		text, err := cat.File(f.Name())
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", ext, err)
		}
		return text, nil
	}
}
