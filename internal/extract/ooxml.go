package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// readZipEntry returns the contents of the named entry, or nil if absent.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, nil
}

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// paragraphText collects the text runs matched by runRe inside every block
// matched by blockRe. Runs inside a block are concatenated as-is; blocks are
// joined by newlines. XML entities are decoded.
func paragraphText(xml string, blockRe, runRe *regexp.Regexp) []string {
	var paras []string
	for _, block := range blockRe.FindAllString(xml, -1) {
		var b strings.Builder
		for _, run := range runRe.FindAllStringSubmatch(block, -1) {
			b.WriteString(html.UnescapeString(run[1]))
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			paras = append(paras, s)
		}
	}
	return paras
}
