// Package cli renders voxkb results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/hyperjump/voxkb/internal/models"
	"github.com/hyperjump/voxkb/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

const previewChars = 240

var (
	heading = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	fair    = color.New(color.FgYellow).SprintFunc()
	poor    = color.New(color.FgRed).SprintFunc()
	warn    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// scoreColor shades a similarity by the retrieval threshold bands.
func scoreColor(score float64) string {
	s := fmt.Sprintf("%.4f", score)
	switch {
	case score >= 0.6:
		return good(s)
	case score >= 0.3:
		return fair(s)
	default:
		return poor(s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieval writes a retrieval result.
func WriteRetrieval(w io.Writer, query string, rag *models.RAGContext, format OutputFormat) error {
	if rag == nil {
		rag = models.EmptyContext()
	}
	if format == OutputJSON {
		return writeJSON(w, rag)
	}
	if rag.Len() == 0 {
		fmt.Fprintf(w, "No results for %q\n", query)
		return nil
	}
	fmt.Fprintf(w, "\n%d result(s) for %q\n\n", rag.Len(), query)
	for i := range rag.Chunks {
		fmt.Fprintf(w, "%s %s  score %s\n", heading(fmt.Sprintf("[%d]", i+1)), rag.Sources[i], scoreColor(rag.Scores[i]))
		fmt.Fprintf(w, "%s\n\n", faint(utils.Truncate(oneLine(rag.Chunks[i]), previewChars)))
	}
	return nil
}

// WriteAnswer writes an agent answer followed by its sources.
func WriteAnswer(w io.Writer, resp *models.AgentResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Response)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Sources"))
		for _, s := range resp.Sources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

// WriteDocuments writes the document listing as a table.
func WriteDocuments(w io.Writer, docs []models.DocumentInfo, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []models.DocumentInfo{}
		}
		return writeJSON(w, map[string]any{"documents": docs})
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOC ID\tFILENAME\tCHUNKS\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.DocID, d.Filename, d.Chunks, d.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// WriteStatus writes knowledge base counts.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "status:      %s\n", st.Status)
	fmt.Fprintf(w, "documents:   %d\n", st.Documents)
	fmt.Fprintf(w, "chunks:      %d\n", st.Chunks)
	fmt.Fprintf(w, "dimensions:  %d\n", st.Dimensions)
	fmt.Fprintf(w, "index_type:  %s\n", st.IndexType)
	fmt.Fprintf(w, "embedder:    %s\n", st.Embedder)
	fmt.Fprintf(w, "uploads:     %d\n", st.Uploads)
	fmt.Fprintf(w, "disk_bytes:  %d\n", st.DiskBytes)
	if st.Recovered != "" {
		fmt.Fprintf(w, "%s knowledge base was reset at startup: %s\n", warn("warning:"), st.Recovered)
	}
	return nil
}

// Warnf writes a highlighted warning line.
func Warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warn("warning:"), fmt.Sprintf(format, args...))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
