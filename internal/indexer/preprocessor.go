package indexer

import (
	"regexp"
	"strings"
)

// wsClass is any Unicode whitespace. RE2's \s is ASCII-only.
const wsClass = `[\s\p{Z}\x{85}]`

var (
	hyphenWrapRe    = regexp.MustCompile(`-\n` + wsClass + `*`)
	manyNewlinesRe  = regexp.MustCompile(`\n{3,}`)
	paragraphRe     = regexp.MustCompile(`\n` + wsClass + `*\n`)
	sentenceBreakRe = regexp.MustCompile(`[.!?]` + wsClass + `+["'(A-Z]`)
)

// Clean normalizes extracted text before chunking: line endings are unified,
// words broken across lines with a hyphen are rejoined, runs of blank lines
// collapse to a single paragraph break, and form feeds (PDF page breaks)
// become paragraph breaks.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = hyphenWrapRe.ReplaceAllString(text, "")
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	return strings.TrimSpace(text)
}

// SplitSentences splits cleaned text into paragraphs and each paragraph into
// sentences. A sentence ends at '.', '!' or '?' followed by whitespace and an
// uppercase ASCII letter, quote, or opening parenthesis. Abbreviations such
// as "Dr. Smith" are split too; that is accepted behaviour.
func SplitSentences(text string) []string {
	var out []string
	for _, para := range paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		start := 0
		for _, m := range sentenceBreakRe.FindAllStringIndex(para, -1) {
			// m[0] is the punctuation mark; the opener is the last (ASCII) byte.
			out = appendNonEmpty(out, para[start:m[0]+1])
			start = m[1] - 1
		}
		out = appendNonEmpty(out, para[start:])
	}
	return out
}

func appendNonEmpty(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
