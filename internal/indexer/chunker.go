// Package indexer turns documents into knowledge-base entries: it splits text
// into sentence-aligned chunks and manages the ingest/delete lifecycle.
package indexer

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunker packs sentences into chunks of at most chunkSize characters, carrying
// whole trailing sentences (up to chunkOverlap characters) into the next chunk.
// Lengths are counted in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split cleans text and returns its chunks in document order. It is a pure
// function of its input; empty input yields nil.
func (c *Chunker) Split(text string) []string {
	sentences := SplitSentences(Clean(text))
	if len(sentences) == 0 {
		return nil
	}
	var (
		chunks  []string
		current []string
		curLen  int
	)
	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if n > c.chunkSize {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
			}
			current, curLen = nil, 0
			chunks = append(chunks, c.hardSplit(s)...)
			continue
		}
		if len(current) > 0 && curLen+1+n > c.chunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = c.overlap(current)
			curLen = joinedLen(current)
			// The seed must leave room for the sentence that forced the break.
			for len(current) > 0 && curLen+1+n > c.chunkSize {
				current = current[1:]
				curLen = joinedLen(current)
			}
		}
		if len(current) == 0 {
			curLen = n
		} else {
			curLen += 1 + n
		}
		current = append(current, s)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// overlap returns the longest run of trailing sentences whose lengths, each
// counted with its joining space, fit within chunkOverlap.
func (c *Chunker) overlap(sentences []string) []string {
	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(sentences[i])
		if total+n+1 > c.chunkOverlap {
			break
		}
		total += n + 1
		start = i
	}
	seed := make([]string, len(sentences)-start)
	copy(seed, sentences[start:])
	return seed
}

// hardSplit cuts an oversized sentence into windows of chunkSize runes that
// advance by chunkSize-chunkOverlap. Only the final window may be shorter.
func (c *Chunker) hardSplit(s string) []string {
	runes := []rune(s)
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = c.chunkSize
	}
	var out []string
	for i := 0; i < len(runes); i += step {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
		if end >= len(runes) {
			break
		}
	}
	return out
}

func joinedLen(parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	n := len(parts) - 1
	for _, p := range parts {
		n += utf8.RuneCountInString(p)
	}
	return n
}
