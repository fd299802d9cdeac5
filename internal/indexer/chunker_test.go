package indexer

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_SplitEmpty(t *testing.T) {
	c := NewChunker(50, 10)
	for _, in := range []string{"", "   \n\t  ", "\f\f\n\n\n"} {
		if chunks := c.Split(in); chunks != nil {
			t.Errorf("Split(%q) = %v, want nil", in, chunks)
		}
	}
}

func TestChunker_SplitSingleChunk(t *testing.T) {
	c := NewChunker(500, 50)
	chunks := c.Split("A. B. C.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "A. B. C." {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunker_OverlapCarry(t *testing.T) {
	s1 := "Alpha one two."             // 14
	s2 := "Beta three."                // 11
	s3 := "Gamma four five six seven." // 26
	c := NewChunker(40, 12)

	chunks := c.Split(s1 + " " + s2 + " " + s3)
	want := []string{
		s1 + " " + s2,
		s2 + " " + s3,
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("chunks = %q, want %q", chunks, want)
	}
}

func TestChunker_OverlapNeverExceedsBudget(t *testing.T) {
	// No trailing sentence fits in a 5 character overlap.
	c := NewChunker(30, 5)
	chunks := c.Split("First sentence here. Second sentence here. Third sentence here.")
	for i := 1; i < len(chunks); i++ {
		if strings.HasPrefix(chunks[i], "First") || strings.HasPrefix(chunks[i], "Second sentence here. Third") {
			t.Errorf("unexpected overlap in chunk %d: %q", i, chunks[i])
		}
	}
	if len(chunks) != 3 {
		t.Errorf("expected one chunk per sentence, got %q", chunks)
	}
}

func TestChunker_SeedDroppedWhenNoRoom(t *testing.T) {
	s1 := "Alpha beta."             // 11
	s2 := "Bravo charlie xy."       // 17, fits the 20 char overlap
	s3 := "Charlie delta echo fox." // 23, s2+s3 would exceed 30
	c := NewChunker(30, 20)

	chunks := c.Split(s1 + " " + s2 + " " + s3)
	want := []string{s1 + " " + s2, s3}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("Split = %q, want %q", chunks, want)
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > 30 {
			t.Errorf("chunk %d has %d runes: %q", i, n, ch)
		}
	}
}

func TestChunker_ChunkBound(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40) +
		"\n\nA second paragraph follows here. It has sentences of different sizes! Does it work? Yes.\f" +
		strings.Repeat("Page two keeps going with more words. ", 25)
	for _, tc := range []struct{ size, overlap int }{{80, 20}, {120, 40}, {500, 50}, {46, 45}} {
		c := NewChunker(tc.size, tc.overlap)
		for i, ch := range c.Split(text) {
			if n := utf8.RuneCountInString(ch); n > tc.size {
				t.Errorf("size=%d chunk %d has length %d: %q", tc.size, i, n, ch)
			}
		}
	}
}

func TestChunker_HardSplit(t *testing.T) {
	long := "X" + strings.Repeat("x", 248) + "."
	c := NewChunker(100, 20)
	chunks := c.Split("Short intro. " + long + " Tail sentence.")
	// "Short intro." flushes, then windows at 0,80,160, then the tail.
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "Short intro." {
		t.Errorf("pending chunk not flushed: %q", chunks[0])
	}
	frags := chunks[1:4]
	for i, f := range frags[:len(frags)-1] {
		if utf8.RuneCountInString(f) != 100 {
			t.Errorf("fragment %d length %d, want 100", i, utf8.RuneCountInString(f))
		}
	}
	if got := utf8.RuneCountInString(frags[2]); got != 90 {
		t.Errorf("last fragment length %d, want 90", got)
	}
	if chunks[4] != "Tail sentence." {
		t.Errorf("no overlap may be carried out of a hard split: %q", chunks[4])
	}
}

func TestChunker_HardSplitRunes(t *testing.T) {
	c := NewChunker(4, 1)
	chunks := c.Split("ééééééé")
	want := []string{"éééé", "éééé"}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("chunks = %q, want %q", chunks, want)
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(60, 15)
	text := "One fish. Two fish. Red fish. Blue fish. This one has a little star. This one has a little car."
	if !reflect.DeepEqual(c.Split(text), c.Split(text)) {
		t.Error("Split must be a pure function of its input")
	}
}
