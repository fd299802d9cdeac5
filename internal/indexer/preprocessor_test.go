package indexer

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"hyphen wrap", "infor-\n   mation", "information"},
		{"blank line runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"form feed", "page one\fpage two", "page one\n\npage two"},
		{"carriage returns", "line\r\nnext\r\n", "line\nnext"},
		{"trim", "  \n text \n ", "text"},
		{"hyphen wrap no-break space", "infor-\n\u00a0mation", "information"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "A. B. C.", []string{"A.", "B.", "C."}},
		{"lowercase continuation", "e.g. this stays. Next one", []string{"e.g. this stays.", "Next one"}},
		{"quotes and parens", `He left! "Why not?" she asked. (Nobody knew.) Fine`, []string{"He left!", `"Why not?" she asked.`, "(Nobody knew.) Fine"}},
		{"paragraphs", "First para.\n\n  \nSecond para.", []string{"First para.", "Second para."}},
		{"abbreviation limitation", "Dr. Smith arrived.", []string{"Dr.", "Smith arrived."}},
		{"no terminal punctuation", "just words", []string{"just words"}},
		{"no-break space", "One.\u00a0Two.", []string{"One.", "Two."}},
		{"ideographic space", "One!\u3000Two?", []string{"One!", "Two?"}},
		{"paragraph with no-break space", "First.\n\u00a0\nSecond.", []string{"First.", "Second."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitSentences(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
