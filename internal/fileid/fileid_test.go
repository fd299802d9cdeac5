package fileid

import (
	"strings"
	"testing"
	"time"
)

func TestDocID(t *testing.T) {
	at := time.Date(2024, 7, 9, 8, 5, 3, 0, time.Local)
	got := DocID("report.pdf", at)
	if got != "doc_20240709_080503_report.pdf" {
		t.Errorf("DocID = %q", got)
	}
}

func TestTimestamp(t *testing.T) {
	at := time.Date(2024, 7, 9, 8, 5, 3, 0, time.Local)
	tests := []struct {
		id     string
		wantOK bool
	}{
		{DocID("notes_2023.txt", at), true},
		{DocID("a", at), true},
		{"doc_2024_report.pdf", false},
		{"file:abc", false},
		{"doc_20241399_000000_x.txt", false},
		{"doc_20240709_080503", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := Timestamp(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(at) {
				t.Errorf("Timestamp = %v, want %v", got, at)
			}
		})
	}
}

func TestStagingName(t *testing.T) {
	a, b := StagingName(".PDF"), StagingName(".PDF")
	if a == b {
		t.Errorf("staging names should be unique: %q", a)
	}
	if !strings.HasSuffix(a, ".pdf.part") {
		t.Errorf("StagingName = %q", a)
	}
	if !IsStaging("/uploads/" + a) {
		t.Errorf("IsStaging(%q) = false", a)
	}
	if IsStaging("/uploads/report.pdf") {
		t.Error("IsStaging should be false for regular files")
	}
}
