package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *recorder) FileChanged(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, filepath.Base(path))
	return nil
}

func (r *recorder) FileRemoved(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, filepath.Base(path))
	return nil
}

func (r *recorder) snapshot() (changed, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...), append([]string(nil), r.removed...)
}

func txtOnly(path string) bool { return strings.EqualFold(filepath.Ext(path), ".txt") }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, dir string, rec *recorder) *Watcher {
	t.Helper()
	w := New(dir, txtOnly, rec, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	path := filepath.Join(dir, "notes.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "song.mp3"), []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { c, _ := rec.snapshot(); return len(c) > 0 })
	time.Sleep(150 * time.Millisecond)
	changed, _ := rec.snapshot()
	if len(changed) != 1 || changed[0] != "notes.txt" {
		t.Errorf("changed = %v, want [notes.txt]", changed)
	}
}

func TestWatcher_Remove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatcher(t, dir, rec)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { _, r := rec.snapshot(); return len(r) == 1 })
	_, removed := rec.snapshot()
	if removed[0] != "old.txt" {
		t.Errorf("removed = %v", removed)
	}
}

func TestWatcher_IgnoresTemporaries(t *testing.T) {
	for _, name := range []string{".hidden.txt", "draft.txt~", "0b4f.txt.part"} {
		if !ignored(name) {
			t.Errorf("ignored(%q) = false", name)
		}
	}
	if ignored("report.txt") {
		t.Error("ignored(report.txt) = true")
	}
}

func TestWatcher_Sync(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.pdf", ".d.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New(dir, txtOnly, rec)
	if err := w.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	changed, _ := rec.snapshot()
	if strings.Join(changed, ",") != "a.txt,b.txt" {
		t.Errorf("changed = %v", changed)
	}
}

// freshRecorder reports files listed in current as up to date.
type freshRecorder struct {
	recorder
	current map[string]bool
}

func (r *freshRecorder) UpToDate(path string, _ time.Time) bool {
	return r.current[filepath.Base(path)]
}

func TestWatcher_SyncSkipsUpToDate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := &freshRecorder{current: map[string]bool{"a.txt": true}}
	w := New(dir, txtOnly, rec)
	if err := w.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	changed, _ := rec.snapshot()
	if strings.Join(changed, ",") != "b.txt" {
		t.Errorf("changed = %v, want only b.txt", changed)
	}
}

func TestWatcher_StartCreatesDirAndStopIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	w := New(dir, nil, &recorder{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("inbox not created: %v", err)
	}
	w.Stop()
	w.Stop()
}
