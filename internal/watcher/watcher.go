// Package watcher keeps the knowledge base in sync with an inbox directory.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/fileid"
)

const defaultDebounce = 500 * time.Millisecond

// Handler reacts to settled inbox changes. Both methods receive the full path.
type Handler interface {
	FileChanged(ctx context.Context, path string) error
	FileRemoved(ctx context.Context, path string) error
}

// Freshness is implemented by handlers that know when a file's content is
// already reflected downstream. Sync skips such files.
type Freshness interface {
	UpToDate(path string, modTime time.Time) bool
}

// Watcher watches a single inbox directory (not recursive).
type Watcher struct {
	dir      string
	accept   func(path string) bool
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	wg      sync.WaitGroup
	done    chan struct{}
	started bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New returns a watcher for dir. accept filters which files are handed to
// handler; nil accepts everything.
func New(dir string, accept func(path string) bool, handler Handler, opts ...Option) *Watcher {
	if accept == nil {
		accept = func(string) bool { return true }
	}
	w := &Watcher{
		dir:      filepath.Clean(dir),
		accept:   accept,
		handler:  handler,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Start creates the directory if needed and begins watching. It runs until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	w.done = make(chan struct{})
	w.started = true
	w.logger.Info("watching inbox", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	w.wg.Add(1)
	go w.run(ctx, fsw, w.done)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go w.Stop()
			return
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if filepath.Dir(filepath.Clean(path)) != w.dir || ignored(path) {
		return
	}
	w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(path)
		if w.accept(path) {
			w.dispatch(path, false)
		}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		if w.accept(path) {
			w.schedule(path)
		} else {
			w.logger.Debug("ignoring unsupported file", zap.String("path", path))
		}
	}
}

// ignored skips hidden files and editor or upload temporaries.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || fileid.IsStaging(base)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.dispatch(path, true)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) dispatch(path string, changed bool) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	if changed {
		err = w.handler.FileChanged(ctx, path)
	} else {
		err = w.handler.FileRemoved(ctx, path)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("inbox sync failed", zap.String("path", path), zap.Bool("changed", changed), zap.Error(err))
	}
}

// Sync hands every accepted file already in the directory to the handler,
// except files the handler reports as up to date.
func (w *Watcher) Sync(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	fresh, _ := w.handler.(Freshness)
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		path := filepath.Join(w.dir, e.Name())
		if e.IsDir() || ignored(path) || !w.accept(path) {
			continue
		}
		if fresh != nil {
			if info, err := e.Info(); err == nil && fresh.UpToDate(path, info.ModTime()) {
				w.logger.Debug("inbox file unchanged", zap.String("path", path))
				continue
			}
		}
		if err := w.handler.FileChanged(ctx, path); err != nil {
			w.logger.Warn("inbox sync failed", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// Stop stops watching and cancels pending debounced events.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	close(w.done)
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	_ = fsw.Close()
	w.wg.Wait()
}
