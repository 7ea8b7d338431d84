// Package watch provides a debounced, recursive filesystem watcher used
// to trigger incremental re-indexing.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ctxengine/ctxengine/internal/ignore"
)

// OnChange is invoked at most once per coalesced burst, with the
// absolute paths that changed.
type OnChange func(changed []string)

// Watcher watches a project root recursively and debounces filesystem
// events before calling back.
type Watcher struct {
	root    string
	matcher *ignore.Matcher
	onStep  OnChange

	mu        sync.Mutex
	running   bool
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	done      chan struct{}
}

// New returns a Watcher for root. matcher, if non-nil, filters events
// for paths it matches before they reach the debouncer.
func New(root string, matcher *ignore.Matcher, onChange OnChange) *Watcher {
	return &Watcher{root: root, matcher: matcher, onStep: onChange}
}

// Start begins watching. It is idempotent: calling Start on an already
// running Watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := addRecursive(fsw, w.root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch project tree: %w", err)
	}

	w.debouncer = NewDebouncer(DebounceMS*time.Millisecond, w.onStep)
	w.fsw = fsw
	w.done = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.done)
	slog.Info("file watcher started", "root", w.root)
	return nil
}

// Stop halts watching. It is idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.done)
	_ = w.fsw.Close()
	w.debouncer.Stop()
	slog.Info("file watcher stopped", "root", w.root)
}

// IsRunning reports whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir {
		if event.Op&(fsnotify.Create) != 0 {
			_ = addRecursive(fsw, event.Name)
		}
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return
	}
	rel = filepath.ToSlash(rel)

	if w.matcher != nil && w.matcher.Match(rel, false) {
		return
	}

	w.debouncer.Add(event.Name)
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".ctxengine" {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
}
