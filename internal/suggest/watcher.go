package suggest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"testsmith/internal/logging"
	"testsmith/internal/prompt"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow collapses editor write bursts into a single run per file.
const debounceWindow = 500 * time.Millisecond

// Watcher watches a directory tree and re-runs suggestions whenever a
// matching source file is written.
type Watcher struct {
	runner  *Runner
	watcher *fsnotify.Watcher
	opts    Options

	exts map[string]bool // lowercased extensions to react to, empty means all known

	debounceMu  sync.Mutex
	debounceMap map[string]*time.Timer

	results chan BatchResult
	done    chan struct{}

	closeMu sync.Mutex
	closed  bool

	// sendMu serializes result sends with shutdown so a debounce callback
	// firing after Close cannot send on the closed results channel.
	sendMu        sync.Mutex
	resultsClosed bool
}

// NewWatcher builds a watcher over dir (recursively). exts filters which
// file extensions trigger a run; pass nil to react to any known language.
func NewWatcher(runner *Runner, dir string, exts []string, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		runner:      runner,
		watcher:     fsw,
		opts:        opts,
		exts:        make(map[string]bool),
		debounceMap: make(map[string]*time.Timer),
		results:     make(chan BatchResult, 16),
		done:        make(chan struct{}),
	}

	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.exts[ext] = true
	}

	if err := w.addRecursive(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	logging.Watch("watching %s (exts=%v)", dir, exts)
	return w, nil
}

// Results delivers one BatchResult per completed run. The channel is closed
// when the watcher shuts down.
func (w *Watcher) Results() <-chan BatchResult {
	return w.results
}

// Start processes filesystem events until ctx is done or Close is called.
// The results channel is closed during shutdown.
func (w *Watcher) Start(ctx context.Context) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// New subdirectories need their own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logging.WatchError("failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !w.wants(event.Name) {
		return
	}

	logging.WatchDebug("change detected: %s (%s)", event.Name, event.Op)
	w.debounce(ctx, event.Name)
}

// debounce schedules a run for path, resetting the timer if one is pending.
func (w *Watcher) debounce(ctx context.Context, path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounceMap[path]; ok {
		timer.Stop()
	}

	w.debounceMap[path] = time.AfterFunc(debounceWindow, func() {
		w.debounceMu.Lock()
		delete(w.debounceMap, path)
		w.debounceMu.Unlock()

		sug, err := w.runner.Run(ctx, path, w.opts)
		w.emit(ctx, BatchResult{Path: path, Suggestion: sug, Err: err})
	})
}

// emit delivers a result unless the watcher is shutting down.
func (w *Watcher) emit(ctx context.Context, res BatchResult) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	if w.resultsClosed {
		return
	}
	select {
	case w.results <- res:
	case <-ctx.Done():
	case <-w.done:
	}
}

// wants reports whether a changed file should trigger a run.
func (w *Watcher) wants(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	if len(w.exts) > 0 {
		return w.exts[ext]
	}
	return prompt.DetectLanguage(path) != ""
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name != "." && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Close stops the watcher and closes the results channel. Safe to call more
// than once.
func (w *Watcher) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	w.debounceMu.Lock()
	for path, timer := range w.debounceMap {
		timer.Stop()
		delete(w.debounceMap, path)
	}
	w.debounceMu.Unlock()

	err := w.watcher.Close()

	// Any callback blocked in emit sees done closed and releases sendMu;
	// once the lock is held, no send can be in flight and late callbacks
	// bail on the resultsClosed flag.
	w.sendMu.Lock()
	w.resultsClosed = true
	close(w.results)
	w.sendMu.Unlock()

	return err
}
