package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pathlight/urlchain/internal/debug"
)

// DefaultDebounce batches bursts of editor events into one rescan
const DefaultDebounce = 300 * time.Millisecond

// Watcher monitors a project root for Swift source changes and reports
// them in debounced batches. Events for excluded directories and
// non-source files are dropped before they reach the callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	onChange func(paths []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// NewWatcher creates a watcher rooted at the given directory. The
// callback receives each debounced batch of changed file paths.
func NewWatcher(root string, debounce time.Duration, onChange func(paths []string)) (*Watcher, error) {
	if info, err := os.Stat(root); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fsw,
		root:     root,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]struct{}),
	}

	if err := w.addWatches(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until the context is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			debug.LogScan("watcher error: %v", err)
		}
	}
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && excludedDirNames[entry.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			debug.LogScan("failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories need their own watch before files inside them
	// produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !excludedDirNames[filepath.Base(path)] {
				if err := w.watcher.Add(path); err != nil {
					debug.LogScan("failed to watch new directory %s: %v", path, err)
				}
			}
			return
		}
	}

	if !strings.HasSuffix(path, ".swift") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	debug.LogScan("processing %d debounced file events", len(paths))
	w.onChange(paths)
}
