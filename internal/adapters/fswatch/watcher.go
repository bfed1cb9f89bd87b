// Package fswatch implements ports.Watcher using github.com/fsnotify/fsnotify.
// It recursively watches a corpus directory for new or rewritten JSONL files
// and debounces rapid events (generators often append in bursts). Used by
// merge-all's watch mode to trigger incremental re-merges.
package fswatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval collapses event bursts per file.
const debounceInterval = 250 * time.Millisecond

// Watcher implements ports.Watcher.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewWatcher creates a file system watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fw: fw, done: make(chan struct{})}, nil
}

// Watch monitors root recursively and calls onChange with the path of each
// settled .jsonl/.json change. Hidden directories and temp files are ignored.
func (w *Watcher) Watch(root string, onChange func(path string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != absRoot {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	debounce := make(map[string]time.Time)
	var dmu sync.Mutex

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := event.Name

				// New directories join the watch list.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(path); err == nil && info.IsDir() {
						if !strings.HasPrefix(info.Name(), ".") {
							w.fw.Add(path)
						}
						continue
					}
				}

				if !relevant(path) {
					continue
				}

				dmu.Lock()
				last, seen := debounce[path]
				now := time.Now()
				if seen && now.Sub(last) < debounceInterval {
					dmu.Unlock()
					continue
				}
				debounce[path] = now
				dmu.Unlock()

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					onChange(path)
				}

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// fsnotify recovers on its own

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// relevant reports whether a changed path should trigger a re-merge.
func relevant(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".json":
		return true
	}
	return false
}

// Stop ends monitoring and releases all resources. Safe to call twice.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}
