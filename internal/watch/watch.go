// Package watch re-runs documentation generation when source files change.
// It backs the generate --watch flag: events from the watched tree are
// debounced so a burst of saves triggers a single regeneration.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before triggering.
const DefaultDebounce = 2 * time.Second

// skipDirs are directory names excluded from watching. These mirror the
// directories the analyzer skips, so watching never reacts to files that
// cannot change the analysis.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".docsmith":    true,
}

// Watcher watches a source tree and invokes a callback after changes settle.
type Watcher struct {
	root     string
	debounce time.Duration
	fs       *fsnotify.Watcher
}

// New creates a watcher over the given source root. A non-positive debounce
// uses DefaultDebounce.
func New(root string, debounce time.Duration) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{root: root, debounce: debounce, fs: fs}
	if err := w.addTree(root); err != nil {
		fs.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers the root and all non-skipped subdirectories.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if skipDirs[info.Name()] || strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks, invoking onChange after each settled burst of file events.
// It returns when the context is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if !w.relevant(event) {
				continue
			}
			// New directories join the watch set so nested edits are seen.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDirs[info.Name()] {
					w.fs.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			_ = err // transient watch errors are not fatal

		case <-timerC:
			timer = nil
			timerC = nil
			if err := onChange(ctx); err != nil {
				return err
			}
		}
	}
}

// relevant filters out events that cannot affect generated documentation.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, part := range strings.Split(event.Name, string(filepath.Separator)) {
		if skipDirs[part] {
			return false
		}
	}
	return true
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
