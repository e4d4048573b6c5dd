// Package watch re-runs a callback when files under a directory change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Run is given zero.
const DefaultDebounce = 300 * time.Millisecond

// Func receives the changed paths of one burst, sorted.
type Func func(changed []string)

// Run watches dir recursively and calls fn once per burst of changes,
// after debounce has passed without new events. Newly created
// subdirectories are watched too. Run blocks until ctx is cancelled and
// then returns nil.
func Run(ctx context.Context, dir string, debounce time.Duration, fn Func) error {
	return RunWithLogger(ctx, dir, debounce, fn, nil)
}

// RunWithLogger is Run with an explicit logger.
func RunWithLogger(ctx context.Context, dir string, debounce time.Duration, fn Func, logger *slog.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := addRecursive(fsw, dir, logger); err != nil {
		return err
	}
	logger.Debug("watching", "dir", dir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(fsw, ev.Name, logger)
				}
			}
			pending[ev.Name] = true
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			fn(changed)
		}
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// ignored filters editor temp files and our own atomic-write temp files.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.Contains(base, ".tmp.")
}
