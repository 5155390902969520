package content

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports batches of changed content files. Events on the same
// directories that arrive within the debounce window are delivered together.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
	onChange func(paths []string)

	closeOnce sync.Once
}

// NewWatcher watches dirs for yaml and lua changes.
//
// Precondition: debounce > 0; onChange must be non-nil; every dir must exist.
// Postcondition: Returns a Watcher that does nothing until Run is called.
func NewWatcher(dirs []string, debounce time.Duration, onChange func(paths []string), logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		return nil, fmt.Errorf("content watcher: debounce must be > 0, got %s", debounce)
	}
	if onChange == nil {
		return nil, fmt.Errorf("content watcher: onChange must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %q: %w", dir, err)
		}
	}
	return &Watcher{watcher: fw, debounce: debounce, logger: logger, onChange: onChange}, nil
}

// Run delivers debounced batches until ctx is cancelled or Close is called.
// A pending batch is dropped on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 || !isContentFile(ev.Name) {
				continue
			}
			if len(pending) == 0 {
				timer.Reset(w.debounce)
			}
			pending[ev.Name] = struct{}{}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("content watcher error", zap.Error(err))
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			w.logger.Info("content changed", zap.Strings("paths", paths))
			w.onChange(paths)
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

func isContentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".lua":
		return true
	}
	return false
}
