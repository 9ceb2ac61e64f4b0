package sessionlog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"liyu1981.xyz/llm-cost-service/pkg/common"
)

// Watcher invalidates a Cache whenever a session file below its roots is
// written, created, renamed or removed.
type Watcher struct {
	cache   *Cache
	watcher *fsnotify.Watcher
	done    chan struct{}
	started bool
}

func NewWatcher(cache *Cache) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{cache: cache, watcher: w, done: make(chan struct{})}, nil
}

// Start registers every directory below the cache roots and processes events
// until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.cache.paths {
		root = common.ExpandHome(root)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	w.started = true
	go w.loop(ctx)
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			logger().Warn("Cannot watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
					w.cache.Invalidate()
					continue
				}
			}
			if strings.HasSuffix(event.Name, ".jsonl") &&
				(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				logger().Debug("Session file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				w.cache.Invalidate()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger().Warn("Session log watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	return err
}
