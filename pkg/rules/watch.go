package rules

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch logs a warning whenever the rule file at path changes on disk. The
// loaded Set is never rebuilt; a restart picks up the change. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve rule file path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// editors often replace files instead of writing them, so watch the dir
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				logger.Warn("rule file changed, restart to apply",
					zap.String("path", abs),
					zap.String("op", ev.Op.String()),
				)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("rule file watcher error", zap.Error(err))
		}
	}
}
