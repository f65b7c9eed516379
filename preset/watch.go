package preset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the catalog whenever the document is replaced or written by
// another process (e.g., edited by hand), calling fn (if not nil) after each
// successful reload. Invalid documents are logged and ignored. It blocks until
// ctx is cancelled. This only works if the store uses the OS filesystem.
func (s *Store) Watch(ctx context.Context, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// watch the dir since saves replace the file
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("update watcher: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("preset: failed to reload presets", "path", s.path, "error", err)
				continue
			}
			s.logger.Debug("preset: reloaded presets", "path", s.path, "op", event.Op)
			if fn != nil {
				fn()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("preset: watcher error", "error", err)
		}
	}
}
