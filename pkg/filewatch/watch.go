package filewatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path until ctx is cancelled. On each write or create event it
// calls load(path) and, if that succeeds, onChange with the result.
func Watch[T any](ctx context.Context, path string, load func(string) (T, error), onChange func(T)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filewatch: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("filewatch: watch %q: %w", path, err)
	}

	slog.Info("filewatch: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves show up as create after rename.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			v, err := load(path)
			if err != nil {
				slog.Error("filewatch: reload failed, keeping previous value", "path", path, "err", err)
				continue
			}

			slog.Info("filewatch: reloaded", "path", path)
			onChange(v)

			// The inode may have been replaced.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("filewatch: watcher error", "err", err)
		}
	}
}
