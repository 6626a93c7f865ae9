// Package filewatch reports changes to a single file, including saves that
// replace the file through a rename.
package filewatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SettleDelay coalesces the burst of events an editor produces for one save.
const SettleDelay = 100 * time.Millisecond

// Watch calls onChange once per settled burst of changes to path until ctx
// is cancelled. The parent directory is watched, so a file that is written
// elsewhere and renamed over path is seen, and so is a file that is removed
// and recreated.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	slog.Info("filewatch: watching for changes", "path", target)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				settle = time.After(SettleDelay)
			}

		case <-settle:
			settle = nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("filewatch: watcher error", "path", target, "err", err)
		}
	}
}
