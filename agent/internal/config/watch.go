package config

import (
	"context"
	"log/slog"

	"github.com/heartrelay/heartrelay/pkg/filewatch"
)

// Watch calls onChange with the reloaded Config each time the file at path
// changes, until ctx is cancelled. Saves that rename a temporary file over
// path are picked up. A file that fails to load is logged and the previous
// config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return filewatch.Watch(ctx, path, func() {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path)
		onChange(cfg)
	})
}
