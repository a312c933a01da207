package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the config file whenever it changes and passes every valid
// result to fn. Invalid edits are logged and skipped. Watch blocks until ctx
// is done.
//
// Every reload layers the environment over the file, so a variable such as
// ALLOWED_USER_IDS hides edits to its field. Watch logs a warning naming the
// overriding variables when it starts.
//
// The directory is watched rather than the file so that editors which save by
// renaming a temp file over the original keep being followed.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(Config)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	if set := EnvOverrides(); len(set) > 0 {
		logger.Warn("environment overrides config file fields on reload", "path", path, "vars", set)
	}

	base := filepath.Base(path)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("ignoring invalid config change", "path", path, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", path)
			fn(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
