package quotagate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reloads gate configuration when the config file changes, so
// operators can adjust ceilings and thresholds without a restart. Reloads
// go through Gate.ApplyConfig, which preserves live usage and health.
type Watcher struct {
	path   string
	gate   *Gate
	logger *slog.Logger
}

// NewWatcher creates a watcher for the given config file.
// If logger is nil, slog.Default() is used.
func NewWatcher(path string, g *Gate, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, gate: g, logger: logger}
}

// Watch blocks until the context is cancelled, applying the config file on
// every change. Editors and config management tools often replace files
// rather than write them in place, so the parent directory is watched and
// events are debounced before reloading.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("quotagate: create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("quotagate: watch %s: %w", dir, err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("quotagate: watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("quotagate: watcher errors channel closed")
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload skipped", "path", w.path, "error", err)
		return
	}
	if err := w.gate.ApplyConfig(cfg); err != nil {
		w.logger.Warn("config apply failed", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path, "credentials", len(cfg.Credentials))
}
