// Package watch reloads configuration when the config file changes, so
// settings like diagnostics.enabled can be toggled without a restart.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/logging"
)

// Watcher monitors the config file and swaps the provider's snapshot on
// change.
type Watcher struct {
	path     string
	provider *config.Provider
	log      zerolog.Logger
}

// New constructs a watcher for the config file at path.
func New(path string, provider *config.Provider) *Watcher {
	return &Watcher{path: path, provider: provider, log: logging.WithComponent("watch")}
}

// Start begins watching until ctx is cancelled. A missing or empty path
// disables the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		w.log.Info().Msg("config watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
					continue
				}
				w.reload()
			case err := <-watcher.Errors:
				w.log.Error().Err(err).Msg("watcher error")
			}
		}
	}()
	// Watch the directory: editors typically replace the file, which drops
	// a watch registered on the file itself.
	return watcher.Add(filepath.Dir(w.path))
}

func (w *Watcher) reload() {
	cfg, err := config.Load(w.path)
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("config reload failed, keeping previous")
		return
	}
	w.provider.Swap(cfg)
	w.log.Info().Bool("diagnostics_enabled", cfg.Diagnostics.Enabled).Msg("config reloaded")
}
