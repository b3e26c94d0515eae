package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/voxtype/voxtype/internal/bus"
)

// Watcher reloads the config file on change and republishes the session
// settings that are safe to change at runtime (mode, include_video).
type Watcher struct {
	fsw *fsnotify.Watcher
}

// Watch starts watching the config file. Edits publish SetMode and
// SetIncludeVideo messages; files that fail to parse or validate are logged
// and ignored, keeping the running settings untouched.
func Watch(path string, b *bus.Bus, log *logrus.Entry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	// Watch the directory: editors replace the file rather than writing
	// in place, which would silently drop a file-level watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	w := &Watcher{fsw: fsw}
	go w.loop(path, b, log)
	return w, nil
}

func (w *Watcher) loop(path string, b *bus.Bus, log *logrus.Entry) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				log.WithError(err).Warn("config reload failed, keeping current settings")
				continue
			}
			if err := cfg.Validate(); err != nil {
				log.WithError(err).Warn("config reload invalid, keeping current settings")
				continue
			}

			log.WithFields(logrus.Fields{
				"mode":          cfg.Session.Mode,
				"include_video": cfg.Session.IncludeVideo,
			}).Info("config reloaded")
			b.Publish(bus.SetMode, cfg.Session.Mode)
			b.Publish(bus.SetIncludeVideo, cfg.Session.IncludeVideo)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
