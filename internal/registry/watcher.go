package registry

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 200 * time.Millisecond

// Watcher reloads a Registry when its file is edited by hand.
type Watcher struct {
	reg       *Registry
	fsWatcher *fsnotify.Watcher
	file      string
	delay     time.Duration
	onReload  func(error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the directory holding the registry file, so atomic
// replacements (rename over the file) are seen as well.
func NewWatcher(reg *Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	file := filepath.Clean(reg.Path())

	if err := fsw.Add(filepath.Dir(file)); err != nil {
		_ = fsw.Close()

		return nil, err
	}

	return &Watcher{
		reg:       reg,
		fsWatcher: fsw,
		file:      file,
		delay:     debounceDelay,
	}, nil
}

// OnReload registers a hook called after every debounced reload with its result.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onReload = fn
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		_ = w.fsWatcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.file {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug().
					Str("file", event.Name).
					Str("op", event.Op.String()).
					Msg("registry file change detected")

				w.schedule(logger)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// schedule reloads once no change was seen for the debounce delay.
func (w *Watcher) schedule(logger *zerolog.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.delay, func() {
		err := w.reg.Reload()
		if err != nil {
			logger.Error().Err(err).Msg("registry reload failed, keeping previous devices")
		} else {
			logger.Info().Int("devices", w.reg.Len()).Msg("registry reloaded")
		}

		w.mu.Lock()
		hook := w.onReload
		w.mu.Unlock()

		if hook != nil {
			hook(err)
		}
	})
}
