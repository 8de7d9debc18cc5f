package daemon

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/logfields"
)

type reloader interface {
	ReloadConfig(ctx context.Context, cfg *config.Config) error
}

// ConfigWatcher reloads the configuration when its file changes. Bursts of
// events are debounced, and a save that leaves the bytes unchanged is ignored.
type ConfigWatcher struct {
	path     string
	target   reloader
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	lastSum  [sha256.Size]byte
	stopOnce sync.Once
	done     chan struct{}
}

// NewConfigWatcher prepares a watcher for path. Start must be called to begin.
func NewConfigWatcher(path string, target reloader) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "resolve config path").WithContext("path", path).Build()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "create file watcher").Build()
	}
	cw := &ConfigWatcher{
		path:     abs,
		target:   target,
		watcher:  w,
		debounce: 2 * time.Second,
		done:     make(chan struct{}),
	}
	if data, err := os.ReadFile(abs); err == nil { // #nosec G304 -- configured path
		cw.lastSum = sha256.Sum256(data)
	}
	return cw, nil
}

// Start watches the directory holding the file, since editors that save by
// rename would drop a watch placed on the file itself.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(cw.path)
	if err := cw.watcher.Add(dir); err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "watch config directory").WithContext("path", dir).Build()
	}
	slog.Info("Watching configuration", logfields.Path(cw.path))
	go cw.loop(ctx)
	return nil
}

// Stop ends the watch. It is safe to call more than once.
func (cw *ConfigWatcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.done)
		err = cw.watcher.Close()
	})
	return err
}

func (cw *ConfigWatcher) loop(ctx context.Context) {
	name := filepath.Base(cw.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.done:
			return
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Remove) {
				slog.Warn("Config file removed, keeping current configuration", logfields.Path(ev.Name))
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(cw.debounce)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		case <-timer.C:
			if err := cw.reload(ctx); err != nil {
				slog.Error("Config reload failed, keeping previous configuration", logfields.Error(err))
			}
		}
	}
}

// reload parses the file and hands it to the target when its content changed.
func (cw *ConfigWatcher) reload(ctx context.Context) error {
	data, err := os.ReadFile(cw.path) // #nosec G304 -- configured path
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "read config").WithContext("path", cw.path).Build()
	}
	sum := sha256.Sum256(data)
	cw.mu.Lock()
	unchanged := sum == cw.lastSum
	cw.mu.Unlock()
	if unchanged {
		slog.Debug("Config file touched without changes", logfields.Path(cw.path))
		return nil
	}

	cfg, err := config.Load(cw.path)
	if err != nil {
		return err
	}
	if err := cw.target.ReloadConfig(ctx, cfg); err != nil {
		return err
	}
	cw.mu.Lock()
	cw.lastSum = sum
	cw.mu.Unlock()
	slog.Info("Configuration reloaded", logfields.Path(cw.path), slog.String("summary", cfg.Summary()))
	return nil
}
