package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// ChangeFunc receives the configuration in effect before a reload and the one
// replacing it.
type ChangeFunc func(prev, next *Config)

// Loader owns the current configuration and, while watching, replaces it when
// the file changes on disk. A reload that fails validation keeps the previous
// configuration.
type Loader struct {
	path string
	log  *slog.Logger

	mu        sync.RWMutex
	current   *Config
	listeners []ChangeFunc
	onError   func(error)

	fsw       *fsnotify.Watcher
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoader returns a loader for path. An empty path means ConfigPath(). A nil
// log resolves to slog.Default() when each message is written.
func NewLoader(path string, log *slog.Logger) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	return &Loader{path: path, log: log, stop: make(chan struct{})}
}

func (l *Loader) logger() *slog.Logger {
	log := l.log
	if log == nil {
		log = slog.Default()
	}
	return log.With(slog.String("component", "config"))
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the file and makes it the current configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration, or nil before Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers fn for successful reloads. Listeners run on the watch
// goroutine, in registration order.
func (l *Loader) OnChange(fn ChangeFunc) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// OnError sets the handler for reload and watch failures. Without one they
// are logged.
func (l *Loader) OnError(fn func(error)) {
	l.mu.Lock()
	l.onError = fn
	l.mu.Unlock()
}

// Watch starts watching the file until ctx is done or Close is called. The
// parent directory is watched so files replaced by rename are still seen.
func (l *Loader) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(l.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}
	l.fsw = fsw
	l.done = make(chan struct{})
	go l.run(ctx)
	return nil
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return

		case ev, ok := <-l.fsw.Events:
			if !ok {
				return
			}
			if !l.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			l.reload()

		case err, ok := <-l.fsw.Errors:
			if !ok {
				return
			}
			l.fail(err)
		}
	}
}

func (l *Loader) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != filepath.Base(l.path) {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (l *Loader) reload() {
	next, err := Load(l.path)
	if err != nil {
		l.fail(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.Lock()
	prev := l.current
	l.current = next
	listeners := make([]ChangeFunc, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	l.logger().Info("configuration reloaded", "path", l.path)
	for _, fn := range listeners {
		fn(prev, next)
	}
}

func (l *Loader) fail(err error) {
	l.mu.RLock()
	fn := l.onError
	l.mu.RUnlock()
	if fn != nil {
		fn(err)
		return
	}
	l.logger().Warn("config watch error", "error", err)
}

// Close stops watching and waits for the watch goroutine to exit.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stop)
		if l.fsw != nil {
			<-l.done
			err = l.fsw.Close()
		}
	})
	return err
}
