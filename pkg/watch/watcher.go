package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/cascade/pkg/config"
)

var (
	// ErrAlreadyRunning is returned by Watch when the watcher is already running.
	ErrAlreadyRunning = errors.New("watcher already running")

	// ErrClosed is returned by Watch after Stop.
	ErrClosed = errors.New("watcher closed")
)

// Config contains configuration for the watcher.
type Config struct {
	// Debounce is the time to wait after the last change before the change
	// handler runs (default: 100ms)
	Debounce time.Duration
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() *Config {
	return &Config{Debounce: 100 * time.Millisecond}
}

// FromConfig converts the watch section of the application configuration.
func FromConfig(cfg config.WatchConfig) *Config {
	c := DefaultConfig()
	if cfg.Debounce > 0 {
		c.Debounce = cfg.Debounce
	}
	return c
}

// Watcher reports changes to a set of files. The parent directories are
// watched rather than the files, so files replaced by rename (as most editors
// save) keep being tracked.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *Config
	debounce *Debouncer

	mu      sync.Mutex
	files   map[string]struct{}
	dirs    map[string]int
	pending map[string]struct{}
	running bool
	closed  bool
	stopCh  chan struct{} // of the current run
	doneCh  chan struct{} // of the current run
}

// New creates a watcher with an empty file set.
func New(cfg *Config, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		logger:   logger.With("component", "watch"),
		config:   cfg,
		debounce: NewDebouncer(cfg.Debounce),
		files:    make(map[string]struct{}),
		dirs:     make(map[string]int),
		pending:  make(map[string]struct{}),
	}, nil
}

// SetFiles replaces the watched file set. Directories no longer holding a
// watched file are released. On error the previous set stays in effect.
func (w *Watcher) SetFiles(paths []string) error {
	files := make(map[string]struct{}, len(paths))
	dirs := make(map[string]int)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", p, err)
		}
		if _, ok := files[abs]; ok {
			continue
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)]++
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var added []string
	for dir := range dirs {
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			for _, a := range added {
				_ = w.watcher.Remove(a)
			}
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		added = append(added, dir)
		w.logger.Debug("watching directory", "path", dir)
	}
	for dir := range w.dirs {
		if _, ok := dirs[dir]; !ok {
			// The directory may already be gone.
			_ = w.watcher.Remove(dir)
		}
	}

	w.files = files
	w.dirs = dirs
	return nil
}

// Files returns the watched files, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Watch runs until ctx is canceled or Stop is called. onChange receives the
// watched files changed since the previous call, once per quiet period.
// Watch may be called again after ctx is canceled, but not after Stop.
func (w *Watcher) Watch(ctx context.Context, onChange func(changed []string)) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stopCh, doneCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(doneCh)
	}()

	w.logger.Info("file watcher started",
		"files", len(w.Files()),
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped (context canceled)")
			return nil

		case <-stopCh:
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.track(event) {
				continue
			}
			w.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() {
				if changed := w.takePending(); len(changed) > 0 {
					onChange(changed)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// track records event when it concerns a watched file.
func (w *Watcher) track(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; !ok {
		return false
	}
	w.pending[name] = struct{}{}
	return true
}

func (w *Watcher) takePending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(out)
	return out
}

// Stop stops the watcher and releases its resources. Later calls do
// nothing.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	running, stopCh, doneCh := w.running, w.stopCh, w.doneCh
	w.mu.Unlock()

	if running {
		close(stopCh)
		<-doneCh
	}
	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
