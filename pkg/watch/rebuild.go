package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mercator-hq/cascade/pkg/less/compiler"
)

// Compiler compiles an entry file. *compiler.Compiler satisfies it.
type Compiler interface {
	Compile(ctx context.Context, path string) (*compiler.Result, error)
}

// Event describes one rebuild.
type Event struct {
	// Build counts rebuilds, starting at 1 for the initial compile
	Build int

	// Changed lists the files whose change triggered the rebuild. It is
	// empty for the initial compile.
	Changed []string

	// Result is the compile output, nil when Err is set
	Result *compiler.Result

	// Err is the compile error
	Err error

	// Duration is the wall time of the rebuild
	Duration time.Duration
}

// Rebuilder compiles an entry file and compiles it again whenever the file
// or one of its imports changes. After every successful compile the watched
// set becomes the entry plus the imports of the new result, so added and
// removed imports are picked up. A failed compile keeps the previous set.
type Rebuilder struct {
	compiler Compiler
	watcher  *Watcher
	target   string
	onEvent  func(Event)
	logger   *slog.Logger

	mu     sync.Mutex
	builds int
}

// NewRebuilder creates a rebuilder for target. onEvent is called after every
// compile, from one goroutine at a time.
func NewRebuilder(c Compiler, w *Watcher, target string, onEvent func(Event), logger *slog.Logger) *Rebuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Rebuilder{
		compiler: c,
		watcher:  w,
		target:   target,
		onEvent:  onEvent,
		logger:   logger.With("component", "watch", "target", target),
	}
}

// Run compiles the target once and then on every change until ctx is
// canceled.
func (r *Rebuilder) Run(ctx context.Context) error {
	if err := r.watcher.SetFiles([]string{r.target}); err != nil {
		return err
	}
	r.Rebuild(ctx, nil)
	return r.watcher.Watch(ctx, func(changed []string) {
		r.Rebuild(ctx, changed)
	})
}

// Rebuild compiles the target and updates the watched file set.
func (r *Rebuilder) Rebuild(ctx context.Context, changed []string) Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil {
		return Event{Err: ctx.Err()}
	}

	r.builds++
	start := time.Now()
	res, err := r.compiler.Compile(ctx, r.target)
	ev := Event{
		Build:    r.builds,
		Changed:  relative(changed),
		Result:   res,
		Err:      err,
		Duration: time.Since(start),
	}

	if err == nil {
		files := append([]string{r.target}, res.Imports...)
		if setErr := r.watcher.SetFiles(files); setErr != nil {
			r.logger.Warn("failed to update watched files", "error", setErr)
		}
		r.logger.Debug("rebuilt", "build", ev.Build, "imports", len(res.Imports), "duration", ev.Duration)
	} else {
		r.logger.Debug("rebuild failed", "build", ev.Build, "error", err)
	}

	r.onEvent(ev)
	return ev
}

// relative shortens paths under the working directory for display.
func relative(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	wd, err := filepath.Abs(".")
	if err != nil {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if rel, err := filepath.Rel(wd, p); err == nil && !strings.HasPrefix(rel, "..") {
			out[i] = rel
		} else {
			out[i] = p
		}
	}
	return out
}
