package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the several events an editor emits per save.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Dir is the auxiliary directory to watch. It is created if missing.
	Dir string
	// Extension selects relevant files; events for other names are ignored.
	Extension string
	// Ignore is a path whose events never trigger a sync, typically the
	// primary store when it lives inside Dir.
	Ignore string
	// Debounce is the quiet period after the last relevant event before
	// OnChange runs. Zero means DefaultDebounce.
	Debounce time.Duration
	// TickInterval is the period of OnTick. Zero disables ticking.
	TickInterval time.Duration
	// SyncOnStart runs OnChange once as soon as the loop starts.
	SyncOnStart bool

	// OnChange runs after a burst of relevant events settles.
	OnChange func(ctx context.Context) error
	// OnTick runs every TickInterval, e.g. a backup check.
	OnTick func(ctx context.Context) error

	Logger *slog.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Events int
	Syncs  int
	Ticks  int
	Errors int
}

// Watcher runs OnChange when auxiliary store files change and OnTick on a
// fixed period. Both callbacks run on the watcher's single goroutine, so they
// never overlap. A Watcher cannot be restarted after Stop.
type Watcher struct {
	mu      sync.Mutex
	opts    Options
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	ignore  string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stopped bool
	stats   Stats
}

// New creates a Watcher. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		opts:    opts,
		watcher: fw,
		logger:  logger.With(slog.String("dir", opts.Dir)),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if opts.Ignore != "" {
		w.ignore, _ = filepath.Abs(opts.Ignore)
	}
	return w, nil
}

// Start begins watching. It returns once the directory is registered; events
// are handled on a background goroutine until Stop or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if w.stopped {
		return errors.New("watch: watcher already stopped")
	}

	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("watch: create %s: %w", w.opts.Dir, err)
	}
	if err := w.watcher.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.opts.Dir, err)
	}

	w.running = true
	w.logger.Info("watching auxiliary directory")
	go w.run(ctx)
	return nil
}

// Stop ends the loop, waits for a running callback to return and releases
// the underlying watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	wasRunning := w.running
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	if wasRunning {
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing watcher", slog.String("error", err.Error()))
	}
	w.logger.Info("watcher stopped")
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounce := time.NewTimer(w.opts.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	var tick <-chan time.Time
	if w.opts.TickInterval > 0 && w.opts.OnTick != nil {
		ticker := time.NewTicker(w.opts.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	if w.opts.SyncOnStart {
		w.change(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watch context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.count(func(s *Stats) { s.Events++ })
				w.logger.Debug("auxiliary file event",
					slog.String("path", event.Name),
					slog.String("op", event.Op.String()),
				)
				debounce.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.count(func(s *Stats) { s.Errors++ })
			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-debounce.C:
			w.change(ctx)

		case <-tick:
			w.count(func(s *Stats) { s.Ticks++ })
			if err := w.opts.OnTick(ctx); err != nil {
				w.count(func(s *Stats) { s.Errors++ })
				w.logger.Error("periodic task failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (w *Watcher) change(ctx context.Context) {
	w.count(func(s *Stats) { s.Syncs++ })
	if err := w.opts.OnChange(ctx); err != nil {
		w.count(func(s *Stats) { s.Errors++ })
		w.logger.Error("sync failed", slog.String("error", err.Error()))
	}
}

// relevant keeps create, write, remove and rename events for files carrying
// the store extension. Chmod-only events and temp files are dropped.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.opts.Extension != "" && !strings.HasSuffix(event.Name, w.opts.Extension) {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	if w.ignore != "" {
		if abs, err := filepath.Abs(event.Name); err == nil && abs == w.ignore {
			return false
		}
	}
	return true
}

func (w *Watcher) count(f func(*Stats)) {
	w.mu.Lock()
	f(&w.stats)
	w.mu.Unlock()
}
