package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("watcher already running")

// FileWatcher watches a fixed set of files.
type FileWatcher struct {
	opts      Options
	paths     map[string]struct{}
	logger    *slog.Logger
	debouncer *Debouncer

	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	running bool
	polling bool
}

// New creates a watcher for paths. Relative paths are made absolute.
func New(opts Options, paths ...string) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to watch")
	}
	opts = opts.WithDefaults()

	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		set[filepath.Clean(abs)] = struct{}{}
	}

	return &FileWatcher{
		opts:   opts,
		paths:  set,
		logger: slog.Default(),
		ready:  make(chan struct{}),
	}, nil
}

// SetLogger replaces the logger. Call before Run.
func (w *FileWatcher) SetLogger(l *slog.Logger) {
	if l != nil {
		w.logger = l
	}
}

// Events returns debounced batches. The channel is closed when Run returns.
// It is nil until Run has started.
func (w *FileWatcher) Events() <-chan []FileEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debouncer == nil {
		w.debouncer = NewDebouncer(w.opts.DebounceWindow, w.opts.EventBufferSize, w.logger)
	}
	return w.debouncer.Output()
}

// Ready is closed once changes are being observed.
func (w *FileWatcher) Ready() <-chan struct{} {
	return w.ready
}

func (w *FileWatcher) markReady() {
	w.readyOnce.Do(func() { close(w.ready) })
}

// Polling reports whether the watcher fell back to polling.
func (w *FileWatcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Run watches until ctx is cancelled.
func (w *FileWatcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	if w.debouncer == nil {
		w.debouncer = NewDebouncer(w.opts.DebounceWindow, w.opts.EventBufferSize, w.logger)
	}
	w.mu.Unlock()
	defer w.debouncer.Stop()

	if !w.opts.ForcePolling {
		fsw, err := w.openNotify()
		if err == nil {
			return w.runNotify(ctx, fsw)
		}
		w.logger.Warn("watcher_fsnotify_unavailable",
			slog.String("error", err.Error()),
			slog.Duration("poll_interval", w.opts.PollInterval))
	}

	w.mu.Lock()
	w.polling = true
	w.mu.Unlock()
	return w.runPolling(ctx)
}

func (w *FileWatcher) openNotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return fsw, nil
}

func (w *FileWatcher) runNotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	defer func() { _ = fsw.Close() }()
	w.logger.Debug("watcher_started", slog.String("mode", "fsnotify"), slog.Int("files", len(w.paths)))
	w.markReady()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleNotify(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *FileWatcher) handleNotify(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if _, ok := w.paths[path]; !ok {
		return
	}

	var op Operation
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *FileWatcher) runPolling(ctx context.Context) error {
	w.logger.Debug("watcher_started", slog.String("mode", "polling"), slog.Int("files", len(w.paths)))

	last := make(map[string]fileState, len(w.paths))
	for p := range w.paths {
		last[p] = statFile(p)
	}
	w.markReady()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for p, prev := range last {
				cur := statFile(p)
				if op, changed := diffState(prev, cur); changed {
					w.debouncer.Add(FileEvent{Path: p, Operation: op, Timestamp: time.Now()})
				}
				last[p] = cur
			}
		}
	}
}

func diffState(prev, cur fileState) (Operation, bool) {
	switch {
	case !prev.exists && cur.exists:
		return OpCreate, true
	case prev.exists && !cur.exists:
		return OpDelete, true
	case cur.exists && (prev.size != cur.size || !prev.modTime.Equal(cur.modTime)):
		return OpModify, true
	default:
		return 0, false
	}
}
