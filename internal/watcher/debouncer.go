package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces events per path and emits them as one batch once no
// event has arrived for the window. Per-path merge rules:
//   - CREATE then MODIFY stays CREATE
//   - CREATE then DELETE cancels out
//   - DELETE then CREATE becomes MODIFY
//   - anything else keeps the latest operation
type Debouncer struct {
	window  time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]*pendingEvent
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event FileEvent
	first Operation
}

// NewDebouncer creates a Debouncer with the given window and output capacity.
func NewDebouncer(window time.Duration, buffer int, logger *slog.Logger) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		window:  window,
		logger:  logger,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, max(buffer, 1)),
	}
}

// Add queues ev and restarts the window.
func (d *Debouncer) Add(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[ev.Path]; ok {
		op, keep := merge(p.first, ev.Operation)
		if !keep {
			delete(d.pending, ev.Path)
		} else {
			p.event = ev
			p.event.Operation = op
		}
	} else {
		d.pending[ev.Path] = &pendingEvent{event: ev, first: ev.Operation}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func merge(first, next Operation) (Operation, bool) {
	switch {
	case first == OpCreate && next == OpModify:
		return OpCreate, true
	case first == OpCreate && next == OpDelete:
		return 0, false
	case first == OpDelete && next == OpCreate:
		return OpModify, true
	default:
		return next, true
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, p := range d.pending {
		batch = append(batch, p.event)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- batch:
	default:
		d.logger.Warn("watcher_batch_dropped", slog.Int("batch_size", len(batch)))
	}
}

// Output returns the batch channel. It is closed by Stop.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes the output. Idempotent.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
