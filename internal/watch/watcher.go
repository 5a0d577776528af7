// Package watch turns an outstanding ingestion task into a live
// "has the document count caught up" signal.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lightgraph/lightgraph-go/internal/client"
	"github.com/lightgraph/lightgraph-go/internal/signal"
	"github.com/lightgraph/lightgraph-go/internal/task"
)

// DocumentCounter fetches document totals for a group. *client.Client
// satisfies it; tests substitute fakes.
type DocumentCounter interface {
	ListDocuments(ctx context.Context, groupID string) (*client.DocumentList, error)
}

// Snapshot is the watcher state consumers render from.
type Snapshot struct {
	Task          *task.Task
	Blocking      bool
	Err           bool
	DocumentCount int
}

// Options configure a Watcher. Zero fields take defaults matching the
// backend's indexing cadence.
type Options struct {
	Interval   time.Duration // default 2s
	RetryLimit int           // extra attempts per tick, default 2
	Timeout    time.Duration // per-attempt bound, default 10s
}

func (o *Options) fill() {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.RetryLimit < 0 {
		o.RetryLimit = 0
	} else if o.RetryLimit == 0 {
		o.RetryLimit = 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
}

// Watcher polls document counts while a task is outstanding and clears the
// task once the observed count satisfies it. With no task present it
// performs zero network activity.
type Watcher struct {
	store   *task.Store
	counter DocumentCounter
	opts    Options

	mu       sync.Mutex
	snap     Snapshot
	notifier signal.Notifier
}

// New creates a watcher over the given store and document source.
func New(store *task.Store, counter DocumentCounter, opts Options) *Watcher {
	opts.fill()
	return &Watcher{store: store, counter: counter, opts: opts}
}

// Snapshot returns the current watcher state.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

// Subscribe registers for state-change notifications.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	return w.notifier.Subscribe()
}

// ClearTask is the manual-override escape hatch. It clears the slot through
// the same path automatic completion uses.
func (w *Watcher) ClearTask() error {
	return w.store.Clear()
}

// Run polls until ctx is done. Ticks are strictly sequential: a new tick is
// not issued before the prior response has been processed.
func (w *Watcher) Run(ctx context.Context) {
	storeCh, unsubscribe := w.store.Subscribe()
	defer unsubscribe()

	for {
		current := w.store.Read()
		w.refreshTask(current)

		if current == nil {
			// Polling is strictly gated on task presence.
			select {
			case <-ctx.Done():
				return
			case <-storeCh:
			}
			continue
		}

		w.tick(ctx, *current)

		select {
		case <-ctx.Done():
			return
		case <-storeCh:
			// Task written or cleared underneath us; re-read immediately.
		case <-time.After(w.opts.Interval):
		}
	}
}

// tick fetches the document count once (with bounded retries) and applies
// the result against the task that was current when the tick started.
func (w *Watcher) tick(ctx context.Context, t task.Task) {
	total, err := w.fetchCount(ctx, t.GroupID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("document count fetch failed",
			"task_id", t.ID, "group_id", t.GroupID, "error", err)
		// Failing to verify completion must not be mistaken for
		// completion: the task stays, only the error flag flips.
		w.setError(t)
		return
	}

	// The fetch ran without the store lock; re-check the slot before
	// acting so a stale response is never applied to a newer task.
	current := w.store.Read()
	if current == nil || current.ID != t.ID {
		return
	}

	if t.Satisfied(total) {
		slog.Info("ingestion complete, clearing task",
			"task_id", t.ID, "group_id", t.GroupID, "total", total)
		if err := w.store.Clear(); err != nil {
			slog.Warn("failed to clear completed task", "task_id", t.ID, "error", err)
		}
	}

	w.setCount(total)
}

// fetchCount issues the count request, retrying up to the configured bound.
func (w *Watcher) fetchCount(ctx context.Context, groupID string) (int, error) {
	var lastErr error
	for attempt := 0; attempt <= w.opts.RetryLimit; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
		list, err := w.counter.ListDocuments(attemptCtx, groupID)
		cancel()
		if err == nil {
			return list.Total, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	return 0, lastErr
}

func (w *Watcher) refreshTask(t *task.Task) {
	w.mu.Lock()
	changed := !sameTask(w.snap.Task, t)
	if changed {
		w.snap.Task = t
		w.snap.Blocking = t != nil
		if t == nil {
			w.snap.Err = false
			w.snap.DocumentCount = 0
		}
	}
	w.mu.Unlock()

	if changed {
		w.notifier.Notify()
	}
}

// setError latches the error flag for the given task. The latch flips once
// per failure streak; repeated failures do not re-signal.
func (w *Watcher) setError(t task.Task) {
	w.mu.Lock()
	changed := !w.snap.Err && w.snap.Task != nil && w.snap.Task.ID == t.ID
	if changed {
		w.snap.Err = true
	}
	w.mu.Unlock()

	if changed {
		w.notifier.Notify()
	}
}

func (w *Watcher) setCount(total int) {
	w.mu.Lock()
	changed := w.snap.Err || w.snap.DocumentCount != total
	w.snap.Err = false
	w.snap.DocumentCount = total
	w.mu.Unlock()

	if changed {
		w.notifier.Notify()
	}
}

func sameTask(a, b *task.Task) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
