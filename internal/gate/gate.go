// Package gate blocks the client until the backend confirms its models are
// loaded.
package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lightgraph/lightgraph-go/internal/client"
	"github.com/lightgraph/lightgraph-go/internal/signal"
)

// Status is the coarse readiness state.
type Status int

const (
	// StatusLoading means the backend is reachable but models are not yet
	// warm. Remediation: wait.
	StatusLoading Status = iota
	// StatusReady means required models are confirmed loaded.
	StatusReady
	// StatusError means the health endpoint could not be reached within
	// the retry bound. Remediation: check the backend and network.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// HealthChecker fetches the backend health signal. *client.Client satisfies
// it; tests substitute fakes.
type HealthChecker interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
}

// Snapshot is produced fresh on every poll and never merged with prior ones.
type Snapshot struct {
	Status       Status
	LoadedModels []string
}

// Options configure a Gate.
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

// Gate polls the health endpoint until models are loaded, then stops for the
// rest of the session. A model warmed with keep-alive stays warm until the
// backend restarts, so readiness is treated as monotonic per session.
type Gate struct {
	checker HealthChecker
	opts    Options

	mu       sync.Mutex
	snap     Snapshot
	notifier signal.Notifier
}

// New creates a gate over the given health source.
func New(checker HealthChecker, opts Options) *Gate {
	opts.fill()
	return &Gate{checker: checker, opts: opts}
}

// Snapshot returns the current readiness state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap
}

// Subscribe registers for state-change notifications.
func (g *Gate) Subscribe() (<-chan struct{}, func()) {
	return g.notifier.Subscribe()
}

// Run polls until ready or ctx is done. Ticks are strictly sequential, and
// once readiness is observed no further health requests are issued.
func (g *Gate) Run(ctx context.Context) {
	for {
		ready := g.tick(ctx)
		if ctx.Err() != nil {
			return
		}
		if ready {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(g.opts.Interval):
		}
	}
}

// tick fetches health once with bounded retries and applies the result.
// Returns true once models are loaded.
func (g *Gate) tick(ctx context.Context) bool {
	health, err := g.fetchHealth(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Warn("health check failed", "error", err)
		// Unreachable is distinct from not-warm; it must never be
		// mistaken for readiness.
		g.apply(Snapshot{Status: StatusError})
		return false
	}

	if !health.ModelsLoaded {
		g.apply(Snapshot{Status: StatusLoading, LoadedModels: health.LoadedModels})
		return false
	}

	slog.Info("models loaded, gate open", "models", health.LoadedModels)
	g.apply(Snapshot{Status: StatusReady, LoadedModels: health.LoadedModels})
	return true
}

func (g *Gate) fetchHealth(ctx context.Context) (*client.HealthResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.RetryLimit; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		health, err := g.checker.Health(attemptCtx)
		cancel()
		if err == nil {
			return health, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// apply installs a fresh snapshot, signalling subscribers only on material
// change so a persistent failure latches the error state exactly once.
func (g *Gate) apply(snap Snapshot) {
	g.mu.Lock()
	changed := g.snap.Status != snap.Status || !sameModels(g.snap.LoadedModels, snap.LoadedModels)
	g.snap = snap
	g.mu.Unlock()

	if changed {
		g.notifier.Notify()
	}
}

func sameModels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
