package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightgraph/lightgraph-go/internal/client"
)

// fakeChecker scripts health responses. The last entry repeats.
type fakeChecker struct {
	mu        sync.Mutex
	responses []func() (*client.HealthResponse, error)
	calls     int
}

func (f *fakeChecker) Health(ctx context.Context) (*client.HealthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i]()
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func healthy(models ...string) func() (*client.HealthResponse, error) {
	return func() (*client.HealthResponse, error) {
		return &client.HealthResponse{Status: "healthy", ModelsLoaded: true, LoadedModels: models}, nil
	}
}

func warming(models ...string) func() (*client.HealthResponse, error) {
	return func() (*client.HealthResponse, error) {
		return &client.HealthResponse{Status: "healthy", ModelsLoaded: false, LoadedModels: models}, nil
	}
}

func unreachable() (*client.HealthResponse, error) {
	return nil, fmt.Errorf("connection refused")
}

func newTestGate(checker HealthChecker) *Gate {
	return New(checker, Options{
		Interval:   5 * time.Millisecond,
		RetryLimit: 2,
		Timeout:    time.Second,
	})
}

func runGate(t *testing.T, g *Gate) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestGateTransitionsLoadingToReady(t *testing.T) {
	// Models report cold three times, then warm.
	checker := &fakeChecker{responses: []func() (*client.HealthResponse, error){
		warming(),
		warming(),
		warming("bge-m3:latest"),
		healthy("bge-m3:latest", "gpt-oss:20b"),
	}}
	g := newTestGate(checker)
	runGate(t, g)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusReady
	}, time.Second, time.Millisecond)

	snap := g.Snapshot()
	assert.Equal(t, []string{"bge-m3:latest", "gpt-oss:20b"}, snap.LoadedModels)
}

func TestGateStopsPollingOnceReady(t *testing.T) {
	checker := &fakeChecker{responses: []func() (*client.HealthResponse, error){
		healthy("gpt-oss:20b"),
	}}
	g := newTestGate(checker)
	runGate(t, g)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusReady
	}, time.Second, time.Millisecond)

	calls := checker.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, checker.callCount(),
		"no further health requests may be issued after readiness")
}

func TestGateErrorDistinctFromLoading(t *testing.T) {
	checker := &fakeChecker{responses: []func() (*client.HealthResponse, error){
		func() (*client.HealthResponse, error) { return unreachable() },
	}}
	g := newTestGate(checker)
	runGate(t, g)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusError
	}, time.Second, time.Millisecond)

	assert.NotEqual(t, StatusLoading.String(), StatusError.String(),
		"operators must be able to tell unreachable from warming")
}

func TestGateRecoversFromError(t *testing.T) {
	// One tick's worth of failures (initial attempt + 2 retries), then the
	// backend answers again.
	checker := &fakeChecker{responses: []func() (*client.HealthResponse, error){
		func() (*client.HealthResponse, error) { return unreachable() },
		func() (*client.HealthResponse, error) { return unreachable() },
		func() (*client.HealthResponse, error) { return unreachable() },
		warming(),
	}}
	g := newTestGate(checker)
	runGate(t, g)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusError
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusLoading
	}, time.Second, time.Millisecond)
}

func TestGateErrorLatchesOnce(t *testing.T) {
	checker := &fakeChecker{responses: []func() (*client.HealthResponse, error){
		func() (*client.HealthResponse, error) { return unreachable() },
	}}
	g := newTestGate(checker)

	updates, unsubscribe := g.Subscribe()
	defer unsubscribe()
	runGate(t, g)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusError
	}, time.Second, time.Millisecond)

	// Drain, then confirm continued failures do not re-signal.
	for {
		select {
		case <-updates:
			continue
		default:
		}
		break
	}
	time.Sleep(50 * time.Millisecond)
	select {
	case <-updates:
		t.Fatal("persistent failure must not keep re-signalling the error state")
	default:
	}
}

// TestGateAgainstBackend exercises the gate through the real HTTP client:
// the health endpoint fails three consecutive polls (exceeding the retry
// bound), then reports models loaded.
func TestGateAgainstBackend(t *testing.T) {
	var mu sync.Mutex
	failures := 9 // 3 ticks * (1 attempt + 2 retries)

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			http.Error(rw, `{"detail":"internal error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"status":        "healthy",
			"service":       "lightgraph-rag-api",
			"version":       "0.1.0",
			"models_loaded": true,
			"loaded_models": []string{"bge-m3:latest", "gpt-oss:20b"},
		})
	}))
	defer server.Close()

	g := New(client.New(server.URL), Options{
		Interval:   5 * time.Millisecond,
		RetryLimit: 2,
		Timeout:    time.Second,
	})
	runGate(t, g)

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusError
	}, time.Second, time.Millisecond, "exhausted retries must surface as error, not loading")

	require.Eventually(t, func() bool {
		return g.Snapshot().Status == StatusReady
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, []string{"bge-m3:latest", "gpt-oss:20b"}, g.Snapshot().LoadedModels)
}
