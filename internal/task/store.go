package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/lightgraph/lightgraph-go/internal/signal"
)

// Store is the single source of truth for the current ingestion task. The
// task lives in a JSON state file so a restart mid-ingestion does not lose
// the block, the way the original browser client kept it in localStorage.
//
// Two notification channels exist and both are wired: in-process subscribers
// are signalled synchronously on every Write/Clear, and Watch feeds file
// changes made by other processes into the same subscribers.
type Store struct {
	path     string
	lock     *flock.Flock
	notifier signal.Notifier
}

// NewStore creates a store backed by the given state file. The store is an
// injected dependency; nothing reads the slot through package-level state.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Write persists the task, overwriting any existing one, and signals
// subscribers before returning.
func (s *Store) Write(t Task) error {
	if !t.Valid() {
		return fmt.Errorf("refusing to persist partial task: %+v", t)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.notify()
	return nil
}

// Read returns the current task, or nil if none exists. Malformed or partial
// persisted state reads as nil — fail open, never fail closed.
func (s *Store) Read() *Task {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read task state", "path", s.path, "error", err)
		}
		return nil
	}

	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		slog.Warn("malformed task state, treating as no task", "path", s.path, "error", err)
		return nil
	}
	if !t.Valid() {
		return nil
	}
	return &t
}

// Clear removes the persisted task and signals subscribers. Clearing an
// already-empty slot is not an error.
func (s *Store) Clear() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove task state: %w", err)
	}

	s.notify()
	return nil
}

// Subscribe registers for change notifications. Subscribers must re-read
// current state on each signal. The returned function unsubscribes.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.notifier.Subscribe()
}

func (s *Store) notify() {
	s.notifier.Notify()
}

// Watch feeds state-file changes made by other processes into this store's
// subscribers. It blocks until ctx is done. Writes from this process arrive
// through the synchronous in-process channel; the two are independent.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: the file is replaced by rename on
	// every write and may not exist yet.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch state dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == filepath.Clean(s.path) {
				s.notify()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("task state watcher error", "error", err)
		}
	}
}

// writeFileAtomic writes data via a temp file + rename so readers never
// observe a partially written slot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".task-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
