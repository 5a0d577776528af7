package cli

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/gate"
	"github.com/lightgraph/lightgraph-go/internal/tui"
	"github.com/lightgraph/lightgraph-go/internal/watch"
)

// runShell runs the interactive shell: the readiness gate blocks the whole
// screen until models are warm, an outstanding ingestion task blocks the
// content area, and otherwise the group overview renders.
func runShell(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := gate.New(backend, gate.Options{
		Interval:   cfg.PollInterval,
		RetryLimit: cfg.RetryLimit,
		Timeout:    cfg.RequestTimeout,
	})
	w := watch.New(taskStore, backend, watch.Options{
		Interval:   cfg.PollInterval,
		RetryLimit: cfg.RetryLimit,
		Timeout:    cfg.RequestTimeout,
	})

	// Pick up task writes and clears made by other lightgraph processes
	// while the shell is open.
	go func() { _ = taskStore.Watch(ctx) }()

	if err := tui.Run(ctx, g, w, backend); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
