// Package tui renders the LightGraph terminal shell with Bubble Tea.
package tui

import (
	"context"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/lightgraph/lightgraph-go/internal/client"
	"github.com/lightgraph/lightgraph-go/internal/gate"
	"github.com/lightgraph/lightgraph-go/internal/shell"
	"github.com/lightgraph/lightgraph-go/internal/watch"
)

// gateChangedMsg signals that the readiness gate changed state.
type gateChangedMsg struct{}

// watchChangedMsg signals that the ingestion watcher changed state.
type watchChangedMsg struct{}

// groupsMsg carries the fetched group list for the normal view.
type groupsMsg struct {
	groups []client.Group
	err    error
}

// GroupLister fetches groups for the normal view.
type GroupLister interface {
	ListGroups(ctx context.Context) (*client.GroupList, error)
}

// App is the Bubble Tea model composing the readiness gate and the
// ingestion watcher into one rendering decision.
type App struct {
	gate    *gate.Gate
	watcher *watch.Watcher
	lister  GroupLister

	gateCh  <-chan struct{}
	watchCh <-chan struct{}

	spinner spinner.Model
	theme   Theme
	width   int

	state     shell.State
	gateSnap  gate.Snapshot
	watchSnap watch.Snapshot

	groups       []client.Group
	groupsErr    error
	groupsLoaded bool

	quitting bool
}

// NewApp creates the shell model. The gate and watcher must already be
// running; the app only observes them.
func NewApp(g *gate.Gate, w *watch.Watcher, lister GroupLister) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	gateCh, _ := g.Subscribe()
	watchCh, _ := w.Subscribe()

	app := App{
		gate:    g,
		watcher: w,
		lister:  lister,
		gateCh:  gateCh,
		watchCh: watchCh,
		spinner: sp,
		theme:   defaultTheme,
		width:   80,
	}
	app.refresh()
	return app
}

// refresh pulls current snapshots and recomputes the shell state.
func (a *App) refresh() {
	a.gateSnap = a.gate.Snapshot()
	a.watchSnap = a.watcher.Snapshot()
	a.state = shell.Resolve(a.gateSnap.Status, a.watchSnap.Blocking)
}

// Init starts the subscription listeners and the spinner.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		waitFor(a.gateCh, gateChangedMsg{}),
		waitFor(a.watchCh, watchChangedMsg{}),
	)
}

// Update handles messages and returns the updated model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil

	case tea.KeyPressMsg:
		return a.handleKey(msg)

	case gateChangedMsg:
		wasBlocked := a.state.FullScreen()
		a.refresh()
		cmds := []tea.Cmd{waitFor(a.gateCh, gateChangedMsg{})}
		// First transition out of the readiness block: populate the
		// normal view.
		if wasBlocked && !a.state.FullScreen() && !a.groupsLoaded {
			cmds = append(cmds, a.fetchGroups())
		}
		return a, tea.Batch(cmds...)

	case watchChangedMsg:
		wasIngesting := a.state == shell.StateIngesting
		a.refresh()
		cmds := []tea.Cmd{waitFor(a.watchCh, watchChangedMsg{})}
		// Task cleared while the content area was blocked: document
		// counts changed, so refetch.
		if wasIngesting && a.state == shell.StateReady {
			cmds = append(cmds, a.fetchGroups())
		}
		return a, tea.Batch(cmds...)

	case groupsMsg:
		a.groups = msg.groups
		a.groupsErr = msg.err
		a.groupsLoaded = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		a.quitting = true
		return a, tea.Quit

	case "d":
		// Manual dismiss of the ingestion block. The watcher clears the
		// slot through the same path automatic completion uses; the
		// state update arrives via the store notification.
		if a.state == shell.StateIngesting {
			_ = a.watcher.ClearTask()
		}
		return a, nil

	case "r":
		if !a.state.FullScreen() {
			a.groupsLoaded = false
			return a, a.fetchGroups()
		}
		return a, nil
	}

	return a, nil
}

// fetchGroups loads the group list for the normal view.
func (a App) fetchGroups() tea.Cmd {
	lister := a.lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		list, err := lister.ListGroups(ctx)
		if err != nil {
			return groupsMsg{err: err}
		}
		return groupsMsg{groups: list.Groups}
	}
}

// waitFor blocks on a subscription channel and converts the signal to msg.
func waitFor(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return msg
	}
}

// View renders the shell according to the blocking precedence: readiness
// blocking replaces the whole screen, ingestion blocking replaces only the
// content area below the header.
func (a App) View() tea.View {
	if a.quitting {
		return tea.NewView("")
	}

	switch a.state {
	case shell.StateLoading:
		return tea.NewView(a.loadingView())
	case shell.StateUnreachable:
		return tea.NewView(a.unreachableView())
	case shell.StateIngesting:
		return tea.NewView(a.header() + a.ingestingView())
	default:
		return tea.NewView(a.header() + a.groupsView())
	}
}

// Run starts the gate and watcher pollers and runs the shell UI until the
// user quits or ctx is cancelled.
func Run(ctx context.Context, g *gate.Gate, w *watch.Watcher, lister GroupLister) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.Run(ctx)
	go w.Run(ctx)

	p := tea.NewProgram(NewApp(g, w, lister), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
