package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lightgraph/lightgraph-go/internal/gate"
)

// Theme holds the color scheme for the shell.
type Theme struct {
	Header  lipgloss.Color
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Header:  lipgloss.Color("#5FAFD7"), // light blue
	Status:  lipgloss.Color("#5FAFD7"),
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Header).Bold(true)
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// header renders the navigation chrome. It stays visible while ingestion
// blocks the content area, and disappears entirely behind the readiness
// block.
func (a App) header() string {
	title := a.theme.headerStyle().Render("LightGraph")
	hint := a.theme.hintStyle().Render("r refresh · q quit")
	pad := a.width - lipgloss.Width(title) - lipgloss.Width(hint)
	if pad < 1 {
		pad = 1
	}
	return title + strings.Repeat(" ", pad) + hint + "\n" +
		a.theme.hintStyle().Render(strings.Repeat("─", max(a.width, 10))) + "\n"
}

// loadingView is the full-screen readiness block: backend reachable, models
// still warming.
func (a App) loadingView() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %s\n", a.spinner.View(),
		a.theme.statusStyle().Render("Waiting for models to load…")))
	if len(a.gateSnap.LoadedModels) > 0 {
		b.WriteString(a.theme.hintStyle().Render(
			fmt.Sprintf("  loaded so far: %s\n", strings.Join(a.gateSnap.LoadedModels, ", "))))
	}
	b.WriteString("\n")
	b.WriteString(a.theme.hintStyle().Render("  The first start can take several minutes while Ollama pulls and warms the models.\n"))
	return b.String()
}

// unreachableView is the full-screen readiness block for a backend that did
// not answer within the retry bound. Its remediation differs from loading:
// check the backend, not the clock.
func (a App) unreachableView() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s\n", a.theme.errorStyle().Render("✗ Backend unreachable")))
	b.WriteString("\n")
	b.WriteString(a.theme.hintStyle().Render("  Could not reach the LightGraph backend. Check that the server is running\n"))
	b.WriteString(a.theme.hintStyle().Render("  and that LIGHTGRAPH_SERVER_URL points at it. Retrying…\n"))
	return b.String()
}

// ingestingView blocks the content area while a document is being indexed.
func (a App) ingestingView() string {
	t := a.watchSnap.Task
	if t == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %s\n", a.spinner.View(),
		a.theme.statusStyle().Render(fmt.Sprintf("Indexing %q into group %s…", t.Filename, t.GroupID))))
	b.WriteString(a.theme.hintStyle().Render(
		fmt.Sprintf("  documents: %d, waiting for %d\n", a.watchSnap.DocumentCount, t.ExpectedMinDocuments)))

	if a.watchSnap.Err {
		b.WriteString("\n")
		b.WriteString(a.theme.errorStyle().Render("  ! Could not verify ingestion progress.\n"))
		b.WriteString(a.theme.hintStyle().Render(
			"  The document count fetch keeps failing. The group may have been deleted,\n" +
				"  or this may be a transient network problem. Press d to dismiss the task.\n"))
	} else {
		b.WriteString("\n")
		b.WriteString(a.theme.hintStyle().Render(
			"  Entity extraction and graph construction run on the backend and can take a\n" +
				"  while for large documents. Press d to stop waiting.\n"))
	}
	return b.String()
}

// groupsView is the normal application content.
func (a App) groupsView() string {
	var b strings.Builder
	b.WriteString("\n")

	if a.gateSnap.Status == gate.StatusReady && len(a.gateSnap.LoadedModels) > 0 {
		b.WriteString(a.theme.successStyle().Render("  ● models ready"))
		b.WriteString(a.theme.hintStyle().Render(
			fmt.Sprintf("  %s\n", strings.Join(a.gateSnap.LoadedModels, ", "))))
		b.WriteString("\n")
	}

	switch {
	case a.groupsErr != nil:
		b.WriteString(a.theme.errorStyle().Render(
			fmt.Sprintf("  failed to load groups: %v\n", a.groupsErr)))
	case !a.groupsLoaded:
		b.WriteString(fmt.Sprintf("  %s loading groups…\n", a.spinner.View()))
	case len(a.groups) == 0:
		b.WriteString("  No groups yet.\n")
		b.WriteString(a.theme.hintStyle().Render("  Create one with: lightgraph groups create <name>\n"))
	default:
		b.WriteString(fmt.Sprintf("  %-20s %-30s %10s\n", "ID", "NAME", "DOCUMENTS"))
		for _, g := range a.groups {
			name := g.Name
			if len(name) > 30 {
				name = name[:27] + "..."
			}
			b.WriteString(fmt.Sprintf("  %-20s %-30s %10d\n", g.ID, name, g.DocumentCount))
		}
	}
	return b.String()
}
