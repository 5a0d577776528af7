// Package shell decides what the client renders: the normal application,
// the readiness block, or the ingestion block.
package shell

import "github.com/lightgraph/lightgraph-go/internal/gate"

// State is the session-level rendering state. The session loop is long
// lived; there is no terminal state.
type State int

const (
	// StateLoading blocks the whole screen: models are still warming and
	// no request can succeed yet.
	StateLoading State = iota
	// StateUnreachable blocks the whole screen: the backend did not answer
	// within the retry bound.
	StateUnreachable
	// StateReady renders the normal application.
	StateReady
	// StateIngesting blocks only the content area: an ingestion task is
	// outstanding, but navigation chrome remains meaningful.
	StateIngesting
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnreachable:
		return "unreachable"
	case StateReady:
		return "ready"
	case StateIngesting:
		return "ingesting"
	}
	return "unknown"
}

// Resolve composes gate status and task presence into a rendering state.
// Readiness blocking takes priority over ingestion blocking: while models
// are not confirmed loaded, an outstanding task is irrelevant because no
// request can succeed anyway.
func Resolve(gateStatus gate.Status, taskOutstanding bool) State {
	switch gateStatus {
	case gate.StatusError:
		return StateUnreachable
	case gate.StatusLoading:
		return StateLoading
	}

	if taskOutstanding {
		return StateIngesting
	}
	return StateReady
}

// FullScreen reports whether the state suppresses the navigation chrome.
// Readiness blocking replaces the whole screen; ingestion blocking replaces
// only the content area.
func (s State) FullScreen() bool {
	return s == StateLoading || s == StateUnreachable
}
