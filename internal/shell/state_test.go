package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lightgraph/lightgraph-go/internal/gate"
)

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name            string
		gateStatus      gate.Status
		taskOutstanding bool
		want            State
	}{
		{
			name:            "loading without task",
			gateStatus:      gate.StatusLoading,
			taskOutstanding: false,
			want:            StateLoading,
		},
		{
			// Readiness blocking wins even while a task is outstanding.
			name:            "loading with task",
			gateStatus:      gate.StatusLoading,
			taskOutstanding: true,
			want:            StateLoading,
		},
		{
			name:            "unreachable without task",
			gateStatus:      gate.StatusError,
			taskOutstanding: false,
			want:            StateUnreachable,
		},
		{
			name:            "unreachable with task",
			gateStatus:      gate.StatusError,
			taskOutstanding: true,
			want:            StateUnreachable,
		},
		{
			name:            "ready without task",
			gateStatus:      gate.StatusReady,
			taskOutstanding: false,
			want:            StateReady,
		},
		{
			name:            "ready with task",
			gateStatus:      gate.StatusReady,
			taskOutstanding: true,
			want:            StateIngesting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.gateStatus, tt.taskOutstanding))
		})
	}
}

func TestFullScreen(t *testing.T) {
	assert.True(t, StateLoading.FullScreen())
	assert.True(t, StateUnreachable.FullScreen())
	assert.False(t, StateReady.FullScreen())
	assert.False(t, StateIngesting.FullScreen(),
		"ingestion blocks the content area, the frame stays visible")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "unreachable", StateUnreachable.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "ingesting", StateIngesting.String())
}
