package meshtask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_Defaults(t *testing.T) {
	task := NewTask("implement the thing", RoleImplementation, 1, "parent-1")

	assert.NotEmpty(t, task.ID())
	assert.Equal(t, "parent-1", task.ParentID())
	assert.Equal(t, 1, task.Depth())
	assert.Equal(t, StatusPending, task.Status())
	assert.Equal(t, PriorityMedium, task.Priority())
	assert.Equal(t, ReturnModeSummary, task.ReturnMode())
	assert.Equal(t, 2, task.MaxRetries())
	assert.Empty(t, task.Children())
}

func TestTask_TransitionLifecycle(t *testing.T) {
	task := NewTask("write tests", RoleTesting, 0, "")

	require.NoError(t, task.Transition(StatusQueued, ""))
	assert.Equal(t, StatusQueued, task.Status())

	require.NoError(t, task.Transition(StatusInProgress, "agent-7"))
	assert.Equal(t, StatusInProgress, task.Status())
	assert.Equal(t, "agent-7", task.AssignedAgent())
	require.NotNil(t, task.StartedAt())

	require.NoError(t, task.Transition(StatusVerifying, ""))
	require.NoError(t, task.Transition(StatusCompleted, ""))
	assert.Equal(t, StatusCompleted, task.Status())
	require.NotNil(t, task.CompletedAt())
}

func TestTask_ReworkIncrementsRetryAndReturnsToPending(t *testing.T) {
	task := NewTask("fix the bug", RoleDebugging, 0, "")
	require.NoError(t, task.Transition(StatusInProgress, "agent-1"))
	require.NoError(t, task.Transition(StatusVerifying, ""))

	require.NoError(t, task.Transition(StatusRework, ""))

	assert.Equal(t, StatusPending, task.Status(), "rework always lands back in pending")
	assert.Equal(t, 1, task.RetryCount())
}

func TestTask_TerminalStatusRejectsFurtherTransitions(t *testing.T) {
	task := NewTask("ship it", RoleImplementation, 0, "")
	require.NoError(t, task.Transition(StatusCancelled, ""))

	err := task.Transition(StatusInProgress, "agent-1")
	assert.Error(t, err)
	assert.Equal(t, StatusCancelled, task.Status())
}

func TestTask_SetDependenciesDeduplicates(t *testing.T) {
	task := NewTask("synthesize results", RoleSynthesizer, 1, "root")
	task.SetDependencies([]string{"a", "b", "a", "", "c"})

	assert.Equal(t, []string{"a", "b", "c"}, task.Dependencies())
}

func TestTask_SnapshotRoundTrip(t *testing.T) {
	task := NewTask("analyze the repo", RoleAnalysis, 2, "root")
	task.SetWorkFolder("/tmp/work/analyze")
	task.AddTag("phase-1")
	task.SetMetadata("estimated_tokens", 4200)
	task.SetDependencies([]string{"dep-1"})
	task.SetPriority(PriorityHigh)
	require.NoError(t, task.Transition(StatusInProgress, "agent-3"))

	snap := task.Snapshot()
	restored := FromSnapshot(snap)

	assert.Equal(t, task.ID(), restored.ID())
	assert.Equal(t, task.WorkFolder(), restored.WorkFolder())
	assert.Equal(t, task.Tags(), restored.Tags())
	assert.Equal(t, task.Dependencies(), restored.Dependencies())
	assert.Equal(t, task.Priority(), restored.Priority())
	assert.Equal(t, task.Status(), restored.Status())
	assert.Equal(t, task.AssignedAgent(), restored.AssignedAgent())

	v, ok := restored.Metadata("estimated_tokens")
	require.True(t, ok)
	assert.Equal(t, 4200, v)
}

func TestPriority_Less(t *testing.T) {
	assert.True(t, PriorityCritical.Less(PriorityHigh))
	assert.True(t, PriorityHigh.Less(PriorityMedium))
	assert.False(t, PriorityLow.Less(PriorityCritical))
}
