package meshtask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleTree(t *testing.T) (*Tree, *Task, *Task, *Task) {
	t.Helper()
	tree := NewTree()

	root := NewTask("build the feature", RolePlanner, 0, "")
	require.NoError(t, tree.Add(root))

	child1 := NewTask("implement handler", RoleImplementation, 1, root.ID())
	require.NoError(t, tree.Add(child1))

	child2 := NewTask("write tests", RoleTesting, 1, root.ID())
	child2.SetDependencies([]string{child1.ID()})
	require.NoError(t, tree.Add(child2))

	return tree, root, child1, child2
}

func TestTree_AddWiresParentChildEdges(t *testing.T) {
	tree, root, child1, child2 := buildSampleTree(t)

	assert.Equal(t, root.ID(), tree.RootID())
	assert.ElementsMatch(t, []string{child1.ID(), child2.ID()}, root.Children())
	assert.Equal(t, 3, tree.Count())
}

func TestTree_AddRejectsDuplicateAndMissingParent(t *testing.T) {
	tree := NewTree()
	root := NewTask("root", RolePlanner, 0, "")
	require.NoError(t, tree.Add(root))

	err := tree.Add(root)
	assert.ErrorIs(t, err, ErrDuplicateTask)

	orphan := NewTask("orphan", RoleImplementation, 1, "does-not-exist")
	err = tree.Add(orphan)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTree_ExecutableRespectsDependencies(t *testing.T) {
	tree, _, child1, child2 := buildSampleTree(t)

	executable := tree.Executable()
	ids := taskIDs(executable)
	assert.Contains(t, ids, child1.ID())
	assert.NotContains(t, ids, child2.ID(), "child2 depends on child1, which has not completed")

	require.NoError(t, child1.Transition(StatusInProgress, "agent-1"))
	require.NoError(t, child1.Transition(StatusVerifying, ""))
	require.NoError(t, child1.Transition(StatusCompleted, ""))

	ids = taskIDs(tree.Executable())
	assert.Contains(t, ids, child2.ID())
}

func TestTree_ExecutableOrdersByPriorityThenAge(t *testing.T) {
	tree := NewTree()
	root := NewTask("root", RolePlanner, 0, "")
	require.NoError(t, tree.Add(root))

	low := NewTask("low priority", RoleImplementation, 1, root.ID())
	low.SetPriority(PriorityLow)
	require.NoError(t, tree.Add(low))

	critical := NewTask("critical fix", RoleDebugging, 1, root.ID())
	critical.SetPriority(PriorityCritical)
	require.NoError(t, tree.Add(critical))

	executable := tree.Executable()
	require.Len(t, executable, 3)
	assert.Equal(t, critical.ID(), executable[0].ID())
	assert.Equal(t, low.ID(), executable[2].ID())
}

func TestTree_Stats(t *testing.T) {
	tree, _, child1, _ := buildSampleTree(t)
	require.NoError(t, child1.Transition(StatusInProgress, "agent-1"))

	stats := tree.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusInProgress])
	assert.Equal(t, 2, stats.ByStatus[StatusPending])
	assert.Equal(t, 1, stats.MaxDepth)
}

func TestTree_VisualizeIncludesAllNodes(t *testing.T) {
	tree, root, child1, child2 := buildSampleTree(t)

	out := tree.Visualize()
	assert.Contains(t, out, shortID(root.ID()))
	assert.Contains(t, out, shortID(child1.ID()))
	assert.Contains(t, out, shortID(child2.ID()))
}

func taskIDs(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID()
	}
	return out
}
