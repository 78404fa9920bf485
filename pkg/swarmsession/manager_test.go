// SPDX-License-Identifier: AGPL-3.0
// Copyright 2026 The Meshseeks Authors
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package swarmsession

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshseeks/meshseeks/pkg/checkpoint"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir())
}

func testConfig() Config {
	cfg := Config{}
	cfg.Checkpoint.IntervalMs = 0 // disable the auto-checkpoint ticker in tests
	return cfg
}

func TestCreateAndStartSession(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession("test", "desc", testConfig())
	require.NoError(t, err)
	require.Equal(t, StatusInitializing, sess.Status())

	require.NoError(t, m.StartSession(sess.ID()))
	require.Equal(t, StatusActive, sess.Status())

	active, err := m.GetActiveSession()
	require.NoError(t, err)
	require.Equal(t, sess.ID(), active.ID())
}

func TestStartSession_RejectsNonInitializing(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))
	require.ErrorIs(t, m.StartSession(sess.ID()), ErrInvalidTransition)
}

func TestAddTaskAndUpdateStatus(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))

	root := meshtask.NewTask("root task", meshtask.RoleImplementation, 0, "")
	require.NoError(t, m.AddTask(sess.ID(), root))
	require.Equal(t, root.ID(), sess.RootTaskID())

	require.NoError(t, m.UpdateTaskStatus(sess.ID(), root.ID(), meshtask.StatusInProgress, nil))
	require.NoError(t, m.UpdateTaskStatus(sess.ID(), root.ID(), meshtask.StatusCompleted, "output"))

	v, ok, err := m.GetContext(sess.ID(), root.ID())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "output", v)

	metrics := sess.Metrics()
	require.Equal(t, 1, metrics.ByStatus[meshtask.StatusCompleted])
}

func TestUpdateTaskStatus_FailureAppendsErrorLog(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))

	root := meshtask.NewTask("root", meshtask.RoleImplementation, 0, "")
	require.NoError(t, m.AddTask(sess.ID(), root))
	require.NoError(t, m.UpdateTaskStatus(sess.ID(), root.ID(), meshtask.StatusInProgress, nil))
	require.NoError(t, m.UpdateTaskStatus(sess.ID(), root.ID(), meshtask.StatusFailed, "boom"))

	require.NotEmpty(t, sess.ErrorLog())
}

func TestAddTask_RejectsBeyondMaxDepth(t *testing.T) {
	m := newTestManager(t)
	cfg := testConfig()
	cfg.MaxTaskDepth = 1
	sess, _ := m.CreateSession("t", "", cfg)

	deep := meshtask.NewTask("deep", meshtask.RoleImplementation, 2, "")
	require.Error(t, m.AddTask(sess.ID(), deep))
}

func TestPauseAndResumeSession(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))

	root := meshtask.NewTask("root", meshtask.RoleImplementation, 0, "")
	require.NoError(t, m.AddTask(sess.ID(), root))

	require.NoError(t, m.PauseSession(sess.ID(), PauseOptions{CreateCheckpoint: true, Reason: "manual pause"}))
	require.Equal(t, StatusPaused, sess.Status())
	require.NotEmpty(t, sess.LatestCheckpointID())

	require.NoError(t, m.ResumeSession(sess.ID(), ResumeOptions{}))
	require.Equal(t, StatusActive, sess.Status())
	require.Equal(t, root.ID(), sess.RootTaskID())
}

func TestCompleteSession(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))
	require.NoError(t, m.CompleteSession(sess.ID()))
	require.Equal(t, StatusCompleted, sess.Status())

	_, err := m.GetActiveSession()
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestFailSession_RecordsReason(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))
	require.NoError(t, m.FailSession(sess.ID(), "unrecoverable"))
	require.Equal(t, StatusFailed, sess.Status())

	found := false
	for _, e := range sess.ErrorLog() {
		if e.Message == "unrecoverable" {
			found = true
		}
	}
	require.True(t, found)
}

func TestTerminate_RejectsAlreadyTerminal(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))
	require.NoError(t, m.CompleteSession(sess.ID()))
	require.ErrorIs(t, m.CompleteSession(sess.ID()), ErrSessionTerminal)
}

func TestRegisterAndRemoveAgent(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())

	require.NoError(t, m.RegisterAgent(sess.ID(), AgentState{ID: "agent-1", Role: meshtask.RoleImplementation, State: "idle"}))
	require.Len(t, sess.Agents(), 1)
	require.Equal(t, 1, sess.Metrics().PeakActiveAgents)

	require.NoError(t, m.RemoveAgent(sess.ID(), "agent-1"))
	require.Empty(t, sess.Agents())
	require.ErrorIs(t, m.RemoveAgent(sess.ID(), "agent-1"), ErrAgentNotFound)
}

func TestGet_UnknownSessionReturnsNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("does-not-exist")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListAllSessions_NewestFirst(t *testing.T) {
	m := newTestManager(t)
	first, _ := m.CreateSession("first", "", testConfig())
	second, _ := m.CreateSession("second", "", testConfig())

	all := m.ListAllSessions()
	require.Len(t, all, 2)
	require.Equal(t, second.ID(), all[0].ID())
	ids := []string{all[0].ID(), all[1].ID()}
	require.Contains(t, ids, first.ID())
	require.Contains(t, ids, second.ID())
}

func TestCreateCheckpoint_Manual(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.NoError(t, m.StartSession(sess.ID()))

	result, err := m.CreateCheckpoint(sess.ID(), checkpoint.CreateOptions{Trigger: checkpoint.TriggerManual, Description: "manual checkpoint"})
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Contains(t, sess.CheckpointIDs(), result.ID)
}

func TestRecordJudgeVerdict(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())

	require.NoError(t, m.RecordJudgeVerdict(sess.ID(), true))
	require.NoError(t, m.RecordJudgeVerdict(sess.ID(), false))

	metrics := sess.Metrics()
	require.Equal(t, 1, metrics.JudgeApprovals)
	require.Equal(t, 1, metrics.JudgeRejections)
}

func TestAssignAgent_SetsAssignedAgentAndStartsTask(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())

	root := meshtask.NewTask("root", meshtask.RoleImplementation, 0, "")
	require.NoError(t, m.AddTask(sess.ID(), root))

	require.NoError(t, m.AssignAgent(sess.ID(), root.ID(), "worker-1"))
	require.Equal(t, meshtask.StatusInProgress, root.Status())
	require.Equal(t, "worker-1", root.AssignedAgent())

	metrics := sess.Metrics()
	require.Equal(t, 1, metrics.ByStatus[meshtask.StatusInProgress])
}

func TestAssignAgent_UnknownTaskReturnsError(t *testing.T) {
	m := newTestManager(t)
	sess, _ := m.CreateSession("t", "", testConfig())
	require.Error(t, m.AssignAgent(sess.ID(), "nope", "worker-1"))
}
