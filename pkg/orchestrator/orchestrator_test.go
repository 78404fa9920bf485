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

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshseeks/meshseeks/pkg/executor"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
	"github.com/meshseeks/meshseeks/pkg/swarmsession"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// newTestOrchestrator creates a session (judge disabled, short timeouts,
// fast polling) and an Orchestrator wired against it, then swaps in a test
// executor pointed at command.
func newTestOrchestrator(t *testing.T, command string) (*Orchestrator, *swarmsession.Manager, *swarmsession.Session) {
	t.Helper()

	manager := swarmsession.NewManager(t.TempDir())
	cfg := swarmsession.Config{MaxConcurrentAgents: 2, AgentTimeoutMs: 2000}
	cfg.Judge.Enabled = false
	cfg.Checkpoint.IntervalMs = 0

	sess, err := manager.CreateSession("t", "", cfg)
	require.NoError(t, err)
	require.NoError(t, manager.StartSession(sess.ID()))

	o, err := New(manager, sess.ID(), Config{IterationCap: 50, PollIntervalMs: 20, BaseWorkDir: t.TempDir()}, nil)
	require.NoError(t, err)
	o.exec = executor.New(executor.Config{Command: command})

	return o, manager, sess
}

func TestRun_SingleLeafTaskCompletes(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, "/bin/echo")

	outcome, err := o.Run(context.Background(), "say hi")
	require.NoError(t, err)
	require.Equal(t, swarmsession.StatusCompleted, outcome.Status)
	require.Equal(t, 1, outcome.Completed)
}

func TestRun_FailingTaskExhaustsRetriesAndFailsSession(t *testing.T) {
	script := writeScript(t, "exit 1")
	o, _, _ := newTestOrchestrator(t, script)

	outcome, err := o.Run(context.Background(), "say hi")
	require.NoError(t, err)
	require.Equal(t, swarmsession.StatusFailed, outcome.Status)
	require.Equal(t, 1, outcome.Failed)
}

func TestRun_StuckTreeFailsSessionWithInvalidTransition(t *testing.T) {
	o, manager, sess := newTestOrchestrator(t, "/bin/echo")

	stuck := meshtask.NewTask("x", meshtask.RoleImplementation, 0, "")
	stuck.SetDependencies([]string{"does-not-exist"})
	require.NoError(t, manager.AddTask(sess.ID(), stuck))

	outcome, err := o.Run(context.Background(), "unused")
	require.NoError(t, err)
	require.Equal(t, swarmsession.StatusFailed, outcome.Status)
	require.Equal(t, "INVALID_TRANSITION", outcome.Reason)
}

func TestRun_SequentialDependencyRunsInOrder(t *testing.T) {
	o, manager, sess := newTestOrchestrator(t, "/bin/echo")

	first := meshtask.NewTask("first", meshtask.RoleImplementation, 0, "")
	require.NoError(t, manager.AddTask(sess.ID(), first))

	second := meshtask.NewTask("second", meshtask.RoleImplementation, 0, "")
	second.SetDependencies([]string{first.ID()})
	require.NoError(t, manager.AddTask(sess.ID(), second))

	outcome, err := o.Run(context.Background(), "unused")
	require.NoError(t, err)
	require.Equal(t, swarmsession.StatusCompleted, outcome.Status)
	require.Equal(t, 2, outcome.Completed)

	require.NotNil(t, first.CompletedAt())
	require.NotNil(t, second.StartedAt())
	require.True(t, !second.StartedAt().Before(*first.CompletedAt()))
}

func TestRun_RespectsContextCancellation(t *testing.T) {
	script := writeScript(t, "sleep 5")
	o, _, _ := newTestOrchestrator(t, script)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, "say hi")
	require.Error(t, err)
}
