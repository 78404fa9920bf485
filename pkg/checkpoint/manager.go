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

package checkpoint

import (
	"log/slog"
)

// Manager wraps a Store with the auto-checkpoint policy and lifecycle hooks
// used by the orchestrator. Like the Store beneath it, a Manager never
// surfaces a save failure past its own boundary on the auto/interval path —
// failures there are logged and the caller proceeds — but it does propagate
// failures on the pause/shutdown path, where a missed checkpoint would lose
// unrecoverable state.
type Manager struct {
	cfg   Config
	store *Store
}

// NewManager wires a Manager around an existing Store.
func NewManager(cfg Config, store *Store) *Manager {
	return &Manager{cfg: cfg, store: store}
}

// Store exposes the underlying Store for direct restore/list operations.
func (m *Manager) Store() *Store { return m.store }

// SnapshotFunc supplies the data a checkpoint should embed at the moment it
// is taken; the orchestrator provides a closure over its current session,
// task tree, agent states, and context store.
type SnapshotFunc func() (sessionData, taskTreeData, agentStatesData, contextData any)

// AutoCheckpoint takes a checkpoint tagged TriggerAuto. Failures are logged
// and swallowed: a missed interval checkpoint must never fail the session.
func (m *Manager) AutoCheckpoint(sessionID string, snapshot SnapshotFunc) {
	sessionData, taskTreeData, agentStatesData, contextData := snapshot()
	if _, err := m.store.CreateCheckpoint(sessionID, sessionData, taskTreeData, agentStatesData, contextData, CreateOptions{
		Trigger:        TriggerAuto,
		IncludeContext: false,
	}); err != nil {
		slog.Warn("auto checkpoint failed", "session_id", sessionID, "error", err)
	}
}

// OnPause takes a checkpoint tagged TriggerManual ahead of a session pause.
// Unlike AutoCheckpoint, the error propagates — pausing without a durable
// checkpoint would make the pause unrecoverable.
func (m *Manager) OnPause(sessionID, reason string, snapshot SnapshotFunc) (CreateResult, error) {
	sessionData, taskTreeData, agentStatesData, contextData := snapshot()
	return m.store.CreateCheckpoint(sessionID, sessionData, taskTreeData, agentStatesData, contextData, CreateOptions{
		Trigger:        TriggerManual,
		Description:    reason,
		IncludeContext: true,
	})
}

// OnShutdown takes a final checkpoint tagged TriggerShutdown. Errors
// propagate for the same reason as OnPause.
func (m *Manager) OnShutdown(sessionID string, snapshot SnapshotFunc) (CreateResult, error) {
	sessionData, taskTreeData, agentStatesData, contextData := snapshot()
	return m.store.CreateCheckpoint(sessionID, sessionData, taskTreeData, agentStatesData, contextData, CreateOptions{
		Trigger:        TriggerShutdown,
		Description:    "shutdown",
		IncludeContext: true,
	})
}

// OnError takes a checkpoint tagged TriggerError so the last-known-good
// state survives an unrecoverable session error. Failures are logged only:
// an error path that also fails to checkpoint should not mask the original
// error with a checkpoint error.
func (m *Manager) OnError(sessionID string, cause error, snapshot SnapshotFunc) {
	sessionData, taskTreeData, agentStatesData, contextData := snapshot()
	if _, err := m.store.CreateCheckpoint(sessionID, sessionData, taskTreeData, agentStatesData, contextData, CreateOptions{
		Trigger:        TriggerError,
		Description:    cause.Error(),
		IncludeContext: true,
	}); err != nil {
		slog.Warn("error-triggered checkpoint failed", "session_id", sessionID, "cause", cause, "error", err)
	}
}

// ShouldAutoCheckpoint reports whether enough time has passed since
// lastCheckpointMs (unix millis, 0 if never) for another auto-checkpoint.
func (m *Manager) ShouldAutoCheckpoint(lastCheckpointMs, nowMs int64) bool {
	if m.cfg.IntervalMs <= 0 {
		return false
	}
	return nowMs-lastCheckpointMs >= int64(m.cfg.IntervalMs)
}
