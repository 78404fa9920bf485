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

// Package swarmsession implements the Session Manager: lifecycle of a swarm
// session and its task tree, the in-memory agent ledger and context store,
// and the auto-checkpoint cadence that backs them onto the checkpoint store.
package swarmsession

import (
	"time"

	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// Status is a session's position in its lifecycle.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusActive       Status = "active"
	StatusPaused       Status = "paused"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// IsTerminal reports whether the session's task tree is now immutable.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AgentState is the session manager's ledger entry for one pool worker —
// SwarmAgentConfig in the data model. It mirrors pkg/pool.Worker's shape but
// is owned here, not by the pool, so it can be embedded in a checkpoint
// independently of pool internals.
type AgentState struct {
	ID              string        `json:"id"`
	Role            meshtask.Role `json:"role"`
	CurrentTaskID   string        `json:"current_task_id,omitempty"`
	State           string        `json:"state"`
	CreatedAt       time.Time     `json:"created_at"`
	LastActivity    time.Time     `json:"last_activity"`
	Completed       int           `json:"completed"`
	Failed          int           `json:"failed"`
	TotalExecTimeMs int64         `json:"total_exec_time_ms"`
}

// ErrorEntry is one record in a session's bounded append-only error log.
type ErrorEntry struct {
	At      time.Time `json:"at"`
	TaskID  string    `json:"task_id,omitempty"`
	Message string    `json:"message"`
}

// maxErrorLogEntries bounds the error log so a pathological session can't
// grow it unbounded; oldest entries are dropped first.
const maxErrorLogEntries = 500

// Metrics tracks per-session counters updated on every task status
// transition and checkpoint/judge event.
type Metrics struct {
	ByStatus            map[meshtask.Status]int `json:"by_status"`
	ByRole              map[meshtask.Role]int   `json:"by_role"`
	ByDepth             map[int]int             `json:"by_depth"`
	ActiveAgents        int                     `json:"active_agents"`
	PeakActiveAgents    int                     `json:"peak_active_agents"`
	CheckpointsTaken    int                     `json:"checkpoints_taken"`
	CheckpointsRestored int                     `json:"checkpoints_restored"`
	JudgeApprovals      int                     `json:"judge_approvals"`
	JudgeRejections     int                     `json:"judge_rejections"`
	TotalExecTimeMs     int64                   `json:"total_exec_time_ms"`
	CompletedTaskCount  int                     `json:"completed_task_count"`
}

func newMetrics() *Metrics {
	return &Metrics{
		ByStatus: make(map[meshtask.Status]int),
		ByRole:   make(map[meshtask.Role]int),
		ByDepth:  make(map[int]int),
	}
}

// AverageExecTimeMs returns the mean execution time across completed tasks,
// or 0 when none have completed yet.
func (m *Metrics) AverageExecTimeMs() float64 {
	if m.CompletedTaskCount == 0 {
		return 0
	}
	return float64(m.TotalExecTimeMs) / float64(m.CompletedTaskCount)
}

// EventType names a lifecycle event emitted on a session's Events channel.
type EventType string

const (
	EventTaskStarted       EventType = "task_started"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskFailed        EventType = "task_failed"
	EventSessionCreated    EventType = "session_created"
	EventSessionStarted    EventType = "session_started"
	EventSessionPaused     EventType = "session_paused"
	EventSessionResumed    EventType = "session_resumed"
	EventSessionCompleted  EventType = "session_completed"
	EventSessionFailed     EventType = "session_failed"
	EventCheckpointCreated EventType = "checkpoint_created"
)

// Event is one lifecycle notification.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	TaskID    string    `json:"task_id,omitempty"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}

// sessionSnapshot is the JSON-serializable view of session metadata embedded
// in a checkpoint's Session field — everything about a Session except its
// task tree (checkpointed separately) and its live subscriber channel.
type sessionSnapshot struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	RootTaskID  string       `json:"root_task_id"`
	Status      Status       `json:"status"`
	Checkpoints []string     `json:"checkpoints"`
	Metrics     *Metrics     `json:"metrics"`
	ErrorLog    []ErrorEntry `json:"error_log"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	PausedAt    *time.Time   `json:"paused_at,omitempty"`
	ResumedAt   *time.Time   `json:"resumed_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}
