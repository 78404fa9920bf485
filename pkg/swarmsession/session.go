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
	"sync"
	"time"

	"github.com/meshseeks/meshseeks/pkg/judge"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
	"github.com/meshseeks/meshseeks/pkg/planner"
)

// eventBufferSize bounds each session's event channel; a slow or absent
// subscriber drops events rather than blocking the caller that emitted them.
const eventBufferSize = 256

// Session owns one task tree plus session-level state: the SwarmSession of
// the data model. All mutation goes through Manager so metrics/events/
// checkpoints stay consistent; exported accessors here are read-only.
type Session struct {
	mu sync.RWMutex

	id          string
	name        string
	description string
	cfg         Config

	tree    *meshtask.Tree
	judge   *judge.Judge
	planner *planner.Planner

	status Status

	checkpoints        []string
	latestCheckpointID string

	metrics  *Metrics
	errorLog []ErrorEntry

	agents  map[string]*AgentState
	context map[string]any

	createdAt   time.Time
	startedAt   *time.Time
	pausedAt    *time.Time
	resumedAt   *time.Time
	completedAt *time.Time
	expiresAt   *time.Time

	events chan Event
}

func newSession(id, name, description string, cfg Config) *Session {
	now := time.Now()
	expires := now.Add(cfg.sessionTimeout())
	return &Session{
		id:          id,
		name:        name,
		description: description,
		cfg:         cfg,
		tree:        meshtask.NewTree(),
		judge:       judge.New(cfg.Judge),
		planner:     planner.New(cfg.Planner),
		status:      StatusInitializing,
		checkpoints: make([]string, 0),
		metrics:     newMetrics(),
		agents:      make(map[string]*AgentState),
		context:     make(map[string]any),
		createdAt:   now,
		expiresAt:   &expires,
		events:      make(chan Event, eventBufferSize),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Name() string        { return s.name }
func (s *Session) Description() string { return s.description }
func (s *Session) Config() Config      { return s.cfg }
func (s *Session) Tree() *meshtask.Tree { return s.tree }
func (s *Session) Judge() *judge.Judge { return s.judge }
func (s *Session) Planner() *planner.Planner { return s.planner }

// Events returns the channel lifecycle events are published on. Reading it
// is optional — events are dropped, not buffered indefinitely, when nobody
// is listening.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) RootTaskID() string { return s.tree.RootID() }

func (s *Session) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.metrics
}

func (s *Session) ErrorLog() []ErrorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ErrorEntry, len(s.errorLog))
	copy(out, s.errorLog)
	return out
}

func (s *Session) CheckpointIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.checkpoints))
	copy(out, s.checkpoints)
	return out
}

func (s *Session) LatestCheckpointID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestCheckpointID
}

func (s *Session) Agents() []AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentState, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	return out
}

func (s *Session) appendError(taskID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLog = append(s.errorLog, ErrorEntry{At: time.Now(), TaskID: taskID, Message: message})
	if len(s.errorLog) > maxErrorLogEntries {
		s.errorLog = s.errorLog[len(s.errorLog)-maxErrorLogEntries:]
	}
}

func (s *Session) emit(evt Event) {
	evt.SessionID = s.id
	evt.At = time.Now()
	select {
	case s.events <- evt:
	default:
	}
}

// snapshot builds the JSON-serializable view embedded in a checkpoint.
func (s *Session) snapshot() sessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := *s.metrics
	return sessionSnapshot{
		ID:          s.id,
		Name:        s.name,
		Description: s.description,
		RootTaskID:  s.tree.RootID(),
		Status:      s.status,
		Checkpoints: append([]string(nil), s.checkpoints...),
		Metrics:     &m,
		ErrorLog:    append([]ErrorEntry(nil), s.errorLog...),
		CreatedAt:   s.createdAt,
		StartedAt:   s.startedAt,
		PausedAt:    s.pausedAt,
		ResumedAt:   s.resumedAt,
		CompletedAt: s.completedAt,
		ExpiresAt:   s.expiresAt,
	}
}

// agentStatesSnapshot returns the ledger embedded as a checkpoint's
// AgentStates section.
func (s *Session) agentStatesSnapshot() []AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentState, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	return out
}

// contextSnapshot returns a copy of the context store for checkpointing.
func (s *Session) contextSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.context))
	for k, v := range s.context {
		out[k] = v
	}
	return out
}
