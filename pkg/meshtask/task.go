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

// Package meshtask defines HierarchicalTask, the unit of work scheduled by the
// swarm orchestrator, and the in-memory task tree that owns a session's tasks.
//
// A task tree is a DAG rooted at one task: parent/child edges describe
// decomposition, dependency edges describe scheduling order. Both are tracked
// on the same node so the planner and the orchestrator can walk either view
// without a second index.
package meshtask

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a task's position in its lifecycle state machine.
type Status string

const (
	StatusPending     Status = "pending"
	StatusQueued      Status = "queued"
	StatusInProgress  Status = "in_progress"
	StatusVerifying   Status = "verifying"
	StatusCompleted   Status = "completed"
	StatusRework      Status = "rework"
	StatusFailed      Status = "failed"
	StatusBlocked     Status = "blocked"
	StatusCancelled   Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Role identifies the kind of work a task performs; the planner uses it to pick
// subtask templates and the judge uses it to pick verification criteria.
type Role string

const (
	RoleAnalysis      Role = "analysis"
	RoleImplementation Role = "implementation"
	RoleTesting       Role = "testing"
	RoleDocumentation Role = "documentation"
	RoleDebugging     Role = "debugging"
	RolePlanner       Role = "planner"
	RoleJudge         Role = "judge"
	RoleSynthesizer   Role = "synthesizer"
	RoleMonitor       Role = "monitor"
)

// Priority orders pool acquisitions; lower value means more urgent.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// Less reports whether p is strictly more urgent than other.
func (p Priority) Less(other Priority) bool { return p < other }

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ReturnMode controls how much of a task's result is propagated to dependents.
type ReturnMode string

const (
	ReturnModeSummary ReturnMode = "summary"
	ReturnModeFull    ReturnMode = "full"
)

// Task is a node in the hierarchical task tree (HierarchicalTask in spec terms).
type Task struct {
	mu sync.RWMutex

	id       string
	parentID string
	depth    int
	children []string

	prompt     string
	role       Role
	workFolder string
	returnMode ReturnMode
	tags       []string
	metadata   map[string]any

	dependencies []string
	priority     Priority
	retryCount   int
	maxRetries   int

	status        Status
	assignedAgent string

	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
}

// NewTask constructs a pending task. parentID is empty for the session root.
func NewTask(prompt string, role Role, depth int, parentID string) *Task {
	return &Task{
		id:           uuid.New().String(),
		parentID:     parentID,
		depth:        depth,
		children:     make([]string, 0),
		prompt:       prompt,
		role:         role,
		returnMode:   ReturnModeSummary,
		tags:         make([]string, 0),
		metadata:     make(map[string]any),
		dependencies: make([]string, 0),
		priority:     PriorityMedium,
		maxRetries:   2,
		status:       StatusPending,
		createdAt:    time.Now(),
	}
}

func (t *Task) ID() string   { return t.id }
func (t *Task) ParentID() string { return t.parentID }
func (t *Task) Depth() int   { return t.depth }

func (t *Task) Children() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.children))
	copy(out, t.children)
	return out
}

func (t *Task) addChild(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children = append(t.children, id)
}

func (t *Task) Prompt() string       { return t.prompt }
func (t *Task) Role() Role           { return t.role }
func (t *Task) WorkFolder() string   { return t.workFolder }
func (t *Task) SetWorkFolder(f string) { t.workFolder = f }
func (t *Task) ReturnMode() ReturnMode { return t.returnMode }
func (t *Task) SetReturnMode(m ReturnMode) { t.returnMode = m }

func (t *Task) Tags() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.tags))
	copy(out, t.tags)
	return out
}

func (t *Task) AddTag(tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tags = append(t.tags, tag)
}

func (t *Task) Metadata(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.metadata[key]
	return v, ok
}

func (t *Task) SetMetadata(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metadata[key] = value
}

func (t *Task) Dependencies() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.dependencies))
	copy(out, t.dependencies)
	return out
}

// SetDependencies replaces the dependency list, de-duplicating entries.
func (t *Task) SetDependencies(deps []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[string]bool, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	t.dependencies = out
}

func (t *Task) Priority() Priority         { return t.priority }
func (t *Task) SetPriority(p Priority)     { t.priority = p }
func (t *Task) RetryCount() int            { return t.retryCount }
func (t *Task) MaxRetries() int            { return t.maxRetries }
func (t *Task) SetMaxRetries(n int)        { t.maxRetries = n }

func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Task) AssignedAgent() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.assignedAgent
}

func (t *Task) CreatedAt() time.Time { return t.createdAt }

func (t *Task) StartedAt() *time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startedAt
}

func (t *Task) CompletedAt() *time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completedAt
}

// Transition moves the task to newStatus, maintaining the started/completed
// timestamps and the retry counter for the rework path. It does not validate
// dependency readiness — callers (the orchestrator) must do that first.
func (t *Task) Transition(newStatus Status, agentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() {
		return fmt.Errorf("meshtask: cannot transition task %s out of terminal status %s", t.id, t.status)
	}

	now := time.Now()
	switch newStatus {
	case StatusInProgress:
		if t.startedAt == nil {
			t.startedAt = &now
		}
		if agentID != "" {
			t.assignedAgent = agentID
		}
	case StatusRework:
		t.retryCount++
		newStatus = StatusPending
	case StatusCompleted, StatusFailed, StatusCancelled:
		t.completedAt = &now
	}

	t.status = newStatus
	return nil
}

// Snapshot is the immutable, serializable view of a Task used by the planner,
// judge, checkpoint store and ASCII visualizer.
type Snapshot struct {
	ID            string         `json:"id"`
	ParentID      string         `json:"parent_id,omitempty"`
	Depth         int            `json:"depth"`
	Children      []string       `json:"children"`
	Prompt        string         `json:"prompt"`
	Role          Role           `json:"role"`
	WorkFolder    string         `json:"work_folder,omitempty"`
	ReturnMode    ReturnMode     `json:"return_mode"`
	Tags          []string       `json:"tags,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty"`
	Priority      Priority       `json:"priority"`
	RetryCount    int            `json:"retry_count"`
	MaxRetries    int            `json:"max_retries"`
	Status        Status         `json:"status"`
	AssignedAgent string         `json:"assigned_agent,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// Snapshot copies the task's current state into a plain struct safe to
// serialize or hand to another goroutine.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	meta := make(map[string]any, len(t.metadata))
	for k, v := range t.metadata {
		meta[k] = v
	}

	return Snapshot{
		ID:            t.id,
		ParentID:      t.parentID,
		Depth:         t.depth,
		Children:      append([]string(nil), t.children...),
		Prompt:        t.prompt,
		Role:          t.role,
		WorkFolder:    t.workFolder,
		ReturnMode:    t.returnMode,
		Tags:          append([]string(nil), t.tags...),
		Metadata:      meta,
		Dependencies:  append([]string(nil), t.dependencies...),
		Priority:      t.priority,
		RetryCount:    t.retryCount,
		MaxRetries:    t.maxRetries,
		Status:        t.status,
		AssignedAgent: t.assignedAgent,
		CreatedAt:     t.createdAt,
		StartedAt:     t.startedAt,
		CompletedAt:   t.completedAt,
	}
}

// FromSnapshot rebuilds a Task from a Snapshot, used by checkpoint restore.
func FromSnapshot(s Snapshot) *Task {
	t := &Task{
		id:           s.ID,
		parentID:     s.ParentID,
		depth:        s.Depth,
		children:     append([]string(nil), s.Children...),
		prompt:       s.Prompt,
		role:         s.Role,
		workFolder:   s.WorkFolder,
		returnMode:   s.ReturnMode,
		tags:         append([]string(nil), s.Tags...),
		metadata:     map[string]any{},
		dependencies: append([]string(nil), s.Dependencies...),
		priority:     s.Priority,
		retryCount:   s.RetryCount,
		maxRetries:   s.MaxRetries,
		status:       s.Status,
		assignedAgent: s.AssignedAgent,
		createdAt:    s.CreatedAt,
		startedAt:    s.StartedAt,
		completedAt:  s.CompletedAt,
	}
	for k, v := range s.Metadata {
		t.metadata[k] = v
	}
	return t
}
