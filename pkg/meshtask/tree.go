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

package meshtask

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrTaskNotFound is returned when a task id has no matching node in the tree.
var ErrTaskNotFound = fmt.Errorf("meshtask: task not found")

// ErrDuplicateTask is returned when Add is called with an id already present.
var ErrDuplicateTask = fmt.Errorf("meshtask: duplicate task id")

// MaxDepth bounds how deep the planner is allowed to decompose a task.
const MaxDepth = 5

// Tree owns every task belonging to one session and indexes them by id.
type Tree struct {
	mu      sync.RWMutex
	rootID  string
	tasks   map[string]*Task
}

// NewTree creates an empty task tree.
func NewTree() *Tree {
	return &Tree{tasks: make(map[string]*Task)}
}

// Add inserts a task into the tree, wiring it into its parent's children list
// when it has one. The first task added without a parent becomes the root.
func (t *Tree) Add(task *Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.tasks[task.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID())
	}
	if task.ParentID() != "" {
		parent, ok := t.tasks[task.ParentID()]
		if !ok {
			return fmt.Errorf("%w: parent %s", ErrTaskNotFound, task.ParentID())
		}
		parent.addChild(task.ID())
	} else if t.rootID == "" {
		t.rootID = task.ID()
	}
	t.tasks[task.ID()] = task
	return nil
}

// Get returns the task with the given id.
func (t *Tree) Get(id string) (*Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, nil
}

// RootID returns the id of the tree's root task, or "" if empty.
func (t *Tree) RootID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootID
}

// All returns every task in the tree, ordered by creation time.
func (t *Tree) All() []*Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

// Count returns the number of tasks in the tree.
func (t *Tree) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tasks)
}

// dependenciesSatisfied reports whether every dependency of task is complete.
func (t *Tree) dependenciesSatisfied(task *Task) bool {
	for _, depID := range task.Dependencies() {
		dep, ok := t.tasks[depID]
		if !ok || dep.Status() != StatusCompleted {
			return false
		}
	}
	return true
}

// Executable returns tasks eligible for dispatch right now: status pending,
// not terminal, and every dependency already completed.
func (t *Tree) Executable() []*Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Task, 0)
	for _, task := range t.tasks {
		if task.Status() != StatusPending {
			continue
		}
		if !t.dependenciesSatisfied(task) {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority().Less(out[j].Priority())
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// Stats summarizes status counts across the tree, used by the
// orchestrator's terminal-tree check and the engine's status report.
type Stats struct {
	Total      int
	ByStatus   map[Status]int
	MaxDepth   int
	TotalRetries int
}

// Snapshot returns a serializable snapshot of every task in the tree, used by
// the checkpoint store and by anything persisting session state to disk.
func (t *Tree) Snapshot() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RestoreTree rebuilds a Tree from a slice of Snapshots, such as one loaded
// from a checkpoint. The root is the snapshot with an empty ParentID.
func RestoreTree(snapshots []Snapshot) *Tree {
	t := NewTree()
	for _, s := range snapshots {
		task := FromSnapshot(s)
		t.tasks[task.ID()] = task
		if task.ParentID() == "" && t.rootID == "" {
			t.rootID = task.ID()
		}
	}
	return t
}

// Stats computes a snapshot of tree-wide counters.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{ByStatus: make(map[Status]int)}
	for _, task := range t.tasks {
		stats.Total++
		stats.ByStatus[task.Status()]++
		if task.Depth() > stats.MaxDepth {
			stats.MaxDepth = task.Depth()
		}
		stats.TotalRetries += task.RetryCount()
	}
	return stats
}

// Visualize renders the tree as an indented ASCII outline rooted at rootID.
func (t *Tree) Visualize() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.rootID == "" {
		return "(empty task tree)"
	}
	var sb strings.Builder
	t.visualizeNode(t.rootID, 0, &sb)
	return sb.String()
}

func (t *Tree) visualizeNode(id string, depth int, out *strings.Builder) {
	task, ok := t.tasks[id]
	if !ok {
		return
	}
	fmt.Fprintf(out, "%s[%s] %s (%s, %s)\n", strings.Repeat("  ", depth), shortID(task.ID()), task.Prompt(), task.Role(), task.Status())
	for _, childID := range task.Children() {
		t.visualizeNode(childID, depth+1, out)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
