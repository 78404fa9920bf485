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

// Package planner implements the Hierarchical Planner: given a task with a
// free-form prompt, it produces an ordered set of subtasks plus their
// inter-dependencies. Classification and template emission are rule-based
// (keyword-family matching), not model-driven — there is no LLM call on this
// path.
package planner

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// Strategy selects how subtask dependencies are synthesized.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
	StrategyHybrid     Strategy = "hybrid"
	StrategyPhased     Strategy = "phased"
)

// Bucket is the keyword-family classification of a prompt.
type Bucket string

const (
	BucketFeature       Bucket = "feature"
	BucketBug           Bucket = "bug"
	BucketRefactor      Bucket = "refactor"
	BucketTesting       Bucket = "testing"
	BucketDocumentation Bucket = "documentation"
	BucketGeneric       Bucket = "generic"
)

// Instruction is the caller-supplied decomposition request.
type Instruction struct {
	MaxTasks             int
	Strategy             Strategy
	RequireTesting       bool
	RequireDocumentation bool
}

// DecomposeContext carries session-scoped limits and the id namespace to
// avoid collisions against.
type DecomposeContext struct {
	MaxTasksPerLevel int
	ExistingTaskIDs  map[string]bool
}

// SubtaskSpec describes one emitted subtask before it becomes a meshtask.Task.
type SubtaskSpec struct {
	ID        string
	Role      meshtask.Role
	Priority  meshtask.Priority
	Prompt    string
	Tags      []string
	DependsOn []string // subtask ids (and the parent task id)
}

// Plan is the result of Decompose.
type Plan struct {
	MaxDepthReached bool
	Subtasks        []SubtaskSpec
}

// Planner implements the rule-based Hierarchical Planner.
type Planner struct {
	cfg Config
}

// New creates a Planner.
func New(cfg Config) *Planner {
	cfg.SetDefaults()
	return &Planner{cfg: cfg}
}

// Decompose implements the spec's six-step algorithm: depth check, classify,
// template emission, limit, dependency synthesis, id generation.
func (p *Planner) Decompose(task *meshtask.Task, instruction Instruction, dctx DecomposeContext) Plan {
	if task.Depth() >= p.cfg.MaxDepth {
		return Plan{MaxDepthReached: true}
	}

	bucket := Classify(task.Prompt())
	templates := emit(bucket, instruction.RequireTesting, instruction.RequireDocumentation)

	maxTasks := instruction.MaxTasks
	if dctx.MaxTasksPerLevel > 0 && (maxTasks == 0 || dctx.MaxTasksPerLevel < maxTasks) {
		maxTasks = dctx.MaxTasksPerLevel
	}
	if maxTasks <= 0 {
		maxTasks = 100
	}
	if len(templates) > maxTasks {
		templates = templates[:maxTasks]
	}

	existing := dctx.ExistingTaskIDs
	if existing == nil {
		existing = map[string]bool{}
	}

	specs := make([]SubtaskSpec, 0, len(templates))
	for _, tmpl := range templates {
		id := newTaskID(existing)
		existing[id] = true
		specs = append(specs, SubtaskSpec{
			ID:       id,
			Role:     tmpl.role,
			Priority: tmpl.priority,
			Prompt:   fmt.Sprintf("%s: %s", tmpl.label, task.Prompt()),
			Tags:     append([]string{string(bucket)}, tmpl.tags...),
		})
	}

	strategy := instruction.Strategy
	if strategy == "" {
		strategy = p.cfg.DefaultStrategy
	}
	synthesizeDependencies(specs, strategy, task.ID())

	return Plan{Subtasks: specs}
}

func newTaskID(existing map[string]bool) string {
	for {
		id := uuid.New().String()
		if !existing[id] {
			return id
		}
	}
}

// Classify lowercases the prompt and matches it against keyword families in
// the order the spec lists them; the first match wins. Unmatched prompts
// fall into the generic bucket.
func Classify(prompt string) Bucket {
	lower := strings.ToLower(prompt)
	switch {
	case containsAny(lower, "feature", "implement", "add"):
		return BucketFeature
	case containsAny(lower, "bug", "fix", "error"):
		return BucketBug
	case containsAny(lower, "refactor", "improve", "optimize"):
		return BucketRefactor
	case containsAny(lower, "test", "spec", "coverage"):
		return BucketTesting
	case containsAny(lower, "document", "readme", "comment"):
		return BucketDocumentation
	default:
		return BucketGeneric
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

var complexKeywords = []string{
	"architecture", "system", "integrate", "migration", "security", "performance",
	"scale", "distributed", "concurrent", "real-time", "api", "database",
}
var simpleKeywords = []string{"simple", "basic", "small", "minor", "quick"}

// EstimateComplexity scores a prompt 0-100 per the spec's literal formula.
func EstimateComplexity(prompt string) int {
	lower := strings.ToLower(prompt)

	score := len(prompt) / 20
	if score > 20 {
		score = 20
	}

	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			score += 5
		}
	}
	if containsAny(lower, "all", "entire", "complete") {
		score += 10
	}
	if containsAny(lower, "multiple", "several", "various") {
		score += 8
	}
	for _, kw := range simpleKeywords {
		if strings.Contains(lower, kw) {
			score -= 10
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// AutoDecompose reports whether a task should be automatically decomposed:
// depth below the limit, role not in the terminal-role set, and complexity
// at or above the configured threshold.
func (p *Planner) AutoDecompose(task *meshtask.Task, complexity int) bool {
	if task.Depth() >= p.cfg.MaxDepth {
		return false
	}
	switch task.Role() {
	case meshtask.RoleTesting, meshtask.RoleDocumentation, meshtask.RoleDebugging:
		return false
	}
	return complexity >= p.cfg.AutoDecomposeThreshold
}
