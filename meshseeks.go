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

// Package meshseeks is the top-level facade over the orchestration engine:
// an Engine wires a swarmsession.Manager, a pkg/orchestrator per active
// session, and the observability manager together and exposes the four
// operations a transport layer (or cmd/meshseeks) drives: AnalyzeProblem,
// ExecuteTasks, SolveProblem, and Status. No business logic lives here —
// every operation is a thin call into the packages that actually own it.
//
//	import "github.com/meshseeks/meshseeks"
//
//	engine, err := meshseeks.New(ctx, cfg)
//	outcome, err := engine.SolveProblem(ctx, "fix the flaky upload test", "./work", meshseeks.SolveOptions{})
package meshseeks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshseeks/meshseeks/pkg/config"
	"github.com/meshseeks/meshseeks/pkg/judge"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
	"github.com/meshseeks/meshseeks/pkg/observability"
	"github.com/meshseeks/meshseeks/pkg/orchestrator"
	"github.com/meshseeks/meshseeks/pkg/planner"
	"github.com/meshseeks/meshseeks/pkg/pool"
	"github.com/meshseeks/meshseeks/pkg/swarmsession"
)

// Engine is the long-lived handle a caller obtains once and reuses across
// operations. It owns the session manager (and therefore every session's
// checkpoint store) and the observability manager (tracer + metrics).
type Engine struct {
	cfg     *config.Config
	manager *swarmsession.Manager
	obs     *observability.Manager

	mu    sync.Mutex
	orchs map[string]*orchestrator.Orchestrator
}

// New builds an Engine from cfg. cfg is defaulted and validated; observability
// is initialized before the session manager is constructed, so every session
// created afterward reports through the same metrics recorder.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("meshseeks: invalid config: %w", err)
	}

	obs, err := observability.NewManager(ctx, &cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("meshseeks: init observability: %w", err)
	}

	manager := swarmsession.NewManager(cfg.CheckpointDir)
	manager.SetMetrics(obs.Metrics())

	return &Engine{
		cfg:     cfg,
		manager: manager,
		obs:     obs,
		orchs:   make(map[string]*orchestrator.Orchestrator),
	}, nil
}

// Shutdown drains every session (final checkpoint, pool shutdown) and flushes
// tracing. It does not return the individual errors encountered along the
// way since shutdown is always best-effort.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	orchs := make([]*orchestrator.Orchestrator, 0, len(e.orchs))
	for _, o := range e.orchs {
		orchs = append(orchs, o)
	}
	e.mu.Unlock()

	for _, o := range orchs {
		_ = o.Shutdown(ctx)
	}
	e.manager.Shutdown()
	return e.obs.Shutdown(ctx)
}

// ErrPlannerRejected reports that the planner could not decompose a task
// (the root task was already at the configured max depth).
var ErrPlannerRejected = fmt.Errorf("meshseeks: planner rejected task")

// TaskSpec is the facade's view of a planned or caller-supplied unit of
// work — what AnalyzeProblem emits and ExecuteTasks consumes. Priority's
// zero value is meshtask.PriorityCritical (matching meshtask's own iota
// ordering); leave it unset only when that is actually the intended
// priority.
type TaskSpec struct {
	ID         string              `json:"id,omitempty"`
	Role       meshtask.Role       `json:"role"`
	Priority   meshtask.Priority   `json:"priority"`
	Prompt     string              `json:"prompt"`
	Tags       []string            `json:"tags,omitempty"`
	DependsOn  []string            `json:"depends_on,omitempty"`
	ReturnMode meshtask.ReturnMode `json:"return_mode,omitempty"`
}

// AnalyzeProblem runs the Hierarchical Planner against a synthetic root task
// built from prompt and returns the ordered subtask specs it would dispatch,
// without creating a session or executing anything. workFolder is recorded
// onto the synthetic root only to exercise the same field a real root task
// would carry; analysis never touches the filesystem.
func (e *Engine) AnalyzeProblem(prompt, workFolder string) ([]TaskSpec, error) {
	root := meshtask.NewTask(prompt, meshtask.RoleAnalysis, 0, "")
	root.SetWorkFolder(workFolder)

	plannerCfg := e.cfg.Session.Planner
	p := planner.New(plannerCfg)

	plan := p.Decompose(root, planner.Instruction{Strategy: plannerCfg.DefaultStrategy}, planner.DecomposeContext{
		ExistingTaskIDs: map[string]bool{root.ID(): true},
	})
	if plan.MaxDepthReached {
		return nil, fmt.Errorf("%w: root task already at max depth", ErrPlannerRejected)
	}

	specs := make([]TaskSpec, 0, len(plan.Subtasks))
	for _, s := range plan.Subtasks {
		specs = append(specs, TaskSpec{
			ID:         s.ID,
			Role:       s.Role,
			Priority:   s.Priority,
			Prompt:     s.Prompt,
			Tags:       s.Tags,
			DependsOn:  s.DependsOn,
			ReturnMode: meshtask.ReturnModeSummary,
		})
	}
	return specs, nil
}

// TaskOutcome is one entry of ExecuteTasks' or Status's result list: the
// judge-scored result plus the final status the task tree recorded for it.
type TaskOutcome struct {
	TaskID string
	Status meshtask.Status
	Result judge.TaskResult
}

// ExecuteTasks runs an already-planned, flat task list to completion: it
// seeds an ephemeral session's tree with every task, preserving each spec's
// id (so DependsOn edges produced by AnalyzeProblem still resolve) and
// dependency edges, drives the orchestrator's control loop until every task
// reaches a terminal status, and reports the per-task outcome.
// maxConcurrent overrides the session's default concurrency bound when
// positive.
func (e *Engine) ExecuteTasks(ctx context.Context, tasks []TaskSpec, maxConcurrent int) ([]TaskOutcome, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	sessCfg := e.cfg.Session
	if maxConcurrent > 0 {
		sessCfg.MaxConcurrentAgents = maxConcurrent
	}

	sess, err := e.manager.CreateSession("execute-tasks", "ad-hoc task list execution", sessCfg)
	if err != nil {
		return nil, fmt.Errorf("meshseeks: create session: %w", err)
	}

	for _, spec := range tasks {
		id := spec.ID
		if id == "" {
			id = newTaskID()
		}
		task := meshtask.FromSnapshot(meshtask.Snapshot{
			ID:           id,
			Depth:        0,
			Prompt:       spec.Prompt,
			Role:         spec.Role,
			ReturnMode:   spec.ReturnModeOrDefault(),
			Tags:         spec.Tags,
			Dependencies: spec.DependOnOrEmpty(),
			Priority:     spec.Priority,
			MaxRetries:   2,
			Status:       meshtask.StatusPending,
			CreatedAt:    time.Now(),
		})
		if err := e.manager.AddTask(sess.ID(), task); err != nil {
			return nil, fmt.Errorf("meshseeks: seed task %s: %w", id, err)
		}
	}

	if err := e.manager.StartSession(sess.ID()); err != nil {
		return nil, fmt.Errorf("meshseeks: start session: %w", err)
	}

	orch, err := e.getOrchestrator(sess.ID(), "")
	if err != nil {
		return nil, err
	}

	if _, err := orch.Run(ctx, ""); err != nil {
		return nil, fmt.Errorf("meshseeks: execute tasks: %w", err)
	}

	return e.collectOutcomes(sess), nil
}

// SolveOptions controls SolveProblem's behavior.
type SolveOptions struct {
	// Approach overrides the planner's default decomposition strategy.
	Approach planner.Strategy
	// ReturnSummary asks for a condensed final artifact (the root task's or a
	// synthesizer task's own output) instead of the full concatenation of
	// every completed task's output.
	ReturnSummary bool
}

// SolveOutcome is solve_problem's result: the synthesized final artifact
// alongside the session's lifetime metrics.
type SolveOutcome struct {
	SessionID string
	Status    string // "completed" | "failed" | "partial"
	Artifact  string
	Metrics   swarmsession.Metrics
}

// SolveProblem creates a fresh session, seeds it with a root task built from
// prompt, and drives the orchestrator's full decompose-dispatch-verify loop
// to completion. The returned artifact is the concatenation of every
// completed task's stored result, in creation order, or — when
// opts.ReturnSummary is set — just the most authoritative single task's
// output (see synthesizeArtifact).
func (e *Engine) SolveProblem(ctx context.Context, prompt, workFolder string, opts SolveOptions) (SolveOutcome, error) {
	sessCfg := e.cfg.Session
	if opts.Approach != "" {
		sessCfg.Planner.DefaultStrategy = opts.Approach
	}

	sess, err := e.manager.CreateSession("solve-problem", prompt, sessCfg)
	if err != nil {
		return SolveOutcome{}, fmt.Errorf("meshseeks: create session: %w", err)
	}
	if err := e.manager.StartSession(sess.ID()); err != nil {
		return SolveOutcome{}, fmt.Errorf("meshseeks: start session: %w", err)
	}

	orch, err := e.getOrchestrator(sess.ID(), workFolder)
	if err != nil {
		return SolveOutcome{}, err
	}

	runOutcome, err := orch.Run(ctx, prompt)
	if err != nil {
		return SolveOutcome{}, fmt.Errorf("meshseeks: solve problem: %w", err)
	}

	status := "completed"
	switch {
	case runOutcome.Status == swarmsession.StatusFailed && runOutcome.Completed > 0:
		status = "partial"
	case runOutcome.Status == swarmsession.StatusFailed:
		status = "failed"
	}

	return SolveOutcome{
		SessionID: sess.ID(),
		Status:    status,
		Artifact:  e.synthesizeArtifact(sess, opts.ReturnSummary),
		Metrics:   sess.Metrics(),
	}, nil
}

// StatusReport is the status operation's result: the session's identity and
// task counts, the agent pool's health, the most recent task results, and
// the session's Prometheus-exported metrics snapshot — inlined so a caller
// that never scrapes the metrics endpoint still sees current counts.
type StatusReport struct {
	SessionID     string
	SessionStatus swarmsession.Status
	TaskCounts    map[meshtask.Status]int
	PoolHealth    pool.HealthStatus
	PoolSize      int
	RecentResults []TaskOutcome
	Metrics       swarmsession.Metrics
}

// Status reports on sessionID, or the most recently started session when
// sessionID is empty.
func (e *Engine) Status(sessionID string) (StatusReport, error) {
	var sess *swarmsession.Session
	var err error
	if sessionID == "" {
		sess, err = e.manager.GetActiveSession()
	} else {
		sess, err = e.manager.Get(sessionID)
	}
	if err != nil {
		return StatusReport{}, fmt.Errorf("meshseeks: status: %w", err)
	}

	report := StatusReport{
		SessionID:     sess.ID(),
		SessionStatus: sess.Status(),
		TaskCounts:    sess.Tree().Stats().ByStatus,
		RecentResults: e.collectOutcomes(sess),
		Metrics:       sess.Metrics(),
	}

	e.mu.Lock()
	orch := e.orchs[sess.ID()]
	e.mu.Unlock()
	if orch != nil {
		report.PoolHealth = orch.PoolHealth()
		report.PoolSize = orch.PoolSize()
	}
	return report, nil
}

// getOrchestrator builds (or returns the already-built) orchestrator for
// sessionID, registering it so Shutdown and Status can find it later.
// baseWorkDir only takes effect the first time an orchestrator is built for
// sessionID; it is ignored on a cache hit.
func (e *Engine) getOrchestrator(sessionID, baseWorkDir string) (*orchestrator.Orchestrator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orchs[sessionID]; ok {
		return o, nil
	}

	orchCfg := e.cfg.Orchestrator
	if baseWorkDir != "" {
		orchCfg.BaseWorkDir = baseWorkDir
	}

	o, err := orchestrator.New(e.manager, sessionID, orchCfg, e.obs.Metrics())
	if err != nil {
		return nil, fmt.Errorf("meshseeks: build orchestrator: %w", err)
	}
	e.orchs[sessionID] = o
	return o, nil
}

// collectOutcomes synthesizes a TaskOutcome per task from the tree's current
// state and the session's error log; it never blocks on in-flight tasks.
func (e *Engine) collectOutcomes(sess *swarmsession.Session) []TaskOutcome {
	errByTask := make(map[string]string)
	for _, entry := range sess.ErrorLog() {
		if entry.TaskID != "" {
			errByTask[entry.TaskID] = entry.Message
		}
	}

	tasks := sess.Tree().All()
	out := make([]TaskOutcome, 0, len(tasks))
	for _, task := range tasks {
		result := judge.TaskResult{Success: task.Status() == meshtask.StatusCompleted}
		if v, ok, _ := e.manager.GetContext(sess.ID(), task.ID()); ok {
			if s, ok := v.(string); ok {
				result.Output = s
				result.Summary = s
			} else {
				result.Output = fmt.Sprintf("%v", v)
			}
		}
		if msg, ok := errByTask[task.ID()]; ok {
			result.Error = msg
		}
		out = append(out, TaskOutcome{TaskID: task.ID(), Status: task.Status(), Result: result})
	}
	return out
}

// synthesizeArtifact concatenates every completed task's stored output in
// creation order. When summary is true, it instead prefers a completed
// synthesizer-role task's output, falling back to the root task's own
// output, falling back to the last completed task's output.
func (e *Engine) synthesizeArtifact(sess *swarmsession.Session, summary bool) string {
	tasks := sess.Tree().All()

	if summary {
		for i := len(tasks) - 1; i >= 0; i-- {
			if tasks[i].Role() != meshtask.RoleSynthesizer || tasks[i].Status() != meshtask.StatusCompleted {
				continue
			}
			if v, ok, _ := e.manager.GetContext(sess.ID(), tasks[i].ID()); ok {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
		if root := sess.RootTaskID(); root != "" {
			if v, ok, _ := e.manager.GetContext(sess.ID(), root); ok {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
		for i := len(tasks) - 1; i >= 0; i-- {
			if tasks[i].Status() != meshtask.StatusCompleted {
				continue
			}
			if v, ok, _ := e.manager.GetContext(sess.ID(), tasks[i].ID()); ok {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
		return ""
	}

	var b strings.Builder
	for _, task := range tasks {
		if task.Status() != meshtask.StatusCompleted {
			continue
		}
		v, ok, _ := e.manager.GetContext(sess.ID(), task.ID())
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}
	return b.String()
}

// DependOnOrEmpty returns spec.DependsOn, or an empty slice if nil, so
// meshtask.Snapshot never carries a nil Dependencies slice.
func (s TaskSpec) DependOnOrEmpty() []string {
	if s.DependsOn == nil {
		return []string{}
	}
	return s.DependsOn
}

// ReturnModeOrDefault returns spec.ReturnMode, defaulting to summary mode
// when unset, matching meshtask.NewTask's own default.
func (s TaskSpec) ReturnModeOrDefault() meshtask.ReturnMode {
	if s.ReturnMode == "" {
		return meshtask.ReturnModeSummary
	}
	return s.ReturnMode
}

// newTaskID generates an id for a caller-supplied TaskSpec lacking one.
func newTaskID() string {
	return uuid.New().String()
}
