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

// Package orchestrator implements the swarm control loop: it decomposes the
// root task through the Hierarchical Planner, dispatches whatever becomes
// executable to the Agent Pool, invokes the external code assistant through
// pkg/executor, scores the result through the Judge, and folds completion
// and failure back into the session's task tree until nothing is left to do.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshseeks/meshseeks/pkg/executor"
	"github.com/meshseeks/meshseeks/pkg/judge"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
	"github.com/meshseeks/meshseeks/pkg/observability"
	"github.com/meshseeks/meshseeks/pkg/planner"
	"github.com/meshseeks/meshseeks/pkg/pool"
	"github.com/meshseeks/meshseeks/pkg/swarmsession"
)

// Outcome is the terminal result of a Run call.
type Outcome struct {
	Status    swarmsession.Status
	Reason    string
	Completed int
	Failed    int
}

// Orchestrator drives one session's task tree to completion.
type Orchestrator struct {
	manager   *swarmsession.Manager
	sessionID string
	cfg       Config

	pool    *pool.Pool
	exec    *executor.Executor
	tracer  trace.Tracer
	metrics *observability.Metrics
}

// New wires an Orchestrator for an already-created session. The session must
// exist in manager and will typically still be in status active (the caller
// calls manager.StartSession before handing the session to Run). metrics may
// be nil; when set, it backs the pool's gauges and this orchestrator's task
// transition, duration, and judge-verdict counters.
func New(manager *swarmsession.Manager, sessionID string, cfg Config, metrics *observability.Metrics) (*Orchestrator, error) {
	cfg.SetDefaults()

	sess, err := manager.Get(sessionID)
	if err != nil {
		return nil, err
	}

	p, err := pool.New(sess.Config().Pool, metrics)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create pool: %w", err)
	}

	return &Orchestrator{
		manager:   manager,
		sessionID: sessionID,
		cfg:       cfg,
		pool:      p,
		exec:      executor.New(cfg.Executor),
		tracer:    observability.GetTracer("meshseeks/orchestrator"),
		metrics:   metrics,
	}, nil
}

// PoolHealth reports the agent pool's current health label, for the status
// operation's pool health surface.
func (o *Orchestrator) PoolHealth() pool.HealthStatus {
	return o.pool.Health()
}

// PoolSize reports the pool's current total worker count.
func (o *Orchestrator) PoolSize() int {
	return o.pool.TotalAgents()
}

// Shutdown releases the orchestrator's pool workers. It does not touch the
// session itself, which the caller's swarmsession.Manager still owns.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.pool.Shutdown(ctx)
}

// Run seeds the session's task tree with a root task built from rootPrompt
// and drives the control loop until the whole tree is terminal, the
// iteration cap is hit, or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, rootPrompt string) (Outcome, error) {
	sess, err := o.manager.Get(o.sessionID)
	if err != nil {
		return Outcome{}, err
	}

	if sess.Tree().RootID() == "" {
		root := meshtask.NewTask(rootPrompt, meshtask.RoleAnalysis, 0, "")
		if err := o.manager.AddTask(o.sessionID, root); err != nil {
			return Outcome{}, fmt.Errorf("orchestrator: seed root task: %w", err)
		}
		o.metrics.RecordSessionEvent("session_started")
	}

	for iteration := 0; iteration < o.cfg.IterationCap; iteration++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		iterCtx, span := o.tracer.Start(ctx, "orchestrator.iteration",
			trace.WithAttributes(attribute.Int("iteration", iteration)))

		outcome, done, err := o.step(iterCtx, sess)
		span.End()
		if err != nil {
			return Outcome{}, err
		}
		if done {
			return outcome, nil
		}
	}

	_ = o.manager.FailSession(o.sessionID, "orchestrator: iteration cap exceeded")
	o.metrics.RecordSessionEvent("session_failed")
	return Outcome{Status: swarmsession.StatusFailed, Reason: "ITERATION_CAP_EXCEEDED"}, nil
}

// step runs one control-loop iteration. done is true once the session has
// reached a terminal outcome and Run should return.
func (o *Orchestrator) step(ctx context.Context, sess *swarmsession.Session) (Outcome, bool, error) {
	switch sess.Status() {
	case swarmsession.StatusPaused:
		o.sleep(ctx)
		return Outcome{}, false, nil
	case swarmsession.StatusCompleted:
		return Outcome{Status: swarmsession.StatusCompleted}, true, nil
	case swarmsession.StatusFailed:
		return Outcome{Status: swarmsession.StatusFailed}, true, nil
	}

	tree := sess.Tree()

	o.decomposeEligible(sess, tree)

	stats := tree.Stats()
	o.recordDepthCounts(tree)
	if stats.Total > 0 && treeFullyTerminal(stats) {
		return o.finishSession(tree)
	}

	if o.pool.ExcessiveFailuresTriggered() {
		_ = o.manager.PauseSession(o.sessionID, swarmsession.PauseOptions{
			CreateCheckpoint: true,
			Reason:           "excessive consecutive agent failures",
		})
		o.metrics.RecordSessionEvent("session_paused")
		return Outcome{}, false, nil
	}

	executable := tree.Executable()
	if len(executable) == 0 {
		if anyInProgress(tree) {
			o.sleep(ctx)
			return Outcome{}, false, nil
		}
		_ = o.manager.FailSession(o.sessionID, "stuck task tree: no executable tasks and none in progress")
		o.metrics.RecordSessionEvent("session_failed")
		return Outcome{Status: swarmsession.StatusFailed, Reason: "INVALID_TRANSITION"}, true, nil
	}

	if err := o.dispatchBatch(ctx, sess, executable); err != nil {
		return Outcome{}, false, err
	}
	return Outcome{}, false, nil
}

func (o *Orchestrator) sleep(ctx context.Context) {
	timer := time.NewTimer(o.cfg.pollInterval())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// treeFullyTerminal reports whether every task counted in stats has reached
// a terminal status.
func treeFullyTerminal(stats meshtask.Stats) bool {
	for status, count := range stats.ByStatus {
		if count > 0 && !status.IsTerminal() {
			return false
		}
	}
	return true
}

// recordDepthCounts publishes the current number of tasks at each tree depth.
func (o *Orchestrator) recordDepthCounts(tree *meshtask.Tree) {
	byDepth := make(map[int]int)
	for _, task := range tree.All() {
		byDepth[task.Depth()]++
	}
	for depth, count := range byDepth {
		o.metrics.SetTreeDepthCount(depth, count)
	}
}

func anyInProgress(tree *meshtask.Tree) bool {
	for _, task := range tree.All() {
		if task.Status() == meshtask.StatusInProgress || task.Status() == meshtask.StatusVerifying {
			return true
		}
	}
	return false
}

// finishSession transitions the session once every task in the tree is
// terminal: completed if nothing failed, failed otherwise.
func (o *Orchestrator) finishSession(tree *meshtask.Tree) (Outcome, bool, error) {
	stats := tree.Stats()
	if stats.ByStatus[meshtask.StatusFailed] > 0 {
		reason := "one or more tasks failed"
		_ = o.manager.FailSession(o.sessionID, reason)
		o.metrics.RecordSessionEvent("session_failed")
		return Outcome{
			Status:    swarmsession.StatusFailed,
			Reason:    reason,
			Completed: stats.ByStatus[meshtask.StatusCompleted],
			Failed:    stats.ByStatus[meshtask.StatusFailed],
		}, true, nil
	}
	if err := o.manager.CompleteSession(o.sessionID); err != nil {
		return Outcome{}, false, err
	}
	o.metrics.RecordSessionEvent("session_completed")
	return Outcome{
		Status:    swarmsession.StatusCompleted,
		Completed: stats.ByStatus[meshtask.StatusCompleted],
	}, true, nil
}

// decomposeEligible decomposes every pending, not-yet-decomposed task that
// qualifies under the planner's auto-decompose heuristic. A task that
// decomposes into subtasks is itself marked completed immediately — its only
// job was the split, the actual work now lives in its children, which carry
// it (among their other dependencies) as a dependency that is already
// satisfied.
func (o *Orchestrator) decomposeEligible(sess *swarmsession.Session, tree *meshtask.Tree) {
	for _, task := range tree.All() {
		if task.Status() != meshtask.StatusPending || len(task.Children()) > 0 {
			continue
		}
		complexity := planner.EstimateComplexity(task.Prompt())
		if !sess.Planner().AutoDecompose(task, complexity) {
			continue
		}

		existing := make(map[string]bool)
		for _, t := range tree.All() {
			existing[t.ID()] = true
		}

		plan := sess.Planner().Decompose(task, planner.Instruction{}, planner.DecomposeContext{ExistingTaskIDs: existing})
		if plan.MaxDepthReached || len(plan.Subtasks) == 0 {
			continue
		}

		for _, spec := range plan.Subtasks {
			child := meshtask.FromSnapshot(meshtask.Snapshot{
				ID:           spec.ID,
				ParentID:     task.ID(),
				Depth:        task.Depth() + 1,
				Prompt:       spec.Prompt,
				Role:         spec.Role,
				ReturnMode:   meshtask.ReturnModeSummary,
				Tags:         spec.Tags,
				Dependencies: spec.DependsOn,
				Priority:     spec.Priority,
				MaxRetries:   2,
				Status:       meshtask.StatusPending,
				CreatedAt:    time.Now(),
			})
			_ = o.manager.AddTask(sess.ID(), child)
		}

		_ = o.manager.UpdateTaskStatus(sess.ID(), task.ID(), meshtask.StatusCompleted,
			fmt.Sprintf("decomposed into %d subtasks", len(plan.Subtasks)))
	}
}

// dispatchBatch runs every executable task concurrently, bounded by the
// session's configured MaxConcurrentAgents.
func (o *Orchestrator) dispatchBatch(ctx context.Context, sess *swarmsession.Session, executable []*meshtask.Task) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit := sess.Config().MaxConcurrentAgents; limit > 0 {
		g.SetLimit(limit)
	}

	for _, task := range executable {
		task := task
		g.Go(func() error {
			o.dispatchTask(gctx, sess, task)
			return nil
		})
	}
	return g.Wait()
}

// dispatchTask acquires a worker, invokes the executor, scores the result
// through the judge, and folds the outcome back into the task tree. Pool
// rejections and executor failures never surface as Go errors here — they
// become judge.TaskResult{Success: false} and are handled the same way a
// failed code-assistant invocation would be.
func (o *Orchestrator) dispatchTask(ctx context.Context, sess *swarmsession.Session, task *meshtask.Task) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.dispatch_task",
		trace.WithAttributes(attribute.String("task_id", task.ID()), attribute.String("role", string(task.Role()))))
	defer span.End()

	timeout := time.Duration(sess.Config().AgentTimeoutMs) * time.Millisecond

	workerID, err := o.pool.AcquireAgent(ctx, task.Role(), task.Priority(), task.ID(), timeout)
	if err != nil {
		o.finishTask(sess, task, judge.TaskResult{Success: false, Error: fmt.Sprintf("NO_AGENT: %v", err)}, "")
		return
	}

	_ = o.manager.RegisterAgent(sess.ID(), swarmsession.AgentState{ID: workerID, Role: task.Role(), CurrentTaskID: task.ID(), State: "running"})
	if err := o.manager.AssignAgent(sess.ID(), task.ID(), workerID); err != nil {
		o.finishTask(sess, task, judge.TaskResult{Success: false, Error: fmt.Sprintf("EXECUTION_ERROR: %v", err)}, workerID)
		return
	}

	depContext := o.gatherDependencyContext(sess, task)
	workDir := filepath.Join(o.cfg.BaseWorkDir, sess.ID(), task.ID())

	result := o.exec.Run(ctx, task, workDir, timeout, depContext)
	o.finishTask(sess, task, result, workerID)
}

// gatherDependencyContext collects every completed dependency's stored
// result, plus — on a reworked attempt — the judge's feedback from the most
// recent rejected attempt, so the executor can see why it was sent back.
func (o *Orchestrator) gatherDependencyContext(sess *swarmsession.Session, task *meshtask.Task) map[string]any {
	out := make(map[string]any)
	for _, depID := range task.Dependencies() {
		if v, ok, _ := o.manager.GetContext(sess.ID(), depID); ok {
			out[depID] = v
		}
	}
	if task.RetryCount() > 0 {
		history := sess.Judge().History(task.ID())
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Pass && history[i].ReworkPrompt != "" {
				out["rework_feedback"] = history[i].ReworkPrompt
				break
			}
		}
	}
	return out
}

// finishTask verifies result through the judge and applies the resulting
// status transition: completed on pass, a bounded retry loop through
// StatusRework on failure, and failed once retries are exhausted.
func (o *Orchestrator) finishTask(sess *swarmsession.Session, task *meshtask.Task, result judge.TaskResult, workerID string) {
	verdict := sess.Judge().Verify(task, result, nil)
	_ = o.manager.RecordJudgeVerdict(sess.ID(), verdict.Pass)
	o.metrics.RecordJudgeVerdict(verdict.Pass, string(task.Role()), verdict.OverallScore)

	if started := task.StartedAt(); started != nil {
		o.metrics.RecordTaskDuration(string(task.Role()), time.Since(*started))
	}

	pass := result.Success && verdict.Pass
	if pass {
		summary := result.Summary
		if summary == "" {
			summary = result.Output
		}
		_ = o.manager.UpdateTaskStatus(sess.ID(), task.ID(), meshtask.StatusCompleted, summary)
		o.metrics.RecordTaskTransition(string(meshtask.StatusCompleted), string(task.Role()))
		if workerID != "" {
			_ = o.pool.ReleaseAgent(workerID, true)
		}
		return
	}

	reason := result.Error
	if reason == "" && !verdict.Pass {
		reason = verdict.ReworkPrompt
	}

	// Decide the task's fate before touching the pool: ReleaseAgent hands
	// workerID back to the idle set and can synchronously reassign it to a
	// new queued task (serveQueueLocked, under the pool's lock), so calling
	// it and then MarkAgentFailed on the same id would fail a worker that by
	// then belongs to a different, unrelated in-flight task.
	exhausted := task.RetryCount() >= task.MaxRetries() || sess.Judge().HasExceededRetries(task.ID())
	if exhausted {
		_ = o.manager.UpdateTaskStatus(sess.ID(), task.ID(), meshtask.StatusFailed, reason)
		o.metrics.RecordTaskTransition(string(meshtask.StatusFailed), string(task.Role()))
		if workerID != "" {
			_ = o.pool.MarkAgentFailed(workerID, fmt.Errorf("%s", reason))
		}
		return
	}

	_ = o.manager.UpdateTaskStatus(sess.ID(), task.ID(), meshtask.StatusRework, reason)
	o.metrics.RecordTaskTransition(string(meshtask.StatusRework), string(task.Role()))
	if workerID != "" {
		_ = o.pool.ReleaseAgent(workerID, false)
	}
}
