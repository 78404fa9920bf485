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
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshseeks/meshseeks/pkg/checkpoint"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// unmarshalRawTaskTree decodes a checkpoint's raw TaskTree bytes into v.
func unmarshalRawTaskTree(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

// sessionEntry bundles a Session with the persistence/ticking machinery the
// Manager owns on its behalf.
type sessionEntry struct {
	session   *Session
	store     *checkpoint.Store
	ckptMgr   *checkpoint.Manager
	stopTimer chan struct{}
}

// metricsRecorder is the subset of pkg/observability's session/checkpoint
// collectors the manager touches; kept as a small interface so tests may
// supply a no-op instead of importing observability.
type metricsRecorder interface {
	RecordCheckpointCreated(sizeBytes int)
	RecordCheckpointRestored()
	SetSessionsActive(status string, count int)
	RecordSessionEvent(event string)
}

type noopMetrics struct{}

func (noopMetrics) RecordCheckpointCreated(int)    {}
func (noopMetrics) RecordCheckpointRestored()      {}
func (noopMetrics) SetSessionsActive(string, int)  {}
func (noopMetrics) RecordSessionEvent(string)      {}

// Manager is the Session Manager: createSession/startSession/... plus the
// auto-checkpoint cadence, all guarded by one lock so lifecycle transitions
// can't race with a concurrent checkpoint or status update.
type Manager struct {
	baseCheckpointDir string
	metrics           metricsRecorder

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	// activeID is the most recently started, not-yet-terminal session —
	// GetActiveSession's notion of "the" active session.
	activeID string
}

// NewManager constructs a Manager whose sessions persist checkpoints under
// baseCheckpointDir/<sessionId>/.
func NewManager(baseCheckpointDir string) *Manager {
	return &Manager{
		baseCheckpointDir: baseCheckpointDir,
		sessions:          make(map[string]*sessionEntry),
		metrics:           noopMetrics{},
	}
}

// SetMetrics attaches a metrics recorder the manager reports checkpoint and
// session lifecycle events to. Passing nil restores the no-op recorder.
func (m *Manager) SetMetrics(metrics metricsRecorder) {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	m.mu.Lock()
	m.metrics = metrics
	m.mu.Unlock()
}

// CreateSession allocates a new session in status initializing. cfg is
// defaulted before being snapshotted onto the session.
func (m *Manager) CreateSession(name, description string, cfg Config) (*Session, error) {
	cfg.SetDefaults()

	id := uuid.New().String()
	cfg.Checkpoint.Dir = filepath.Join(m.baseCheckpointDir, id)

	sess := newSession(id, name, description, cfg)

	store, err := checkpoint.NewStore(cfg.Checkpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("swarmsession: create checkpoint store: %w", err)
	}
	ckptMgr := checkpoint.NewManager(cfg.Checkpoint, store)

	m.mu.Lock()
	m.sessions[id] = &sessionEntry{session: sess, store: store, ckptMgr: ckptMgr}
	m.mu.Unlock()

	sess.emit(Event{Type: EventSessionCreated})
	m.publishSessionCounts()
	return sess, nil
}

func (m *Manager) entry(sessionID string) (*sessionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e, nil
}

// Get returns the session for sessionID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	e, err := m.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

// StartSession transitions a session from initializing to active and begins
// its auto-checkpoint timer.
func (m *Manager) StartSession(sessionID string) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session

	s.mu.Lock()
	if s.status != StatusInitializing {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s, want initializing", ErrInvalidTransition, sessionID, s.status)
	}
	now := time.Now()
	s.status = StatusActive
	s.startedAt = &now
	s.mu.Unlock()

	m.mu.Lock()
	m.activeID = sessionID
	m.mu.Unlock()

	m.startAutoCheckpoint(sessionID, e)
	m.metrics.RecordSessionEvent("session_started")
	m.publishSessionCounts()
	s.emit(Event{Type: EventSessionStarted})
	return nil
}

// startAutoCheckpoint launches the per-session ticker that fires
// checkpointIntervalMs on active sessions.
func (m *Manager) startAutoCheckpoint(sessionID string, e *sessionEntry) {
	e.stopTimer = make(chan struct{})
	interval := e.session.cfg.checkpointInterval()
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if e.session.Status() != StatusActive {
					continue
				}
				e.ckptMgr.AutoCheckpoint(sessionID, m.snapshotFunc(e.session))
				m.recordCheckpoint(e.session, "")
			case <-e.stopTimer:
				return
			}
		}
	}()
}

func (m *Manager) stopAutoCheckpoint(e *sessionEntry) {
	if e.stopTimer != nil {
		close(e.stopTimer)
		e.stopTimer = nil
	}
}

func (m *Manager) snapshotFunc(s *Session) checkpoint.SnapshotFunc {
	return func() (sessionData, taskTreeData, agentStatesData, contextData any) {
		return s.snapshot(), s.tree.Snapshot(), s.agentStatesSnapshot(), s.contextSnapshot()
	}
}

// AddTask inserts task into sessionID's tree. depth/dependency invariants are
// meshtask.Tree's responsibility; this just routes to the right tree and
// enforces the session's maxTaskDepth bound.
func (m *Manager) AddTask(sessionID string, task *meshtask.Task) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	if task.Depth() > e.session.cfg.MaxTaskDepth {
		return fmt.Errorf("swarmsession: task %s at depth %d exceeds max_task_depth %d", task.ID(), task.Depth(), e.session.cfg.MaxTaskDepth)
	}
	return e.session.tree.Add(task)
}

// UpdateTaskStatus transitions taskId within sessionId's tree, updates
// metrics, appends an error-log entry on failure, stores resultSummary into
// the context store on completion, and forces a checkpoint when the root
// task completes or fails.
func (m *Manager) UpdateTaskStatus(sessionID, taskID string, newStatus meshtask.Status, resultSummary any) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session

	task, err := s.tree.Get(taskID)
	if err != nil {
		return err
	}
	agentID := task.AssignedAgent()
	if err := task.Transition(newStatus, agentID); err != nil {
		return err
	}

	s.mu.Lock()
	s.metrics.ByStatus[newStatus]++
	s.metrics.ByRole[task.Role()]++
	s.metrics.ByDepth[task.Depth()]++
	s.mu.Unlock()

	switch newStatus {
	case meshtask.StatusInProgress:
		s.emit(Event{Type: EventTaskStarted, TaskID: taskID})
	case meshtask.StatusCompleted:
		if resultSummary != nil {
			s.mu.Lock()
			s.context[taskID] = resultSummary
			s.mu.Unlock()
		}
		if start := task.StartedAt(); start != nil {
			if end := task.CompletedAt(); end != nil {
				s.mu.Lock()
				s.metrics.TotalExecTimeMs += end.Sub(*start).Milliseconds()
				s.metrics.CompletedTaskCount++
				s.mu.Unlock()
			}
		}
		s.emit(Event{Type: EventTaskCompleted, TaskID: taskID})
		if taskID == s.tree.RootID() {
			m.forceCheckpoint(e, "root task completed")
		}
	case meshtask.StatusFailed:
		reason := fmt.Sprintf("task %s failed", taskID)
		if resultSummary != nil {
			reason = fmt.Sprintf("%v", resultSummary)
		}
		s.appendError(taskID, reason)
		s.emit(Event{Type: EventTaskFailed, TaskID: taskID, Detail: reason})
		if taskID == s.tree.RootID() {
			m.forceCheckpoint(e, "root task failed")
		}
	}
	return nil
}

// AssignAgent transitions taskID into in_progress under agentID. It exists
// separately from UpdateTaskStatus because the orchestrator learns the
// winning agent id only at acquire time, after the pool has already picked a
// worker — UpdateTaskStatus alone has no way to thread a new agent id in.
func (m *Manager) AssignAgent(sessionID, taskID, agentID string) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session

	task, err := s.tree.Get(taskID)
	if err != nil {
		return err
	}
	if err := task.Transition(meshtask.StatusInProgress, agentID); err != nil {
		return err
	}

	s.mu.Lock()
	s.metrics.ByStatus[meshtask.StatusInProgress]++
	s.metrics.ByRole[task.Role()]++
	s.mu.Unlock()

	s.emit(Event{Type: EventTaskStarted, TaskID: taskID, Detail: agentID})
	return nil
}

func (m *Manager) forceCheckpoint(e *sessionEntry, reason string) {
	e.ckptMgr.OnError(e.session.id, fmt.Errorf("%s", reason), m.snapshotFunc(e.session))
	m.recordCheckpoint(e.session, reason)
}

func (m *Manager) recordCheckpoint(s *Session, detail string) {
	e, err := m.entry(s.id)
	if err != nil {
		return
	}
	cp, err := e.store.GetLatestCheckpoint()
	if err != nil || cp == nil {
		return
	}
	s.mu.Lock()
	s.checkpoints = append(s.checkpoints, cp.ID)
	s.latestCheckpointID = cp.ID
	s.metrics.CheckpointsTaken++
	s.mu.Unlock()
	m.metrics.RecordCheckpointCreated(int(cp.SizeBytes))
	s.emit(Event{Type: EventCheckpointCreated, Detail: detail})
}

// RecordJudgeVerdict updates judge approval/rejection counters for sessionID.
func (m *Manager) RecordJudgeVerdict(sessionID string, pass bool) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	if pass {
		e.session.metrics.JudgeApprovals++
	} else {
		e.session.metrics.JudgeRejections++
	}
	return nil
}

// PauseOptions govern PauseSession.
type PauseOptions struct {
	CreateCheckpoint bool
	Reason           string
}

// PauseSession transitions an active session to paused, stops its
// auto-checkpoint timer, and optionally takes a manual checkpoint first.
func (m *Manager) PauseSession(sessionID string, opts PauseOptions) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s, want active", ErrInvalidTransition, sessionID, s.status)
	}
	s.mu.Unlock()

	if opts.CreateCheckpoint {
		if _, err := e.ckptMgr.OnPause(sessionID, opts.Reason, m.snapshotFunc(s)); err != nil {
			return fmt.Errorf("swarmsession: pause checkpoint: %w", err)
		}
		m.recordCheckpoint(s, opts.Reason)
	}

	m.stopAutoCheckpoint(e)

	now := time.Now()
	s.mu.Lock()
	s.status = StatusPaused
	s.pausedAt = &now
	s.mu.Unlock()
	m.metrics.RecordSessionEvent("session_paused")
	m.publishSessionCounts()
	s.emit(Event{Type: EventSessionPaused, Detail: opts.Reason})
	return nil
}

// ResumeOptions govern ResumeSession.
type ResumeOptions struct {
	CheckpointID     string
	ResetFailedTasks bool
}

// ResumeSession transitions a paused session back to active, optionally
// restoring it from a specific (or the latest) checkpoint first.
func (m *Manager) ResumeSession(sessionID string, opts ResumeOptions) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session

	s.mu.Lock()
	if s.status != StatusPaused {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s, want paused", ErrInvalidTransition, sessionID, s.status)
	}
	s.mu.Unlock()

	cpID := opts.CheckpointID
	if cpID == "" {
		cpID = s.LatestCheckpointID()
	}
	if cpID != "" {
		result, err := e.store.RestoreCheckpoint(checkpoint.RestoreOptions{
			CheckpointID:         cpID,
			ResetFailedTasks:     opts.ResetFailedTasks,
			ResetInProgressTasks: true,
			ValidateChecksum:     true,
		})
		if err != nil {
			return fmt.Errorf("swarmsession: resume restore: %w", err)
		}
		var snapshots []meshtask.Snapshot
		if uErr := unmarshalRawTaskTree(result.Checkpoint.TaskTree, &snapshots); uErr != nil {
			return fmt.Errorf("swarmsession: resume decode task tree: %w", uErr)
		}
		s.mu.Lock()
		s.tree = meshtask.RestoreTree(snapshots)
		s.metrics.CheckpointsRestored++
		s.mu.Unlock()
		m.metrics.RecordCheckpointRestored()
	}

	now := time.Now()
	s.mu.Lock()
	s.status = StatusActive
	s.resumedAt = &now
	s.mu.Unlock()

	m.startAutoCheckpoint(sessionID, e)
	m.metrics.RecordSessionEvent("session_resumed")
	m.publishSessionCounts()
	s.emit(Event{Type: EventSessionResumed})
	return nil
}

// CompleteSession transitions an active (or paused) session to completed,
// taking a final shutdown-style checkpoint and stopping its timer.
func (m *Manager) CompleteSession(sessionID string) error {
	return m.terminate(sessionID, StatusCompleted, EventSessionCompleted, "")
}

// FailSession transitions a session to failed with reason recorded in the
// error log, taking a final error-triggered checkpoint.
func (m *Manager) FailSession(sessionID, reason string) error {
	return m.terminate(sessionID, StatusFailed, EventSessionFailed, reason)
}

func (m *Manager) terminate(sessionID string, status Status, evt EventType, reason string) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session

	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %s", ErrSessionTerminal, sessionID)
	}
	s.mu.Unlock()

	if reason != "" {
		s.appendError("", reason)
	}

	if _, err := e.ckptMgr.OnShutdown(sessionID, m.snapshotFunc(s)); err != nil {
		slog.Warn("final checkpoint failed", "session_id", sessionID, "error", err)
	} else {
		m.recordCheckpoint(s, reason)
	}

	m.stopAutoCheckpoint(e)

	now := time.Now()
	s.mu.Lock()
	s.status = status
	s.completedAt = &now
	s.mu.Unlock()

	m.mu.Lock()
	if m.activeID == sessionID {
		m.activeID = ""
	}
	m.mu.Unlock()

	if status == StatusCompleted {
		m.metrics.RecordSessionEvent("session_completed")
	} else {
		m.metrics.RecordSessionEvent("session_failed")
	}
	m.publishSessionCounts()

	s.emit(Event{Type: evt, Detail: reason})
	return nil
}

// publishSessionCounts reports the current number of sessions in each status
// to the metrics recorder, so session gauges stay accurate across creates,
// pauses, resumes, and terminations without a separate polling loop.
func (m *Manager) publishSessionCounts() {
	counts := make(map[Status]int)
	m.mu.RLock()
	for _, e := range m.sessions {
		counts[e.session.Status()]++
	}
	m.mu.RUnlock()
	for status, count := range counts {
		m.metrics.SetSessionsActive(string(status), count)
	}
}

// RegisterAgent adds or replaces an agent ledger entry for sessionID.
func (m *Manager) RegisterAgent(sessionID string, agent AgentState) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now()
	}
	agent.LastActivity = time.Now()
	s.agents[agent.ID] = &agent
	s.metrics.ActiveAgents = len(s.agents)
	if s.metrics.ActiveAgents > s.metrics.PeakActiveAgents {
		s.metrics.PeakActiveAgents = s.metrics.ActiveAgents
	}
	return nil
}

// RemoveAgent removes agentID from sessionID's ledger.
func (m *Manager) RemoveAgent(sessionID, agentID string) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agentID]; !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	delete(s.agents, agentID)
	s.metrics.ActiveAgents = len(s.agents)
	return nil
}

// SetContext stores value as taskID's result in sessionID's context store.
func (m *Manager) SetContext(sessionID, taskID string, value any) error {
	e, err := m.entry(sessionID)
	if err != nil {
		return err
	}
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[taskID] = value
	return nil
}

// GetContext retrieves taskID's stored result from sessionID's context store.
func (m *Manager) GetContext(sessionID, taskID string) (any, bool, error) {
	e, err := m.entry(sessionID)
	if err != nil {
		return nil, false, err
	}
	s := e.session
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.context[taskID]
	return v, ok, nil
}

// GetActiveSession returns the most recently started, not-yet-terminal
// session. Returns ErrNoActiveSession when none is active.
func (m *Manager) GetActiveSession() (*Session, error) {
	m.mu.RLock()
	id := m.activeID
	m.mu.RUnlock()
	if id == "" {
		return nil, ErrNoActiveSession
	}
	return m.Get(id)
}

// GetSessionStatus returns sessionID's current status.
func (m *Manager) GetSessionStatus(sessionID string) (Status, error) {
	e, err := m.entry(sessionID)
	if err != nil {
		return "", err
	}
	return e.session.Status(), nil
}

// ListAllSessions returns every known session, newest-created first.
func (m *Manager) ListAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, e.session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.After(out[j].createdAt) })
	return out
}

// CreateCheckpoint takes a manual checkpoint of sessionID right now.
func (m *Manager) CreateCheckpoint(sessionID string, opts checkpoint.CreateOptions) (checkpoint.CreateResult, error) {
	e, err := m.entry(sessionID)
	if err != nil {
		return checkpoint.CreateResult{}, err
	}
	sessionData, taskTreeData, agentStatesData, contextData := m.snapshotFunc(e.session)()
	result, err := e.store.CreateCheckpoint(sessionID, sessionData, taskTreeData, agentStatesData, contextData, opts)
	if err != nil {
		return result, err
	}
	m.recordCheckpoint(e.session, opts.Description)
	return result, nil
}

// Shutdown stops every session's auto-checkpoint timer and takes a final
// shutdown checkpoint of every non-terminal session.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		m.stopAutoCheckpoint(e)
		if e.session.Status().IsTerminal() {
			continue
		}
		if _, err := e.ckptMgr.OnShutdown(e.session.id, m.snapshotFunc(e.session)); err != nil {
			slog.Warn("shutdown checkpoint failed", "session_id", e.session.id, "error", err)
			continue
		}
		m.recordCheckpoint(e.session, "shutdown")
	}
}
