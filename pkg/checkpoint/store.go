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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/meshseeks/meshseeks/pkg/filestore"
	"github.com/meshseeks/meshseeks/pkg/meshtask"
)

// Kind-level sentinel errors, matching the spec's PersistenceErrors taxonomy.
var (
	ErrNotFound         = fmt.Errorf("checkpoint: not found")
	ErrChecksumMismatch = fmt.Errorf("checkpoint: checksum mismatch")
	ErrVersionMismatch  = fmt.Errorf("checkpoint: version mismatch")
)

// Store owns one session's on-disk directory:
//
//	<dir>/
//	  session.json
//	  task-tree.json
//	  checkpoints/<cpId>.json[.gz]
//	  results/<taskId>.json
//	  logs/
type Store struct {
	mu    sync.Mutex
	cfg   Config
	index *Index // optional acceleration layer; nil-safe throughout
}

// NewStore creates a Store rooted at cfg.Dir. index may be nil.
func NewStore(cfg Config, index *Index) (*Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, sub := range []string{"", "checkpoints", "results", "logs"} {
		if err := filestore.EnsureDir(filepath.Join(cfg.Dir, sub)); err != nil {
			return nil, err
		}
	}
	return &Store{cfg: cfg, index: index}, nil
}

func (s *Store) sessionPath() string        { return filepath.Join(s.cfg.Dir, "session.json") }
func (s *Store) taskTreePath() string       { return filepath.Join(s.cfg.Dir, "task-tree.json") }
func (s *Store) checkpointsDir() string     { return filepath.Join(s.cfg.Dir, "checkpoints") }
func (s *Store) resultsDir() string         { return filepath.Join(s.cfg.Dir, "results") }
func (s *Store) checkpointPath(id string, gz bool) string {
	name := id + ".json"
	if gz {
		name += ".gz"
	}
	return filepath.Join(s.checkpointsDir(), name)
}

// SaveSession writes session metadata (without the task tree) to session.json.
func (s *Store) SaveSession(sessionData any) error {
	if err := filestore.WriteJSON(s.sessionPath(), sessionData); err != nil {
		return fmt.Errorf("checkpoint: save session: %w", err)
	}
	return nil
}

// LoadSession reads session.json into v.
func (s *Store) LoadSession(v any) error {
	if err := filestore.ReadJSON(s.sessionPath(), v); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return fmt.Errorf("%w: session.json", ErrNotFound)
		}
		return fmt.Errorf("checkpoint: load session: %w", err)
	}
	return nil
}

// SaveTaskTree writes the task tree (without session metadata) to task-tree.json.
func (s *Store) SaveTaskTree(taskTreeData any) error {
	if err := filestore.WriteJSON(s.taskTreePath(), taskTreeData); err != nil {
		return fmt.Errorf("checkpoint: save task tree: %w", err)
	}
	return nil
}

// LoadTaskTree reads task-tree.json into v.
func (s *Store) LoadTaskTree(v any) error {
	if err := filestore.ReadJSON(s.taskTreePath(), v); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return fmt.Errorf("%w: task-tree.json", ErrNotFound)
		}
		return fmt.Errorf("checkpoint: load task tree: %w", err)
	}
	return nil
}

// CreateResult reports the outcome of CreateCheckpoint.
type CreateResult struct {
	ID        string
	SizeBytes int64
}

// CreateCheckpoint serializes the given in-memory state into a Checkpoint,
// writes it under checkpoints/, and trims the oldest checkpoints beyond
// maxCheckpointsPerSession. Write failures are returned as structured errors
// and never panic — callers on the auto-checkpoint path are expected to log
// and continue rather than fail the session.
func (s *Store) CreateCheckpoint(sessionID string, sessionData, taskTreeData, agentStatesData, contextData any, opts CreateOptions) (CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	cp, err := New(id, sessionID, sessionData, taskTreeData, agentStatesData, contextData, opts)
	if err != nil {
		return CreateResult{}, err
	}

	gz := s.cfg.ShouldCompress()
	path := s.checkpointPath(id, gz)
	if gz {
		err = filestore.WriteJSONGZ(path, cp)
	} else {
		err = filestore.WriteJSON(path, cp)
	}
	if err != nil {
		return CreateResult{}, fmt.Errorf("checkpoint: create: %w", err)
	}

	if s.index != nil {
		if idxErr := s.index.Record(IndexEntry{
			SessionID:   sessionID,
			CheckpointID: id,
			Trigger:     string(opts.Trigger),
			CreatedAt:   cp.Timestamp,
			SizeBytes:   cp.SizeBytes,
			Compressed:  gz,
			Path:        path,
		}); idxErr != nil {
			// The index is an optional accelerator; a failure to record must
			// never fail the checkpoint itself.
			_ = idxErr
		}
	}

	if err := s.trimOldest(); err != nil {
		return CreateResult{ID: id, SizeBytes: cp.SizeBytes}, err
	}
	return CreateResult{ID: id, SizeBytes: cp.SizeBytes}, nil
}

// trimOldest deletes checkpoints beyond cfg.MaxCheckpointsPerSession, oldest
// first, tolerating already-missing files.
func (s *Store) trimOldest() error {
	metas, err := s.listCheckpointFiles()
	if err != nil {
		return err
	}
	if len(metas) <= s.cfg.MaxCheckpointsPerSession {
		return nil
	}
	excess := len(metas) - s.cfg.MaxCheckpointsPerSession
	for i := 0; i < excess; i++ {
		if err := filestore.Remove(metas[i].path); err != nil {
			return fmt.Errorf("checkpoint: trim oldest: %w", err)
		}
	}
	return nil
}

type checkpointFile struct {
	id      string
	path    string
	modTime int64
}

func (s *Store) listCheckpointFiles() ([]checkpointFile, error) {
	entries, err := os.ReadDir(s.checkpointsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: list checkpoints dir: %w", err)
	}

	out := make([]checkpointFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id := strippedCheckpointID(e.Name())
		out = append(out, checkpointFile{id: id, path: filepath.Join(s.checkpointsDir(), e.Name()), modTime: info.ModTime().UnixNano()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].modTime < out[j].modTime })
	return out, nil
}

func strippedCheckpointID(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".json")
}

// CheckpointSummary is a lightweight listing entry (no embedded payloads).
type CheckpointSummary struct {
	ID        string
	Timestamp int64
}

// ListCheckpoints returns checkpoint ids sorted by modification time
// descending (newest first), optionally paginated.
func (s *Store) ListCheckpoints(limit, offset int) ([]CheckpointSummary, error) {
	files, err := s.listCheckpointFiles()
	if err != nil {
		return nil, err
	}
	// listCheckpointFiles is ascending; reverse for descending-by-mtime.
	for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
		files[i], files[j] = files[j], files[i]
	}

	if offset > 0 {
		if offset >= len(files) {
			return []CheckpointSummary{}, nil
		}
		files = files[offset:]
	}
	if limit > 0 && limit < len(files) {
		files = files[:limit]
	}

	out := make([]CheckpointSummary, 0, len(files))
	for _, f := range files {
		out = append(out, CheckpointSummary{ID: f.id, Timestamp: f.modTime})
	}
	return out, nil
}

// GetCheckpoint loads a checkpoint by id, transparently handling the
// compressed and uncompressed on-disk forms.
func (s *Store) GetCheckpoint(id string) (*Checkpoint, error) {
	for _, gz := range []bool{false, true} {
		path := s.checkpointPath(id, gz)
		if !filestore.Exists(path) {
			continue
		}
		var cp Checkpoint
		if err := filestore.ReadJSON(path, &cp); err != nil {
			return nil, fmt.Errorf("checkpoint: get %s: %w", id, err)
		}
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: checkpoint %s", ErrNotFound, id)
}

// GetLatestCheckpoint returns the most recently created checkpoint, or
// (nil, nil) if the session has none yet.
func (s *Store) GetLatestCheckpoint() (*Checkpoint, error) {
	files, err := s.listCheckpointFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	latest := files[len(files)-1]
	return s.GetCheckpoint(latest.id)
}

// RestoreOptions govern how a checkpoint's task tree is rewritten on restore.
type RestoreOptions struct {
	CheckpointID          string
	ResetFailedTasks      bool
	ResetInProgressTasks  bool
	ValidateChecksum      bool
}

// RestoreResult reports the outcome of RestoreCheckpoint.
type RestoreResult struct {
	Checkpoint      *Checkpoint
	ResetTaskCount  int
	Warnings        []string
}

// RestoreCheckpoint loads the named checkpoint, optionally re-verifies its
// checksum, rewrites the embedded task tree per opts, and re-persists
// session.json/task-tree.json. It does not know how to interpret the
// session's own payload — that remains the caller's concrete type via
// Checkpoint.Session — but it does own the task-tree reset semantics since
// those operate purely on meshtask.Snapshot data.
func (s *Store) RestoreCheckpoint(opts RestoreOptions) (RestoreResult, error) {
	cp, err := s.GetCheckpoint(opts.CheckpointID)
	if err != nil {
		return RestoreResult{}, err
	}

	if opts.ValidateChecksum && !cp.Verify() {
		return RestoreResult{}, fmt.Errorf("%w: checkpoint %s", ErrChecksumMismatch, opts.CheckpointID)
	}
	if cp.Version != FormatVersion {
		return RestoreResult{}, fmt.Errorf("%w: checkpoint %s has version %s, core is %s", ErrVersionMismatch, opts.CheckpointID, cp.Version, FormatVersion)
	}

	var snapshots []meshtask.Snapshot
	if err := json.Unmarshal(cp.TaskTree, &snapshots); err != nil {
		return RestoreResult{}, fmt.Errorf("checkpoint: restore: unmarshal task tree: %w", err)
	}

	var warnings []string
	resetCount := 0
	for i := range snapshots {
		switch snapshots[i].Status {
		case meshtask.StatusFailed:
			if opts.ResetFailedTasks {
				warnings = append(warnings, fmt.Sprintf("task %s reset from failed to pending", snapshots[i].ID))
				snapshots[i].Status = meshtask.StatusPending
				snapshots[i].RetryCount = 0
				resetCount++
			}
		case meshtask.StatusInProgress:
			if opts.ResetInProgressTasks {
				warnings = append(warnings, fmt.Sprintf("task %s reset from in_progress to pending", snapshots[i].ID))
				snapshots[i].Status = meshtask.StatusPending
				resetCount++
			}
		}
	}

	treeJSON, err := json.Marshal(snapshots)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("checkpoint: restore: marshal task tree: %w", err)
	}
	cp.TaskTree = treeJSON

	if err := s.SaveSession(json.RawMessage(cp.Session)); err != nil {
		return RestoreResult{}, err
	}
	if err := s.SaveTaskTree(snapshots); err != nil {
		return RestoreResult{}, err
	}

	return RestoreResult{Checkpoint: cp, ResetTaskCount: resetCount, Warnings: warnings}, nil
}

// SaveTaskResult stores an opaque per-task result payload under results/.
func (s *Store) SaveTaskResult(taskID string, result any) error {
	path := filepath.Join(s.resultsDir(), taskID+".json")
	if err := filestore.WriteJSON(path, result); err != nil {
		return fmt.Errorf("checkpoint: save task result %s: %w", taskID, err)
	}
	return nil
}

// LoadTaskResult reads a per-task result payload into v.
func (s *Store) LoadTaskResult(taskID string, v any) error {
	path := filepath.Join(s.resultsDir(), taskID+".json")
	if err := filestore.ReadJSON(path, v); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return fmt.Errorf("%w: result for task %s", ErrNotFound, taskID)
		}
		return fmt.Errorf("checkpoint: load task result %s: %w", taskID, err)
	}
	return nil
}

