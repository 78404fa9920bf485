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

// Package checkpoint implements durable, checksum-validated snapshots of a
// swarm session: session metadata, task tree, agent states and (optionally)
// the context store, written atomically under a per-session directory.
//
// Callers outside this package own the concrete shape of session/task-tree/
// agent-state data; this package only needs it to be JSON-marshalable, so it
// stores each section as a json.RawMessage and leaves unmarshaling into
// concrete types to the caller. This keeps the checkpoint store from
// importing the session, pool or task packages (which would otherwise import
// checkpoint back to persist themselves).
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// FormatVersion is embedded in every checkpoint and compared on restore.
const FormatVersion = "1.0.0"

// Trigger identifies what caused a checkpoint to be taken.
type Trigger string

const (
	TriggerAuto     Trigger = "auto"
	TriggerManual   Trigger = "manual"
	TriggerShutdown Trigger = "shutdown"
	TriggerError    Trigger = "error"
)

// Checkpoint is an immutable snapshot of one session at one instant.
type Checkpoint struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"sessionId"`
	Timestamp   time.Time       `json:"timestamp"`
	Trigger     Trigger         `json:"trigger"`
	Description string          `json:"description,omitempty"`

	Session      json.RawMessage `json:"session"`
	TaskTree     json.RawMessage `json:"taskTree"`
	AgentStates  json.RawMessage `json:"agentStates"`
	ContextStore json.RawMessage `json:"contextStore,omitempty"`

	Checksum  string         `json:"checksum"`
	Version   string         `json:"version"`
	SizeBytes int64          `json:"sizeBytes"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateOptions govern what goes into a newly created checkpoint.
type CreateOptions struct {
	Trigger        Trigger
	Description    string
	IncludeContext bool
	Metadata       map[string]any
}

// New builds a Checkpoint from already-serializable session-level data. The
// checksum is computed over (sessionId, timestamp, taskTree, agentStates)
// before it is embedded, matching the spec's integrity invariant.
//
// sessionData, taskTreeData, agentStatesData and contextData may be any
// JSON-marshalable value; contextData is ignored (an empty object is stored)
// when opts.IncludeContext is false.
func New(id, sessionID string, sessionData, taskTreeData, agentStatesData, contextData any, opts CreateOptions) (*Checkpoint, error) {
	sessionJSON, err := json.Marshal(sessionData)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: marshal session: %w", err)
	}
	treeJSON, err := json.Marshal(taskTreeData)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: marshal task tree: %w", err)
	}
	agentsJSON, err := json.Marshal(agentStatesData)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: marshal agent states: %w", err)
	}

	var contextJSON json.RawMessage = []byte("{}")
	if opts.IncludeContext {
		contextJSON, err = json.Marshal(contextData)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: marshal context store: %w", err)
		}
	}

	timestamp := time.Now()
	checksum := computeChecksum(sessionID, timestamp, treeJSON, agentsJSON)

	cp := &Checkpoint{
		ID:           id,
		SessionID:    sessionID,
		Timestamp:    timestamp,
		Trigger:      opts.Trigger,
		Description:  opts.Description,
		Session:      sessionJSON,
		TaskTree:     treeJSON,
		AgentStates:  agentsJSON,
		ContextStore: contextJSON,
		Checksum:     checksum,
		Version:      FormatVersion,
		Metadata:     opts.Metadata,
	}

	full, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: marshal checkpoint: %w", err)
	}
	cp.SizeBytes = int64(len(full))
	return cp, nil
}

// computeChecksum hashes (sessionId, timestamp, taskTree, agentStates) — the
// exact tuple named in the spec's Checkpoint integrity invariant — and must
// be recomputed identically by Verify.
func computeChecksum(sessionID string, timestamp time.Time, taskTree, agentStates json.RawMessage) string {
	h := sha256.New()
	h.Write([]byte(sessionID))
	h.Write([]byte(timestamp.Format(time.RFC3339Nano)))
	h.Write(taskTree)
	h.Write(agentStates)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the checksum over the checkpoint's embedded fields and
// compares it to the stored value.
func (c *Checkpoint) Verify() bool {
	return computeChecksum(c.SessionID, c.Timestamp, c.TaskTree, c.AgentStates) == c.Checksum
}
