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
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// IndexEntry is one row of the checkpoint index: enough metadata to answer
// "list/latest" queries without touching the checkpoint's JSON payload.
type IndexEntry struct {
	SessionID    string
	CheckpointID string
	Trigger      string
	CreatedAt    time.Time
	SizeBytes    int64
	Compressed   bool
	Path         string
}

const createIndexTableSQL = `
CREATE TABLE IF NOT EXISTS checkpoint_index (
    session_id VARCHAR(255) NOT NULL,
    checkpoint_id VARCHAR(255) NOT NULL,
    trigger_kind VARCHAR(32) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    size_bytes BIGINT NOT NULL,
    compressed BOOLEAN NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (session_id, checkpoint_id)
)`

const createIndexSessionIdxSQL = `
CREATE INDEX IF NOT EXISTS idx_checkpoint_index_session_created ON checkpoint_index(session_id, created_at)`

// Index is the optional SQL-backed acceleration layer over the checkpoint
// directory. It is purely a speed optimization: the JSON files under
// checkpoints/ remain the source of truth, and a missing or corrupt index
// can always be rebuilt by re-scanning the directory (see Rebuild). Every
// Store method that consults the index falls back to directory scanning
// when idx is nil, so callers may simply omit it.
type Index struct {
	db      *sql.DB
	dialect string
}

// NewIndex opens (and migrates) a checkpoint index backed by db. dialect is
// one of "sqlite", "postgres", "mysql" ("sqlite3" is normalized to "sqlite"
// to match the driver name convention used elsewhere in the stack).
func NewIndex(db *sql.DB, dialect string) (*Index, error) {
	if db == nil {
		return nil, fmt.Errorf("checkpoint: index requires a database connection")
	}
	normalized := dialect
	if dialect == "sqlite3" {
		normalized = "sqlite"
	}
	switch normalized {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("checkpoint: unsupported index dialect %q (supported: postgres, mysql, sqlite)", dialect)
	}

	idx := &Index{db: db, dialect: normalized}
	if err := idx.initSchema(); err != nil {
		return nil, fmt.Errorf("checkpoint: initialize index schema: %w", err)
	}
	return idx, nil
}

func (idx *Index) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := idx.db.ExecContext(ctx, createIndexTableSQL); err != nil {
		return fmt.Errorf("create checkpoint_index table: %w", err)
	}
	if _, err := idx.db.ExecContext(ctx, createIndexSessionIdxSQL); err != nil {
		return fmt.Errorf("create checkpoint_index session index: %w", err)
	}
	return nil
}

// Record upserts one checkpoint's metadata into the index.
func (idx *Index) Record(entry IndexEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
INSERT INTO checkpoint_index (session_id, checkpoint_id, trigger_kind, created_at, size_bytes, compressed, path)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    trigger_kind = VALUES(trigger_kind),
    created_at = VALUES(created_at),
    size_bytes = VALUES(size_bytes),
    compressed = VALUES(compressed),
    path = VALUES(path)
`
	switch idx.dialect {
	case "postgres":
		query = `
INSERT INTO checkpoint_index (session_id, checkpoint_id, trigger_kind, created_at, size_bytes, compressed, path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, checkpoint_id) DO UPDATE SET
    trigger_kind = EXCLUDED.trigger_kind,
    created_at = EXCLUDED.created_at,
    size_bytes = EXCLUDED.size_bytes,
    compressed = EXCLUDED.compressed,
    path = EXCLUDED.path
`
	case "sqlite":
		query = `
INSERT INTO checkpoint_index (session_id, checkpoint_id, trigger_kind, created_at, size_bytes, compressed, path)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id, checkpoint_id) DO UPDATE SET
    trigger_kind = excluded.trigger_kind,
    created_at = excluded.created_at,
    size_bytes = excluded.size_bytes,
    compressed = excluded.compressed,
    path = excluded.path
`
	}

	_, err := idx.db.ExecContext(ctx, query,
		entry.SessionID, entry.CheckpointID, entry.Trigger,
		entry.CreatedAt, entry.SizeBytes, entry.Compressed, entry.Path)
	if err != nil {
		return fmt.Errorf("record checkpoint index entry: %w", err)
	}
	return nil
}

// List returns index entries for a session ordered by created_at descending.
func (idx *Index) List(ctx context.Context, sessionID string, limit, offset int) ([]IndexEntry, error) {
	query := `
SELECT session_id, checkpoint_id, trigger_kind, created_at, size_bytes, compressed, path
FROM checkpoint_index
WHERE session_id = ?
ORDER BY created_at DESC
LIMIT ? OFFSET ?
`
	if idx.dialect == "postgres" {
		query = `
SELECT session_id, checkpoint_id, trigger_kind, created_at, size_bytes, compressed, path
FROM checkpoint_index
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	}
	if limit <= 0 {
		limit = 1 << 30
	}

	rows, err := idx.db.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint index entries: %w", err)
	}
	defer rows.Close()

	var out []IndexEntry
	for rows.Next() {
		var e IndexEntry
		if err := rows.Scan(&e.SessionID, &e.CheckpointID, &e.Trigger, &e.CreatedAt, &e.SizeBytes, &e.Compressed, &e.Path); err != nil {
			return nil, fmt.Errorf("scan checkpoint index row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Rebuild clears and repopulates the index for sessionID from the entries
// discovered on disk, used when the index is missing, corrupt, or simply
// out of sync with the directory it accelerates.
func (idx *Index) Rebuild(ctx context.Context, sessionID string, entries []IndexEntry) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	delQuery := `DELETE FROM checkpoint_index WHERE session_id = ?`
	if idx.dialect == "postgres" {
		delQuery = `DELETE FROM checkpoint_index WHERE session_id = $1`
	}
	if _, err := tx.ExecContext(ctx, delQuery, sessionID); err != nil {
		return fmt.Errorf("clear existing index entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index clear: %w", err)
	}
	for _, e := range entries {
		if err := idx.Record(e); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}
