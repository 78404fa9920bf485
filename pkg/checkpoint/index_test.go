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
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "index.db") + "?cache=shared"
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx, err := NewIndex(db, "sqlite3")
	require.NoError(t, err)
	return idx
}

func TestNewIndex_RejectsNilDB(t *testing.T) {
	_, err := NewIndex(nil, "sqlite")
	require.Error(t, err)
}

func TestNewIndex_RejectsUnsupportedDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewIndex(db, "oracle")
	require.Error(t, err)
}

func TestIndex_RecordAndList(t *testing.T) {
	idx := openTestIndex(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, idx.Record(IndexEntry{
		SessionID: "sess-1", CheckpointID: "cp-1", Trigger: "auto",
		CreatedAt: now, SizeBytes: 100, Compressed: false, Path: "/a",
	}))
	require.NoError(t, idx.Record(IndexEntry{
		SessionID: "sess-1", CheckpointID: "cp-2", Trigger: "manual",
		CreatedAt: now.Add(time.Minute), SizeBytes: 200, Compressed: true, Path: "/b",
	}))
	require.NoError(t, idx.Record(IndexEntry{
		SessionID: "sess-2", CheckpointID: "cp-3", Trigger: "auto",
		CreatedAt: now, SizeBytes: 50, Compressed: false, Path: "/c",
	}))

	entries, err := idx.List(context.Background(), "sess-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first
	require.Equal(t, "cp-2", entries[0].CheckpointID)
	require.Equal(t, "cp-1", entries[1].CheckpointID)
	require.True(t, entries[0].Compressed)
	require.Equal(t, int64(200), entries[0].SizeBytes)
}

func TestIndex_RecordUpsertsOnConflict(t *testing.T) {
	idx := openTestIndex(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, idx.Record(IndexEntry{
		SessionID: "sess-1", CheckpointID: "cp-1", Trigger: "auto",
		CreatedAt: now, SizeBytes: 100, Compressed: false, Path: "/a",
	}))
	require.NoError(t, idx.Record(IndexEntry{
		SessionID: "sess-1", CheckpointID: "cp-1", Trigger: "manual",
		CreatedAt: now, SizeBytes: 999, Compressed: true, Path: "/a-updated",
	}))

	entries, err := idx.List(context.Background(), "sess-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "manual", entries[0].Trigger)
	require.Equal(t, int64(999), entries[0].SizeBytes)
	require.Equal(t, "/a-updated", entries[0].Path)
}

func TestIndex_ListRespectsLimitAndOffset(t *testing.T) {
	idx := openTestIndex(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Record(IndexEntry{
			SessionID: "sess-1", CheckpointID: string(rune('a' + i)),
			Trigger: "auto", CreatedAt: base.Add(time.Duration(i) * time.Hour),
			SizeBytes: 1, Path: "/x",
		}))
	}

	entries, err := idx.List(context.Background(), "sess-1", 2, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestIndex_Rebuild(t *testing.T) {
	idx := openTestIndex(t)
	now := time.Now()
	require.NoError(t, idx.Record(IndexEntry{SessionID: "sess-1", CheckpointID: "stale", CreatedAt: now, Path: "/stale"}))

	err := idx.Rebuild(context.Background(), "sess-1", []IndexEntry{
		{SessionID: "sess-1", CheckpointID: "fresh-1", CreatedAt: now, Path: "/fresh-1"},
		{SessionID: "sess-1", CheckpointID: "fresh-2", CreatedAt: now.Add(time.Minute), Path: "/fresh-2"},
	})
	require.NoError(t, err)

	entries, err := idx.List(context.Background(), "sess-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEqual(t, "stale", e.CheckpointID)
	}
}
