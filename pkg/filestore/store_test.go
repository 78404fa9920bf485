package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteJSON_ReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")

	require.NoError(t, WriteJSON(path, sample{Name: "task-1", Count: 3}))

	var got sample
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, sample{Name: "task-1", Count: 3}, got)
}

func TestWriteJSON_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	require.NoError(t, WriteJSON(path, sample{Name: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}

func TestWriteJSONGZ_TransparentDecompress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json.gz")

	require.NoError(t, WriteJSONGZ(path, sample{Name: "cp-1", Count: 42}))

	var got sample
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, sample{Name: "cp-1", Count: 42}, got)
}

func TestReadJSON_MissingFile(t *testing.T) {
	dir := t.TempDir()
	var got sample
	err := ReadJSON(filepath.Join(dir, "missing.json"), &got)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestChecksum_Deterministic(t *testing.T) {
	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	c := Checksum([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestChecksumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0644))

	sum, err := ChecksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, Checksum([]byte("payload")), sum)
}

func TestList_PatternAndPagination(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json", "c.txt", "d.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	result, err := List(dir, ListOptions{Pattern: "*.json"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, []string{"a.json", "b.json", "d.json"}, result.Entries)

	page, err := List(dir, ListOptions{Pattern: "*.json", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"d.json"}, page.Entries)
}

func TestList_PageBeyondRangeReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0644))

	result, err := List(dir, ListOptions{Page: 5, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Empty(t, result.Entries)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandHome("~/meshseeks/sessions")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "meshseeks/sessions"), expanded)

	unchanged, err := ExpandHome("/absolute/path")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/path", unchanged)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.json")
	assert.False(t, Exists(path))
	require.NoError(t, WriteJSON(path, sample{Name: "x"}))
	assert.True(t, Exists(path))
}

func TestRemove_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, Remove(filepath.Join(dir, "nope.json")))
}
