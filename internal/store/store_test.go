package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, dbPath)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	_, err = s.WritePDR("task.add", "h", "success", "t1", "")
	require.NoError(t, err)
	s.Close()

	s, err = New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.ListPDR("", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPDR(t *testing.T) {
	s := newTestStore(t)

	pdr, err := s.WritePDR("task.add", "abc123", "success", "task-1", "details")
	require.NoError(t, err)
	assert.NotEmpty(t, pdr.ID)

	_, err = s.WritePDR("ingest.extract", "def456", "error", "", "timeout")
	require.NoError(t, err)

	entries, err := s.ListPDR("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ingest.extract", entries[0].Action, "newest entry first")
	assert.Empty(t, entries[0].TaskID)
	assert.Equal(t, "timeout", entries[0].Details)

	entries, err = s.ListPDR("task-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc123", entries[0].InputsHash)
}

func TestListPDRLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.WritePDR("task.update", "h", "success", "", "")
		require.NoError(t, err)
	}

	entries, err := s.ListPDR("", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestExports(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.RecordExport("launch-dev-env.bat", "file", "/tmp/launch-dev-env.bat", 120, "sha")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	_, err = s.RecordExport("other.bat", "download", "", 10, "sha2")
	require.NoError(t, err)

	records, err := s.ListExports(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "other.bat", records[0].Filename, "newest export first")
	assert.Equal(t, 120, records[1].Bytes)
	assert.Equal(t, "/tmp/launch-dev-env.bat", records[1].Location)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
