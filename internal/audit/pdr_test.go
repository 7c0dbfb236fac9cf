package audit

import (
	"path/filepath"
	"testing"

	"github.com/fentz26/devlaunch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashInputsIsStable(t *testing.T) {
	in := map[string]string{"name": "Web", "path": `E:\site`}

	assert.Equal(t, HashInputs(in), HashInputs(in))
	assert.NotEqual(t, HashInputs(in), HashInputs(map[string]string{"name": "DB"}))
	assert.Equal(t, "hash_error", HashInputs(make(chan int)))
}

func TestPDRWriterRecord(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	w := NewPDRWriter(s)
	entry, err := w.Record("task.add", map[string]string{"name": "Web"}, "success", "task-1", "")
	require.NoError(t, err)
	assert.Equal(t, HashInputs(map[string]string{"name": "Web"}), entry.InputsHash)

	rec, err := w.RecordExport("launch-dev-env.bat", "file", "out/launch-dev-env.bat", "@echo off\n")
	require.NoError(t, err)
	assert.Equal(t, len("@echo off\n"), rec.Bytes)
	assert.Equal(t, HashContent("@echo off\n"), rec.SHA256)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	_, err := r.Record("task.add", nil, "success", "", "")
	assert.NoError(t, err)
	_, err = r.RecordExport("a.bat", "file", "", "")
	assert.NoError(t, err)
}
