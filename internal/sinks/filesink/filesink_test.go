package filesink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWritesBytesUnchanged(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := New(fs, "out")

	content := "@echo off\r\nstart \"x\" powershell\n"
	path, err := sink.Export(context.Background(), content, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "launch-dev-env.bat"), path)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestExportStripsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := New(fs, "out")

	path, err := sink.Export(context.Background(), "x", "../../escape.bat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "escape.bat"), path)
}

func TestExportOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := New(fs, "")

	_, err := sink.Export(context.Background(), "first", "a.bat")
	require.NoError(t, err)
	_, err = sink.Export(context.Background(), "second", "a.bat")
	require.NoError(t, err)

	got, _ := afero.ReadFile(fs, "a.bat")
	assert.Equal(t, "second", string(got))
}

func TestExportCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(afero.NewMemMapFs(), "").Export(ctx, "x", "a.bat")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteTo(t *testing.T) {
	fs := afero.NewMemMapFs()
	path, err := WriteTo(context.Background(), fs, filepath.Join("a", "b", "dev.bat"), "x")
	require.NoError(t, err)

	ok, _ := afero.Exists(fs, path)
	assert.True(t, ok)
}

func TestName(t *testing.T) {
	assert.Equal(t, "file", New(nil, "").Name())
}
