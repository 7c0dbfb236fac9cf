package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "devlaunch.log")

	l, closer, err := New("info", path)
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str("task_id", "abc").Msg("visible")
	closer()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"task_id":"abc"`)
	assert.Contains(t, out, `"message":"visible"`)
	assert.False(t, strings.Contains(out, "hidden"))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}

func TestSetupInstallsLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	closer, err := Setup("warn", filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
