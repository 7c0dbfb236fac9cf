package taskfile

import (
	"strings"
	"testing"

	"github.com/fentz26/devlaunch/internal/script"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := `tasks:
  - name: Backend (PHP)
    path: E:\intell.ink
    command: php -S localhost:8080 -t backend/api/
  - name: Stripe CLI
    path: E:\intell.ink
    command: stripe listen
`
	require.NoError(t, afero.WriteFile(fs, "devlaunch.yaml", []byte(data), 0o644))

	raw, err := Load(fs, "devlaunch.yaml")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.JSONEq(t, `{"name":"Backend (PHP)","path":"E:\\intell.ink","command":"php -S localhost:8080 -t backend/api/"}`, string(raw[0]))
}

func TestLoadBareList(t *testing.T) {
	raw, err := Parse([]byte("- name: a\n  path: b\n  command: c\n"), false)
	require.NoError(t, err)
	require.Len(t, raw, 1)
}

func TestLoadJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "tasks.json", []byte(`{"tasks":[{"name":"a","path":"b","command":"c"}]}`), 0o644))

	raw, err := Load(fs, "tasks.json")
	require.NoError(t, err)
	require.Len(t, raw, 1)

	raw, err = Parse([]byte(`[{"name":"a"},{"name":"b"}]`), true)
	require.NoError(t, err)
	assert.Len(t, raw, 2)
}

func TestLoadEmptyFile(t *testing.T) {
	raw, err := Parse([]byte("  \n"), false)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestLoadInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"scalar":    "just text",
		"no tasks":  "other: 1",
		"tasks map": "tasks:\n  a: b\n",
		"bad yaml":  "tasks: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data), false)
			assert.ErrorIs(t, err, ErrInvalidFile)
		})
	}

	_, err := Parse([]byte(`{"tasks": 3}`), true)
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "missing.yaml")
	assert.Error(t, err)
}

func TestSaveWritesLoadableFile(t *testing.T) {
	for _, path := range []string{"out/devlaunch.yaml", "out/devlaunch.json"} {
		t.Run(path, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, Save(fs, path, Example()))

			data, err := afero.ReadFile(fs, path)
			require.NoError(t, err)
			assert.NotRegexp(t, `\bid\b`, string(data))

			res, err := Compile(fs, path, script.Options{})
			require.NoError(t, err)
			assert.Empty(t, res.Rejected)
			require.Len(t, res.Tasks, 3)
			for i, want := range Example() {
				assert.Equal(t, want.Name, res.Tasks[i].Name)
				assert.Equal(t, want.Path, res.Tasks[i].Path)
				assert.Equal(t, want.Command, res.Tasks[i].Command)
			}
		})
	}
}

func TestCompileSkipsInvalidRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := `tasks:
  - name: Web
    path: C:\web
    command: npm start
  - name: 42
    path: C:\x
    command: x
  - name: No command
    path: C:\y
`
	require.NoError(t, afero.WriteFile(fs, "devlaunch.yaml", []byte(data), 0o644))

	res, err := Compile(fs, "devlaunch.yaml", script.Options{})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 1, res.Rejected[0].Index)
	assert.Equal(t, "name is number, not a string", res.Rejected[0].Reason)
	assert.Equal(t, 2, res.Rejected[1].Index)

	assert.Equal(t, 1, strings.Count(res.Script, "start \""))
	assert.Contains(t, res.Script, `start "Web" powershell -NoExit -Command "cd 'C:\web'; npm start"`)
}

func TestExampleMatchesStarterTasks(t *testing.T) {
	ex := Example()
	require.Len(t, ex, 3)
	assert.Equal(t, "Frontend (NextJS)", ex[0].Name)
	assert.Equal(t, "Stripe CLI", ex[2].Name)
	for _, task := range ex {
		assert.Empty(t, task.ID)
	}
}
