package script

import (
	"strings"
	"testing"

	"github.com/fentz26/devlaunch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyScript = "@echo off\n" +
	"echo Starting Development Environments...\n" +
	"echo.\n" +
	"\n" +
	"echo All environments launched.\n" +
	"timeout /t 3 >nul\n" +
	"exit\n"

func launchLines(script string) []string {
	var out []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(line, "start ") {
			out = append(out, line)
		}
	}
	return out
}

func TestCompileEmpty(t *testing.T) {
	assert.Equal(t, emptyScript, Compile(nil))
	assert.Equal(t, emptyScript, Compile([]models.Task{}))
}

func TestCompileSingleTask(t *testing.T) {
	got := Compile([]models.Task{{ID: "1", Name: "Web", Path: `E:\site`, Command: "npm run dev"}})

	want := "@echo off\n" +
		"echo Starting Development Environments...\n" +
		"echo.\n" +
		`start "Web" powershell -NoExit -Command "cd 'E:\site'; npm run dev"` + "\n" +
		"echo All environments launched.\n" +
		"timeout /t 3 >nul\n" +
		"exit\n"
	assert.Equal(t, want, got)
}

func TestCompileIsDeterministic(t *testing.T) {
	tasks := []models.Task{
		{ID: "1", Name: "Frontend (NextJS)", Path: `E:\intell.ink\intellink-platform`, Command: "npm run dev:turbo"},
		{ID: "2", Name: "Backend (PHP)", Path: `E:\intell.ink`, Command: "php -S localhost:8080 -t backend/api/"},
	}
	assert.Equal(t, Compile(tasks), Compile(tasks))
}

func TestCompilePreservesOrder(t *testing.T) {
	t1 := models.Task{ID: "1", Name: "T1", Path: `C:\one`, Command: "one"}
	t2 := models.Task{ID: "2", Name: "T2", Path: `C:\two`, Command: "two"}
	t3 := models.Task{ID: "3", Name: "T3", Path: `C:\three`, Command: "three"}

	lines := launchLines(Compile([]models.Task{t1, t2, t3}))
	require.Len(t, lines, 3)
	assert.Equal(t, []string{Line(t1), Line(t2), Line(t3)}, lines)

	lines = launchLines(Compile([]models.Task{t1, t3}))
	assert.Equal(t, []string{Line(t1), Line(t3)}, lines)
}

func TestCompileEscapesSingleQuotesInPath(t *testing.T) {
	got := Compile([]models.Task{{Name: "App", Path: `C:\Projects\Tom's App`, Command: "dir"}})

	assert.Contains(t, got, `cd 'C:\Projects\Tom''s App'`)
	assert.Equal(t, `C:\Projects\Tom''s App`, EscapePath(`C:\Projects\Tom's App`))
	assert.Equal(t, `''''`, EscapePath(`''`))
}

func TestCompileLeavesNameAndCommandVerbatim(t *testing.T) {
	task := models.Task{Name: `a "b" & c`, Path: `C:\x`, Command: `echo "hi" & echo 100%`}

	assert.Equal(t,
		`start "a "b" & c" powershell -NoExit -Command "cd 'C:\x'; echo "hi" & echo 100%"`,
		Line(task))
}

func TestCompileEmptyFields(t *testing.T) {
	assert.Equal(t, `start "" powershell -NoExit -Command "cd ''; "`, Line(models.Task{}))
}

func TestCompileStrict(t *testing.T) {
	task := models.Task{Name: `My "App"`, Path: `C:\100%\Tom's`, Command: `echo "50%"`}

	got := CompileWith([]models.Task{task}, Options{Strict: true})
	assert.Contains(t, got,
		`start "My App" powershell -NoExit -Command "cd 'C:\100%%\Tom''s'; echo \"50%%\""`)

	// default output is untouched by the strict mode
	assert.NotEqual(t, got, Compile([]models.Task{task}))
}

func TestCompileScenario(t *testing.T) {
	tasks := []models.Task{
		{ID: "a", Name: "Web", Path: `E:\site`, Command: "npm run dev"},
		{ID: "b", Name: "DB", Path: `E:\db`, Command: "redis-server"},
	}

	lines := launchLines(Compile(tasks))
	require.Len(t, lines, 2)
	assert.Equal(t, `start "Web" powershell -NoExit -Command "cd 'E:\site'; npm run dev"`, lines[0])
	assert.Equal(t, `start "DB" powershell -NoExit -Command "cd 'E:\db'; redis-server"`, lines[1])
}
