// Package script compiles a task list into a Windows launcher script.
//
// The generated file is run by cmd.exe. Each task becomes one `start` line
// that opens a PowerShell window, changes into the task's directory and runs
// its command. PowerShell is started with -NoExit so the window stays open
// and output or errors remain visible.
//
// Only the path is escaped by default. Names and commands are interpolated
// verbatim, so a task containing `"`, `&`, `|` or `%` can break out of the
// intended line. This is a known injection risk kept for output
// compatibility; Options.Strict enables extra escaping.
package script

import (
	"strings"

	"github.com/fentz26/devlaunch/internal/models"
)

const (
	// DefaultFilename is the name used when an export does not specify one.
	DefaultFilename = "launch-dev-env.bat"

	// Launcher is the interpreter that hosts each task window.
	Launcher = "powershell"

	header = "@echo off\n" +
		"echo Starting Development Environments...\n" +
		"echo.\n"

	footer = "\n" +
		"echo All environments launched.\n" +
		"timeout /t 3 >nul\n" +
		"exit\n"
)

// Options tunes compilation.
type Options struct {
	// Strict drops double quotes from names, escapes double quotes in
	// commands and doubles percent signs so cmd.exe does not expand them.
	Strict bool
}

// Compile renders tasks in list order. It is deterministic and never fails.
func Compile(tasks []models.Task) string {
	return CompileWith(tasks, Options{})
}

// CompileWith renders tasks using opts.
func CompileWith(tasks []models.Task, opts Options) string {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = launchLine(t, opts)
	}
	return header + strings.Join(lines, "\n") + footer
}

// Line returns the launch line for a single task.
func Line(t models.Task) string {
	return launchLine(t, Options{})
}

func launchLine(t models.Task, opts Options) string {
	name, path, command := t.Name, EscapePath(t.Path), t.Command
	if opts.Strict {
		name = escapePercent(strings.ReplaceAll(name, `"`, ""))
		path = escapePercent(path)
		command = escapePercent(strings.ReplaceAll(command, `"`, `\"`))
	}

	var b strings.Builder
	b.WriteString(`start "`)
	b.WriteString(name)
	b.WriteString(`" `)
	b.WriteString(Launcher)
	b.WriteString(` -NoExit -Command "cd '`)
	b.WriteString(path)
	b.WriteString(`'; `)
	b.WriteString(command)
	b.WriteString(`"`)
	return b.String()
}

// EscapePath doubles single quotes so path can sit inside a PowerShell
// single-quoted string literal.
func EscapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

func escapePercent(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
