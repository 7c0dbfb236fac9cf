// Package tui provides the interactive terminal UI for devlaunch.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/devlaunch/internal/models"
)

// StatusResetDelay is how long a finished ingestion stays on screen.
const StatusResetDelay = 2 * time.Second

// RefreshInterval is how often the task list is re-read, so edits made from
// the CLI show up.
const RefreshInterval = 2 * time.Second

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// App is the main TUI application model.
type App struct {
	client       *Client
	tasks        []models.Task
	script       string
	selectedIdx  int
	input        textinput.Model
	viewport     viewport.Model
	width        int
	height       int
	message      string
	status       models.IngestStatus
	statusGen    int
	resetAfter   time.Duration
	daemonOnline bool
	suggestions  *Suggestions
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	ti := textinput.New()
	ti.Placeholder = "add <name> | set <field> <value> | rm | ai <instruction> | export [file]"
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = 80

	vp := viewport.New(80, 10)

	return &App{
		client:      NewClient(apiAddr),
		input:       ti,
		viewport:    vp,
		status:      models.IngestIdle,
		resetAfter:  StatusResetDelay,
		suggestions: NewSuggestions(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.refresh(),
		a.checkDaemon(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "esc":
			a.input.SetValue("")
			a.suggestions.Update("")
			return a, nil

		case "up":
			if a.suggestions.IsVisible() {
				a.suggestions.Prev()
			} else if a.selectedIdx > 0 {
				a.selectedIdx--
			}
			return a, nil

		case "down":
			if a.suggestions.IsVisible() {
				a.suggestions.Next()
			} else if a.selectedIdx < len(a.tasks)-1 {
				a.selectedIdx++
			}
			return a, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd

		case "tab":
			a.acceptSuggestion()
			return a, nil

		case "enter":
			if a.acceptSuggestion() {
				return a, nil
			}
			input := strings.TrimSpace(a.input.Value())
			if input != "" {
				a.input.SetValue("")
				a.suggestions.Update("")
				return a, a.executeCommand(input)
			}
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6
		a.viewport.Width = msg.Width - 4
		a.viewport.Height = max(msg.Height/2-4, 3)

	case stateLoadedMsg:
		a.daemonOnline = true
		a.tasks = msg.tasks
		if a.selectedIdx >= len(a.tasks) {
			a.selectedIdx = max(0, len(a.tasks)-1)
		}
		if msg.script != a.script {
			a.script = msg.script
			a.viewport.SetContent(msg.script)
		}

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case tickMsg:
		return a, tea.Batch(a.refresh(), a.tickCmd())

	case commandResultMsg:
		a.message = msg.message
		return a, a.refresh()

	case ingestDoneMsg:
		return a, a.finishIngest(msg)

	case statusResetMsg:
		if msg.gen == a.statusGen {
			a.status = models.IngestIdle
		}
		return a, nil

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		if msg.offline {
			a.daemonOnline = false
		}
	}

	// Update input
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	// Update suggestions based on input
	a.suggestions.Update(a.input.Value())
	if strings.HasPrefix(a.input.Value(), "@") {
		a.suggestions.SetTasks(a.tasks)
	}

	return a, tea.Batch(cmds...)
}

// acceptSuggestion applies the highlighted suggestion. Commands are copied
// into the input; task references move the selection.
func (a *App) acceptSuggestion() bool {
	if !a.suggestions.IsVisible() {
		return false
	}
	selected := a.suggestions.Selected()
	if selected == nil {
		return false
	}

	if selected.Type == "task" {
		for i, t := range a.tasks {
			if t.ID == selected.TaskID {
				a.selectedIdx = i
				break
			}
		}
		a.input.SetValue("")
	} else {
		a.input.SetValue(selected.Text + " ")
		a.input.CursorEnd()
	}
	a.suggestions.Update("")
	return true
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("devlaunch")
	header += "  " + daemonStatus
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[%d tasks]", len(a.tasks)))
	if s := a.renderIngestStatus(); s != "" {
		header += "  " + s
	}

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	listHeight := a.height - a.viewport.Height - 12
	if listHeight < 3 {
		listHeight = 3
	}
	b.WriteString(a.renderTaskList(listHeight))
	b.WriteString("\n")

	previewTitle := mutedStyle.Render(fmt.Sprintf("Preview (%d%%)", int(a.viewport.ScrollPercent()*100)))
	b.WriteString(previewTitle + "\n")
	b.WriteString(panelStyle.Render(a.viewport.View()))

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	// Input box
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	// Suggestions dropdown (if visible) - renders BELOW input
	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	status := fmt.Sprintf(" Tasks: %d | ↑↓:select | PgUp/PgDn:preview | /:commands | @:tasks | Ctrl+C:quit", len(a.tasks))
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) renderIngestStatus() string {
	switch a.status {
	case models.IngestLoading:
		return lipgloss.NewStyle().Foreground(warningColor).Render("◐ generating…")
	case models.IngestSuccess:
		return lipgloss.NewStyle().Foreground(successColor).Render("✓ tasks added")
	case models.IngestError:
		return lipgloss.NewStyle().Foreground(errorColor).Render("✗ generation failed")
	}
	return ""
}

func (a *App) renderTaskList(height int) string {
	if len(a.tasks) == 0 {
		return "\n  No tasks yet. Type: add <name>, or ai <what to start>.\n"
	}

	var lines []string
	for i, task := range a.tasks {
		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("> %s", task.Name)))
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("      %s", task.Path)))
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("      $ %s", task.Command)))
		} else {
			lines = append(lines, taskItemStyle.Render(fmt.Sprintf("  %s  %s", task.Name, mutedStyle.Render(task.Path))))
		}
	}

	// Limit visible lines
	if len(lines) > height {
		start := a.selectedIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func (a *App) selectedTask() (models.Task, bool) {
	if len(a.tasks) == 0 || a.selectedIdx >= len(a.tasks) {
		return models.Task{}, false
	}
	return a.tasks[a.selectedIdx], true
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		tasks, err := a.client.ListTasks()
		if err != nil {
			return errMsg{err: err, offline: true}
		}
		script, err := a.client.Script()
		if err != nil {
			return errMsg{err: err, offline: true}
		}
		return stateLoadedMsg{tasks: tasks, script: script}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, err := a.client.CheckHealth()
		return daemonStatusMsg{online: err == nil && ok}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// finishIngest records the outcome of an ingestion and schedules the status
// to fall back to idle.
func (a *App) finishIngest(msg ingestDoneMsg) tea.Cmd {
	a.statusGen++
	gen := a.statusGen

	if msg.err != nil {
		a.status = models.IngestError
		a.message = "Error: " + msg.err.Error()
	} else {
		a.status = models.IngestSuccess
		a.message = fmt.Sprintf("✓ Added %d tasks", len(msg.result.Added))
		if n := len(msg.result.Rejected); n > 0 {
			a.message += fmt.Sprintf(", skipped %d incomplete", n)
		}
	}

	reset := tea.Tick(a.resetAfter, func(time.Time) tea.Msg {
		return statusResetMsg{gen: gen}
	})
	return tea.Batch(reset, a.refresh())
}

// splitArgs splits the first n-1 words off s and returns the rest verbatim.
func splitArgs(s string, n int) []string {
	var parts []string
	s = strings.TrimSpace(s)
	for len(parts) < n-1 && s != "" {
		word, rest, _ := strings.Cut(s, " ")
		parts = append(parts, word)
		s = strings.TrimLeft(rest, " ")
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

func (a *App) executeCommand(input string) tea.Cmd {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	parts := splitArgs(input, 2)
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	rest := ""
	if len(parts) > 1 {
		rest = parts[1]
	}

	switch cmd {
	case "q", "quit", "exit":
		return tea.Quit

	case "ai", "generate":
		if rest == "" {
			return result("Usage: ai <instruction>")
		}
		if a.status == models.IngestLoading {
			return result("Generation already running")
		}
		a.status = models.IngestLoading
		a.statusGen++
		return func() tea.Msg {
			res, err := a.client.Ingest(rest)
			return ingestDoneMsg{result: res, err: err}
		}
	}

	task, hasTask := a.selectedTask()

	return func() tea.Msg {
		switch cmd {
		case "add", "new":
			created, err := a.client.CreateTask(rest)
			if err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Added %s", created.Name)}

		case "set":
			args := splitArgs(rest, 2)
			if len(args) < 1 {
				return commandResultMsg{"Usage: set <name|path|command> <value>"}
			}
			if !hasTask {
				return commandResultMsg{"No task selected"}
			}
			field, err := models.ParseField(args[0])
			if err != nil {
				return commandResultMsg{fmt.Sprintf("Error: unknown field %q (use name, path or command)", args[0])}
			}
			value := ""
			if len(args) > 1 {
				value = args[1]
			}
			if _, err := a.client.UpdateTask(task.ID, string(field), value); err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Updated %s", field)}

		case "rm", "remove", "delete":
			if !hasTask {
				return commandResultMsg{"No task selected"}
			}
			if err := a.client.DeleteTask(task.ID); err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Removed %s", task.Name)}

		case "export", "save":
			location, err := a.client.Export(rest)
			if err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Wrote %s", location)}

		default:
			return commandResultMsg{fmt.Sprintf("Unknown: %s (try: add, set, rm, ai, export)", cmd)}
		}
	}
}

func result(message string) tea.Cmd {
	return func() tea.Msg { return commandResultMsg{message} }
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err     error
	offline bool
}

type stateLoadedMsg struct {
	tasks  []models.Task
	script string
}

type ingestDoneMsg struct {
	result *IngestResult
	err    error
}

type statusResetMsg struct {
	gen int
}

type daemonStatusMsg struct {
	online bool
}

type tickMsg time.Time
