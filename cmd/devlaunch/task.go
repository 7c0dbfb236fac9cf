package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/fentz26/devlaunch/internal/ingest"
	"github.com/fentz26/devlaunch/internal/models"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a task",
	Long:  `Appends a task. Without flags an interactive form is shown, prefilled with placeholder values.`,
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in launch order",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task and its launch line",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskSetCmd = &cobra.Command{
	Use:   "set [task-id] [name|path|command] [value]",
	Short: "Change one field of a task",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskSet,
}

var taskRmCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"remove"},
	Short:   "Remove a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskRm,
}

var (
	taskName    string
	taskPath    string
	taskCommand string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskSetCmd, taskRmCmd)

	taskAddCmd.Flags().StringVar(&taskName, "name", "", "Window title")
	taskAddCmd.Flags().StringVar(&taskPath, "path", "", "Working directory")
	taskAddCmd.Flags().StringVar(&taskCommand, "command", "", "Command to run")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("name") || flags.Changed("path") || flags.Changed("command") {
		// unset fields take their placeholder
		taskName = valueOrDefault(flags.Changed("name"), taskName, ingest.DefaultName)
		taskPath = valueOrDefault(flags.Changed("path"), taskPath, ingest.DefaultPath)
		taskCommand = valueOrDefault(flags.Changed("command"), taskCommand, ingest.DefaultCommand)
	} else if err := runTaskForm(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return fmt.Errorf("form: %w", err)
	}

	body := map[string]string{
		"name":    taskName,
		"path":    taskPath,
		"command": taskCommand,
	}

	resp, err := apiPost("/tasks", body)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Created task: %s\n", task.ID)
	return nil
}

func runTaskForm() error {
	taskName = ingest.DefaultName
	taskPath = ingest.DefaultPath
	taskCommand = ingest.DefaultCommand

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("Shown as the window title").
				Value(&taskName),
			huh.NewInput().
				Title("Path").
				Description("Working directory").
				Value(&taskPath),
			huh.NewInput().
				Title("Command").
				Description("Run in PowerShell inside the directory").
				Value(&taskCommand),
		),
	).Run()
}

func valueOrDefault(set bool, value, def string) string {
	if set {
		return value
	}
	return def
}

func runTaskList(cmd *cobra.Command, args []string) error {
	tasks, err := fetchTasks()
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH\tCOMMAND")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncateID(t.ID), truncate(t.Name, 30), truncate(t.Path, 40), truncate(t.Command, 50))
	}
	w.Flush()
	return nil
}

func fetchTasks() ([]models.Task, error) {
	resp, err := apiGet("/tasks")
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", task.ID)
	fmt.Printf("Name:    %s\n", task.Name)
	fmt.Printf("Path:    %s\n", task.Path)
	fmt.Printf("Command: %s\n", task.Command)
	return nil
}

func runTaskSet(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args[0])
	if err != nil {
		return err
	}
	field, err := models.ParseField(args[1])
	if err != nil {
		return fmt.Errorf("%w: %q (use name, path or command)", err, args[1])
	}

	body := map[string]string{
		"field": string(field),
		"value": args[2],
	}
	if _, err := apiPatch("/tasks/"+task.ID, body); err != nil {
		return err
	}

	fmt.Printf("Updated %s of %s\n", field, truncateID(task.ID))
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args[0])
	if err != nil {
		return err
	}
	if err := apiDelete("/tasks/" + task.ID); err != nil {
		return err
	}

	fmt.Printf("Removed task %s (%s)\n", truncateID(task.ID), task.Name)
	return nil
}

// resolveTask finds a task by full id or by a unique id prefix, as shown by
// `task list`.
func resolveTask(ref string) (*models.Task, error) {
	tasks, err := fetchTasks()
	if err != nil {
		return nil, err
	}

	var match *models.Task
	for i := range tasks {
		if tasks[i].ID == ref {
			return &tasks[i], nil
		}
		if len(ref) >= 4 && len(tasks[i].ID) > len(ref) && tasks[i].ID[:len(ref)] == ref {
			if match != nil {
				return nil, fmt.Errorf("task id %q is ambiguous", ref)
			}
			match = &tasks[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("task %q not found", ref)
	}
	return match, nil
}

// --- Helpers ---

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
