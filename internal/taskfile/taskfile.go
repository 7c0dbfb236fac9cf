// Package taskfile reads and writes task lists stored as YAML or JSON.
//
// A task file holds either a bare list of records or a mapping with a
// "tasks" list:
//
//	tasks:
//	  - name: Backend (PHP)
//	    path: E:\intell.ink
//	    command: php -S localhost:8080 -t backend/api/
//
// Records are returned undecoded so that every one of them goes through
// the ingestion adapter, whatever its source.
package taskfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fentz26/devlaunch/internal/ingest"
	"github.com/fentz26/devlaunch/internal/models"
	"github.com/fentz26/devlaunch/internal/script"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned when a file is not a list of task records.
var ErrInvalidFile = errors.New("invalid task file")

// DefaultName is the file created by `devlaunch init`.
const DefaultName = "devlaunch.yaml"

// record is a task as stored on disk. Ids are process-local and never
// written.
type record struct {
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path" yaml:"path"`
	Command string `json:"command" yaml:"command"`
}

type document struct {
	Tasks []record `json:"tasks" yaml:"tasks"`
}

// Load reads path and returns its records as raw JSON.
func Load(fs afero.Fs, path string) ([]json.RawMessage, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return Parse(data, isJSON(path))
}

// Parse decodes file contents. YAML is a superset of JSON, so asJSON only
// selects the stricter decoder.
func Parse(data []byte, asJSON bool) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if asJSON {
		return parseJSON(data)
	}
	return parseYAML(data)
}

func parseJSON(data []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return wrapped.Tasks, nil
}

func parseYAML(data []byte) ([]json.RawMessage, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	list := root.Content[0]
	if list.Kind == yaml.MappingNode {
		list = lookup(list, "tasks")
		if list == nil {
			return nil, fmt.Errorf("%w: no tasks list", ErrInvalidFile)
		}
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: tasks must be a list", ErrInvalidFile)
	}

	records := make([]json.RawMessage, 0, len(list.Content))
	for i, item := range list.Content {
		var v interface{}
		if err := item.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidFile, i, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidFile, i, err)
		}
		records = append(records, raw)
	}
	return records, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Save writes tasks to path, as JSON when the extension is .json and YAML
// otherwise.
func Save(fs afero.Fs, path string, tasks []models.Task) error {
	doc := document{Tasks: make([]record, 0, len(tasks))}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, record{Name: t.Name, Path: t.Path, Command: t.Command})
	}

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encode task file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return afero.WriteFile(fs, path, data, 0o644)
}

// Example returns the starter task list written by `devlaunch init`.
func Example() []models.Task {
	return []models.Task{
		{
			Name:    "Frontend (NextJS)",
			Path:    `E:\intell.ink\intellink-platform`,
			Command: "npm run dev:turbo",
		},
		{
			Name:    "Backend (PHP)",
			Path:    `E:\intell.ink`,
			Command: "php -S localhost:8080 -t backend/api/",
		},
		{
			Name:    "Stripe CLI",
			Path:    `E:\intell.ink`,
			Command: "stripe listen --forward-to http://localhost:8080/webhook.php",
		},
	}
}

// Result is the outcome of compiling a task file offline.
type Result struct {
	Tasks    []models.Task
	Rejected []models.Rejection
	Script   string
}

// Compile loads path, validates its records and compiles the valid ones.
// Invalid records are reported in Result.Rejected and left out of the script.
func Compile(fs afero.Fs, path string, opts script.Options) (*Result, error) {
	raw, err := Load(fs, path)
	if err != nil {
		return nil, err
	}
	tasks, rejected := ingest.NewAdapter().Normalize(raw, nil)
	return &Result{
		Tasks:    tasks,
		Rejected: rejected,
		Script:   script.CompileWith(tasks, opts),
	}, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
