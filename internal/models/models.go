// Package models defines the core domain types for devlaunch.
package models

import (
	"errors"
	"time"
)

// ErrUnknownField is returned when a field name is not one of name, path or command.
var ErrUnknownField = errors.New("unknown task field")

// Task is one named (directory, command) pair launched in its own console window.
type Task struct {
	ID      string `json:"id" yaml:"-"`
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path" yaml:"path"`
	Command string `json:"command" yaml:"command"`
}

// Field names one editable attribute of a Task.
type Field string

const (
	FieldName    Field = "name"
	FieldPath    Field = "path"
	FieldCommand Field = "command"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldName, FieldPath, FieldCommand}

// ParseField converts a user supplied field name. "cmd" is accepted as
// shorthand for command.
func ParseField(s string) (Field, error) {
	switch s {
	case "name", "title":
		return FieldName, nil
	case "path", "dir":
		return FieldPath, nil
	case "command", "cmd":
		return FieldCommand, nil
	}
	return "", ErrUnknownField
}

// Value returns the current value of f.
func (t Task) Value(f Field) string {
	switch f {
	case FieldName:
		return t.Name
	case FieldPath:
		return t.Path
	case FieldCommand:
		return t.Command
	}
	return ""
}

// With returns a copy of t with field f set to value.
func (t Task) With(f Field, value string) (Task, error) {
	switch f {
	case FieldName:
		t.Name = value
	case FieldPath:
		t.Path = value
	case FieldCommand:
		t.Command = value
	default:
		return t, ErrUnknownField
	}
	return t, nil
}

// Candidate is a raw task record of unknown provenance. Pointer fields keep
// "missing" distinguishable from "empty".
type Candidate struct {
	Name    *string `json:"name" yaml:"name" validate:"required"`
	Path    *string `json:"path" yaml:"path" validate:"required"`
	Command *string `json:"command" yaml:"command" validate:"required"`
}

// NewCandidate builds a fully populated candidate.
func NewCandidate(name, path, command string) Candidate {
	return Candidate{Name: &name, Path: &path, Command: &command}
}

// Rejection describes a candidate dropped during ingestion.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// IngestStatus reports the state of the most recent AI ingestion.
type IngestStatus string

const (
	IngestIdle    IngestStatus = "idle"
	IngestLoading IngestStatus = "loading"
	IngestSuccess IngestStatus = "success"
	IngestError   IngestStatus = "error"
)

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExportRecord is one delivered launcher script.
type ExportRecord struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Sink      string    `json:"sink"`
	Location  string    `json:"location"`
	Bytes     int       `json:"bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}
