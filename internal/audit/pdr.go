// Package audit provides PDR (Process Decision Record) writing for devlaunch.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/devlaunch/internal/models"
	"github.com/fentz26/devlaunch/internal/store"
)

// Recorder journals task list mutations and exports.
type Recorder interface {
	Record(action string, inputs interface{}, outcome, taskID, details string) (*models.PDREntry, error)
	RecordExport(filename, sink, location, content string) (*models.ExportRecord, error)
}

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	store *store.Store
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s *store.Store) *PDRWriter {
	return &PDRWriter{store: s}
}

// Record writes a PDR entry for a state-mutating action.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, taskID, details string) (*models.PDREntry, error) {
	return w.store.WritePDR(action, HashInputs(inputs), outcome, taskID, details)
}

// RecordExport stores the size and digest of an exported script.
func (w *PDRWriter) RecordExport(filename, sink, location, content string) (*models.ExportRecord, error) {
	return w.store.RecordExport(filename, sink, location, len(content), HashContent(content))
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	return HashContent(string(data))
}

// HashContent returns the hex SHA256 of s.
func HashContent(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// Nop discards every record. Used by one-shot commands that have no journal.
type Nop struct{}

// Record does nothing.
func (Nop) Record(string, interface{}, string, string, string) (*models.PDREntry, error) {
	return nil, nil
}

// RecordExport does nothing.
func (Nop) RecordExport(string, string, string, string) (*models.ExportRecord, error) {
	return nil, nil
}
