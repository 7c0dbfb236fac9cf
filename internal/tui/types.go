package tui

import "github.com/fentz26/devlaunch/internal/models"

// IngestResult mirrors the daemon's ingestion response.
type IngestResult struct {
	Added    []models.Task      `json:"added"`
	Rejected []models.Rejection `json:"rejected"`
}

// ExportResult mirrors the daemon's export response.
type ExportResult struct {
	Location string `json:"location"`
}
