package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrEmptyInstruction = errors.New("instruction is empty")
	ErrIngestInProgress = errors.New("an ingestion is already in progress")
	ErrIngestFailed     = errors.New("ingestion failed")
	ErrNoSink           = errors.New("no export sink configured")
)
