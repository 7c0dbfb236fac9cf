// Package extract defines the boundary to the capability that turns a
// free-text instruction into candidate task records.
package extract

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrExtraction is matched by every failure from an Extractor.
	ErrExtraction = errors.New("extraction failed")
	// ErrMissingAPIKey is returned when no credentials are configured.
	ErrMissingAPIKey = fmt.Errorf("%w: api key is missing", ErrExtraction)
)

// Extractor turns an instruction into raw response text, expected to be a
// JSON array of {name, path, command} records.
type Extractor interface {
	// Name returns the provider identifier.
	Name() string

	// Extract performs one request for instruction.
	Extract(ctx context.Context, instruction string) (string, error)
}

// Error wraps a provider failure.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s extraction: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrExtraction.
func (e *Error) Is(target error) bool { return target == ErrExtraction }

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, instruction string) (string, error)

// Name returns "func".
func (f Func) Name() string { return "func" }

// Extract calls f.
func (f Func) Extract(ctx context.Context, instruction string) (string, error) {
	text, err := f(ctx, instruction)
	if err != nil && !errors.Is(err, ErrExtraction) {
		return "", &Error{Provider: f.Name(), Err: err}
	}
	return text, err
}
