// Package filesink writes launcher scripts to a directory.
package filesink

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fentz26/devlaunch/internal/sinks"
	"github.com/spf13/afero"
)

// FileSink implements sinks.Sink on an afero filesystem.
type FileSink struct {
	fs  afero.Fs
	dir string
}

// New creates a FileSink writing into dir. An empty dir means the current
// directory.
func New(fs afero.Fs, dir string) *FileSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSink{fs: fs, dir: dir}
}

// Name returns the sink identifier.
func (f *FileSink) Name() string {
	return "file"
}

// Export writes content byte for byte to dir/filename.
func (f *FileSink) Export(ctx context.Context, content, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.dir != "" {
		if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	path := filepath.Join(f.dir, sinks.Filename(filename))
	if err := afero.WriteFile(f.fs, path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// WriteTo writes content to an explicit path, creating parent directories.
// Used when the caller already chose a full output path.
func WriteTo(ctx context.Context, fs afero.Fs, path, content string) (string, error) {
	return New(fs, filepath.Dir(path)).Export(ctx, content, filepath.Base(path))
}
