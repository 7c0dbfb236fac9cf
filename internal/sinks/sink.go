// Package sinks defines the Export Sink boundary for finished launcher scripts.
package sinks

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fentz26/devlaunch/internal/script"
)

// ContentType is the MIME type used for downloaded scripts.
const ContentType = "application/x-bat"

// Sink delivers script content under a filename.
type Sink interface {
	// Name returns the sink identifier.
	Name() string

	// Export persists or delivers content and returns where it went.
	Export(ctx context.Context, content, filename string) (string, error)
}

// Filename returns the base name of filename, or the default launcher name
// when it is empty.
func Filename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return script.DefaultFilename
	}
	// Clients may send Windows style paths.
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if filename == "." || filename == "/" || filename == ".." {
		return script.DefaultFilename
	}
	return filename
}

// ServeDownload writes content as a file attachment.
func ServeDownload(w http.ResponseWriter, content, filename string) {
	filename = Filename(filename)
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(filename)))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
