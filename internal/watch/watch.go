// Package watch recompiles a task file whenever it changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/devlaunch/internal/models"
	"github.com/fentz26/devlaunch/internal/script"
	"github.com/fentz26/devlaunch/internal/sinks"
	"github.com/fentz26/devlaunch/internal/taskfile"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Event reports one compilation.
type Event struct {
	Tasks    int
	Rejected []models.Rejection
	Location string
	Err      error
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithScriptOptions sets the compiler options.
func WithScriptOptions(opts script.Options) Option {
	return func(w *Watcher) { w.opts = opts }
}

// WithFilename sets the name handed to the sink.
func WithFilename(name string) Option {
	return func(w *Watcher) { w.filename = name }
}

// OnCompile registers fn to run after every compilation.
func OnCompile(fn func(Event)) Option {
	return func(w *Watcher) { w.onCompile = fn }
}

// Watcher compiles a task file and exports the script on every change.
type Watcher struct {
	path      string
	sink      sinks.Sink
	fs        afero.Fs
	filename  string
	opts      script.Options
	debounce  time.Duration
	onCompile func(Event)
}

// New creates a Watcher for the task file at path.
func New(path string, sink sinks.Sink, opts ...Option) (*Watcher, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("task file path required")
	}
	if sink == nil {
		return nil, errors.New("export sink required")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		sink:     sink,
		fs:       afero.NewOsFs(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run compiles once, then on every change to the file, until ctx is
// cancelled. Compilation and export errors are logged and reported through
// OnCompile; they never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	// Watch the directory: editors often replace the file on save.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	log.Info().Str("file", w.path).Msg("watching task file")

	w.compile(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			w.compile(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

func (w *Watcher) compile(ctx context.Context) {
	ev := w.export(ctx)
	if ev.Err != nil {
		log.Error().Err(ev.Err).Str("file", w.path).Msg("recompile failed")
	} else {
		log.Info().
			Int("tasks", ev.Tasks).
			Int("rejected", len(ev.Rejected)).
			Str("location", ev.Location).
			Msg("script updated")
	}
	if w.onCompile != nil {
		w.onCompile(ev)
	}
}

func (w *Watcher) export(ctx context.Context) Event {
	res, err := taskfile.Compile(w.fs, w.path, w.opts)
	if err != nil {
		return Event{Err: err}
	}
	ev := Event{Tasks: len(res.Tasks), Rejected: res.Rejected}

	ev.Location, ev.Err = w.sink.Export(ctx, res.Script, sinks.Filename(w.filename))
	return ev
}
