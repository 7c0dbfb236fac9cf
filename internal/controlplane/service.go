// Package controlplane owns the task list and serves it over HTTP.
package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fentz26/devlaunch/internal/audit"
	"github.com/fentz26/devlaunch/internal/extract"
	"github.com/fentz26/devlaunch/internal/ingest"
	"github.com/fentz26/devlaunch/internal/metrics"
	"github.com/fentz26/devlaunch/internal/models"
	"github.com/fentz26/devlaunch/internal/script"
	"github.com/fentz26/devlaunch/internal/sinks"
	"github.com/fentz26/devlaunch/internal/tasklist"
	"github.com/rs/zerolog/log"
)

// Snapshot is the derived state published after every mutation.
type Snapshot struct {
	Revision uint64        `json:"revision"`
	Tasks    []models.Task `json:"tasks"`
	Script   string        `json:"script"`
}

// IngestResult reports the outcome of one ingestion batch.
type IngestResult struct {
	Added    []models.Task      `json:"added"`
	Rejected []models.Rejection `json:"rejected"`
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics reports to m instead of the default registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithScriptOptions sets the compiler options used for the preview.
func WithScriptOptions(opts script.Options) Option {
	return func(s *Service) { s.scriptOpts = opts }
}

// WithAdapter replaces the ingestion adapter.
func WithAdapter(a *ingest.Adapter) Option {
	return func(s *Service) { s.adapter = a }
}

// WithStatusReset returns the ingestion status to idle d after a batch
// finishes. Zero keeps the final status until the next batch.
func WithStatusReset(d time.Duration) Option {
	return func(s *Service) { s.statusReset = d }
}

// Service is the single owner of the task list. Every mutation is applied
// under one lock and followed by a full recompilation of the script.
type Service struct {
	pdr       audit.Recorder
	extractor extract.Extractor
	adapter   *ingest.Adapter
	metrics   *metrics.Metrics

	scriptOpts  script.Options
	statusReset time.Duration

	mu       sync.Mutex
	list     *tasklist.List
	script   string
	revision uint64

	// notifyMu keeps subscriber callbacks in revision order.
	notifyMu    sync.Mutex
	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int

	ingesting   atomic.Bool
	statusMu    sync.Mutex
	status      models.IngestStatus
	statusGen   uint64
	statusTimer *time.Timer
}

// NewService creates a control plane service with an empty task list.
// pdr may be nil; extractor may be nil, in which case Ingest reports
// missing credentials.
func NewService(pdr audit.Recorder, extractor extract.Extractor, opts ...Option) *Service {
	if pdr == nil {
		pdr = audit.Nop{}
	}
	list, _ := tasklist.New()
	s := &Service{
		pdr:         pdr,
		extractor:   extractor,
		list:        list,
		subscribers: make(map[int]func(Snapshot)),
		status:      models.IngestIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.adapter == nil {
		s.adapter = ingest.NewAdapter()
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	s.script = script.CompileWith(nil, s.scriptOpts)
	s.metrics.ScriptBytes.Set(float64(len(s.script)))
	return s
}

// --- Task Operations ---

// AddTask appends a manually entered task.
func (s *Service) AddTask(name, path, command string) (*models.Task, error) {
	result := s.IngestCandidates("task.add", []models.Candidate{models.NewCandidate(name, path, command)})
	if len(result.Added) == 0 {
		if len(result.Rejected) > 0 {
			return nil, fmt.Errorf("add task: %s", result.Rejected[0].Reason)
		}
		return nil, fmt.Errorf("add task: not admitted")
	}
	return &result.Added[0], nil
}

// AddDefaultTask appends a task with placeholder values.
func (s *Service) AddDefaultTask() (*models.Task, error) {
	return s.AddTask(ingest.DefaultName, ingest.DefaultPath, ingest.DefaultCommand)
}

// GetTask returns the task with id.
func (s *Service) GetTask(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.list.Get(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

// ListTasks returns the tasks in launch order.
func (s *Service) ListTasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Tasks()
}

// UpdateTask replaces one field of a task.
func (s *Service) UpdateTask(id string, field models.Field, value string) (*models.Task, error) {
	var updated models.Task
	err := s.mutate("update", func(l *tasklist.List) error {
		ok, err := l.Update(id, field, value)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		updated, _ = l.Get(id)
		return nil
	})

	s.record("task.update", map[string]string{"task_id": id, "field": string(field), "value": value}, err, id, "")
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask removes a task. The list itself treats an absent id as a
// no-op; the service reports it so API callers can tell.
func (s *Service) DeleteTask(id string) error {
	err := s.mutate("remove", func(l *tasklist.List) error {
		if !l.Remove(id) {
			return ErrTaskNotFound
		}
		return nil
	})
	s.record("task.delete", map[string]string{"task_id": id}, err, id, "")
	return err
}

// Script returns the current compiled preview.
func (s *Service) Script() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.script
}

// Snapshot returns the current tasks, script and revision.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every mutation. fn runs
// synchronously on the mutating goroutine and must not mutate the service.
func (s *Service) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// --- Ingestion ---

// IngestCandidates admits typed candidates (manual entry, task files).
func (s *Service) IngestCandidates(action string, cands []models.Candidate) *IngestResult {
	return s.admit(action, func(exists func(string) bool) ([]models.Task, []models.Rejection) {
		return s.adapter.FromCandidates(cands, exists)
	})
}

// IngestRecords admits a batch of raw JSON records.
func (s *Service) IngestRecords(raw []json.RawMessage) *IngestResult {
	return s.admit("ingest.records", func(exists func(string) bool) ([]models.Task, []models.Rejection) {
		return s.adapter.Normalize(raw, exists)
	})
}

// Ingest asks the extractor to turn instruction into tasks and appends the
// valid ones. Failures add nothing and are returned wrapped in
// ErrIngestFailed. Only one ingestion runs at a time.
func (s *Service) Ingest(ctx context.Context, instruction string) (*IngestResult, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInstruction
	}
	if !s.ingesting.CompareAndSwap(false, true) {
		return nil, ErrIngestInProgress
	}
	defer s.ingesting.Store(false)

	s.setStatus(models.IngestLoading)
	inputs := map[string]string{"instruction": instruction}

	raw, err := s.extract(ctx, instruction)
	if err != nil {
		s.setStatus(models.IngestError)
		s.record("ingest.extract", inputs, err, "", "")
		log.Error().Err(err).Msg("ingestion failed")
		return nil, fmt.Errorf("%w: %w", ErrIngestFailed, err)
	}

	result := s.admit("ingest.extract", func(exists func(string) bool) ([]models.Task, []models.Rejection) {
		return s.adapter.Normalize(raw, exists)
	})
	s.setStatus(models.IngestSuccess)
	return result, nil
}

func (s *Service) extract(ctx context.Context, instruction string) ([]json.RawMessage, error) {
	if s.extractor == nil {
		s.metrics.IngestFailures.WithLabelValues("credentials").Inc()
		return nil, extract.ErrMissingAPIKey
	}
	text, err := s.extractor.Extract(ctx, instruction)
	if err != nil {
		reason := "extract"
		if errors.Is(err, extract.ErrMissingAPIKey) {
			reason = "credentials"
		}
		s.metrics.IngestFailures.WithLabelValues(reason).Inc()
		return nil, err
	}
	raw, err := ingest.ParseCandidates(text)
	if err != nil {
		s.metrics.IngestFailures.WithLabelValues("parse").Inc()
		return nil, err
	}
	return raw, nil
}

// IngestStatus reports the state of the most recent AI ingestion.
func (s *Service) IngestStatus() models.IngestStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// ResetIngestStatus returns the status to idle unless a batch is running.
func (s *Service) ResetIngestStatus() {
	if s.ingesting.Load() {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = models.IngestIdle
}

func (s *Service) setStatus(status models.IngestStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.status = status
	s.statusGen++
	if s.statusTimer != nil {
		s.statusTimer.Stop()
		s.statusTimer = nil
	}
	if s.statusReset <= 0 || status == models.IngestLoading {
		return
	}

	gen := s.statusGen
	s.statusTimer = time.AfterFunc(s.statusReset, func() {
		s.statusMu.Lock()
		defer s.statusMu.Unlock()
		if s.statusGen == gen {
			s.status = models.IngestIdle
		}
	})
}

// --- Export ---

// Export hands the current preview to sink. Failures are logged and
// returned; the task list is never affected.
func (s *Service) Export(ctx context.Context, sink sinks.Sink, filename string) (string, error) {
	if sink == nil {
		return "", ErrNoSink
	}
	content := s.Script()
	filename = sinks.Filename(filename)

	location, err := sink.Export(ctx, content, filename)
	if err != nil {
		s.metrics.Exports.WithLabelValues(sink.Name(), "error").Inc()
		s.pdr.Record("script.export", map[string]string{"filename": filename, "sink": sink.Name()}, "error", "", err.Error())
		log.Error().Err(err).Str("sink", sink.Name()).Str("filename", filename).Msg("export failed")
		return "", err
	}

	s.metrics.Exports.WithLabelValues(sink.Name(), "success").Inc()
	if _, err := s.pdr.RecordExport(filename, sink.Name(), location, content); err != nil {
		log.Warn().Err(err).Msg("failed to record export")
	}
	log.Info().Str("sink", sink.Name()).Str("location", location).Int("bytes", len(content)).Msg("script exported")
	return location, nil
}

// --- Mutation plumbing ---

// admit normalizes a batch under the lock, so freshly assigned ids are
// checked against the list as it is at append time, then appends the
// accepted tasks in order as one mutation.
func (s *Service) admit(action string, normalize func(exists func(string) bool) ([]models.Task, []models.Rejection)) *IngestResult {
	result := &IngestResult{}
	err := s.mutate("append", func(l *tasklist.List) error {
		tasks, rejected := normalize(l.Has)
		result.Rejected = rejected
		for _, t := range tasks {
			if err := l.Add(t); err != nil {
				log.Error().Err(err).Str("task_id", t.ID).Msg("dropping ingested task")
				continue
			}
			result.Added = append(result.Added, t)
		}
		return nil
	})

	s.metrics.Ingested.Add(float64(len(result.Added)))
	s.metrics.Rejected.Add(float64(len(result.Rejected)))

	details := fmt.Sprintf("added=%d rejected=%d", len(result.Added), len(result.Rejected))
	taskID := ""
	if len(result.Added) == 1 {
		taskID = result.Added[0].ID
	}
	s.record(action, result.Added, err, taskID, details)
	return result
}

// mutate applies fn to the list, recompiles the script and notifies
// subscribers. When fn fails the list is left as fn left it and nothing is
// published.
func (s *Service) mutate(kind string, fn func(l *tasklist.List) error) error {
	s.mu.Lock()
	if err := fn(s.list); err != nil {
		s.mu.Unlock()
		return err
	}

	s.script = script.CompileWith(s.list.Tasks(), s.scriptOpts)
	s.revision++
	snap := s.snapshotLocked()

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.metrics.Mutations.WithLabelValues(kind).Inc()
	s.metrics.Compiles.Inc()
	s.metrics.Tasks.Set(float64(len(snap.Tasks)))
	s.metrics.ScriptBytes.Set(float64(len(snap.Script)))

	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		Revision: s.revision,
		Tasks:    s.list.Tasks(),
		Script:   s.script,
	}
}

func (s *Service) record(action string, inputs interface{}, err error, taskID, details string) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		details = err.Error()
	}
	if _, rerr := s.pdr.Record(action, inputs, outcome, taskID, details); rerr != nil {
		log.Warn().Err(rerr).Str("action", action).Msg("failed to write audit record")
	}
}
