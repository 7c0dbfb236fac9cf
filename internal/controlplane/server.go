package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/devlaunch/internal/extract"
	"github.com/fentz26/devlaunch/internal/ingest"
	"github.com/fentz26/devlaunch/internal/models"
	"github.com/fentz26/devlaunch/internal/sinks"
	"github.com/fentz26/devlaunch/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Server provides the HTTP API for devlaunch.
type Server struct {
	service  *Service
	store    *store.Store
	sink     sinks.Sink
	gatherer prometheus.Gatherer
	addr     string
	server   *http.Server
}

// NewServer creates a new HTTP server. st may be nil when no journal is kept.
func NewServer(service *Service, st *store.Store, addr string) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
	}
}

// SetExportSink sets the sink used by POST /export.
func (s *Server) SetExportSink(sink sinks.Sink) {
	s.sink = sink
}

// SetGatherer serves metrics from g instead of the default registry.
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)

	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/ingest/status", s.handleIngestStatus)
	mux.HandleFunc("/ingest/records", s.handleIngestRecords)

	mux.HandleFunc("/script", s.handleScript)
	mux.HandleFunc("/script/download", s.handleDownload)
	mux.HandleFunc("/export", s.handleExport)
	mux.HandleFunc("/exports", s.handleExports)
	mux.HandleFunc("/audit", s.handleAudit)

	mux.HandleFunc("/health", s.handleHealth)

	gatherer := s.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// extraction requests can take a while
		WriteTimeout: 90 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("starting devlaunch daemon")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Tasks   int    `json:"tasks"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		OK:      true,
		DB:      "disabled",
		Tasks:   len(s.service.ListTasks()),
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			health.OK = false
			health.DB = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			health.DB = "ok"
		}
	}

	writeJSON(w, status, health)
}

// handleTasks handles POST /tasks and GET /tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTask(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.service.ListTasks())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskByID handles /tasks/{id}
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
	if taskID == "" || strings.Contains(taskID, "/") {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, err := s.service.GetTask(taskID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case http.MethodPatch:
		s.updateTask(w, r, taskID)
	case http.MethodDelete:
		if err := s.service.DeleteTask(taskID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Task Handlers ---

// createTaskRequest fields are optional: an empty body creates a task with
// placeholder values, and missing fields take their placeholder.
type createTaskRequest struct {
	Name    *string `json:"name"`
	Path    *string `json:"path"`
	Command *string `json:"command"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	task, err := s.service.AddTask(
		valueOr(req.Name, ingest.DefaultName),
		valueOr(req.Path, ingest.DefaultPath),
		valueOr(req.Command, ingest.DefaultCommand),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type updateTaskRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	field, err := models.ParseField(req.Field)
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := s.service.UpdateTask(taskID, field, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- Ingestion Handlers ---

type ingestRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	// A late extraction result is still applied after the client goes away.
	result, err := s.service.Ingest(context.WithoutCancel(r.Context()), req.Instruction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]models.IngestStatus{"status": s.service.IngestStatus()})
	case http.MethodDelete:
		s.service.ResetIngestStatus()
		writeJSON(w, http.StatusOK, map[string]models.IngestStatus{"status": s.service.IngestStatus()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleIngestRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "expected a json array of task records", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.IngestRecords(raw))
}

// --- Script Handlers ---

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.service.Script()))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filename := r.URL.Query().Get("filename")
	location, err := s.service.Export(r.Context(), downloadSink{w: w}, filename)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Debug().Str("filename", location).Msg("script downloaded")
}

type exportRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req exportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	location, err := s.service.Export(r.Context(), s.sink, req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": location})
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []models.ExportRecord{})
		return
	}
	records, err := s.store.ListExports(queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.ExportRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []models.PDREntry{})
		return
	}
	entries, err := s.store.ListPDR(r.URL.Query().Get("task"), queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.PDREntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// downloadSink delivers the script as the HTTP response.
type downloadSink struct {
	w http.ResponseWriter
}

func (d downloadSink) Name() string { return "download" }

func (d downloadSink) Export(ctx context.Context, content, filename string) (string, error) {
	sinks.ServeDownload(d.w, content, filename)
	return filename, nil
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUnknownField), errors.Is(err, ErrEmptyInstruction):
		status = http.StatusBadRequest
	case errors.Is(err, ErrIngestInProgress):
		status = http.StatusConflict
	case errors.Is(err, extract.ErrMissingAPIKey), errors.Is(err, ErrNoSink):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ErrIngestFailed):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func valueOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
