package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/devlaunch/internal/audit"
	"github.com/fentz26/devlaunch/internal/extract"
	"github.com/fentz26/devlaunch/internal/metrics"
	"github.com/fentz26/devlaunch/internal/models"
	"github.com/fentz26/devlaunch/internal/script"
	"github.com/fentz26/devlaunch/internal/sinks/filesink"
	"github.com/fentz26/devlaunch/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint_OK(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.True(t, health.OK)
	assert.Equal(t, "ok", health.DB)
	assert.NotEmpty(t, health.Version)
	assert.NotEmpty(t, health.Time)
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s.Handler(), http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthEndpoint_DBError(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	service := NewService(audit.NewPDRWriter(st), nil, WithMetrics(metrics.MustNew(prometheus.NewRegistry())))
	server := NewServer(service, st, "127.0.0.1:0")

	// closed store makes the ping fail
	st.Close()

	w := do(server.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.False(t, health.OK)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	w := do(h, http.MethodPost, "/tasks", `{"name":"Web","path":"E:\\site","command":"npm run dev"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var web models.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&web))
	require.NotEmpty(t, web.ID)
	assert.Equal(t, "Web", web.Name)

	// empty body uses placeholders
	w = do(h, http.MethodPost, "/tasks", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var placeholder models.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placeholder))
	assert.Equal(t, "New Task", placeholder.Name)
	assert.Equal(t, `C:\Projects`, placeholder.Path)

	w = do(h, http.MethodPatch, "/tasks/"+placeholder.ID, `{"field":"cmd","value":"redis-server"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(h, http.MethodPatch, "/tasks/"+placeholder.ID, `{"field":"id","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, http.MethodGet, "/tasks/"+placeholder.ID, "")
	var shown models.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&shown))
	assert.Equal(t, "redis-server", shown.Command)

	w = do(h, http.MethodGet, "/tasks", "")
	var tasks []models.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, web.ID, tasks[0].ID)
	assert.Equal(t, placeholder.ID, tasks[1].ID)

	w = do(h, http.MethodDelete, "/tasks/"+web.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(h, http.MethodDelete, "/tasks/"+web.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(h, http.MethodGet, "/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTasksEmptyIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s.Handler(), http.MethodGet, "/tasks", "")
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestScriptEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	do(h, http.MethodPost, "/tasks", `{"name":"App","path":"C:\\Projects\\Tom's App","command":"npm start"}`)

	w := do(h, http.MethodGet, "/script", "")
	assert.Contains(t, w.Body.String(), `cd 'C:\Projects\Tom''s App'`)

	w = do(h, http.MethodGet, "/script/download?filename=dev.bat", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="dev.bat"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, s.service.Script(), w.Body.String())
}

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	w := do(h, http.MethodPost, "/export", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no sink configured")

	s.SetExportSink(filesink.New(afero.NewMemMapFs(), "out"))

	w = do(h, http.MethodPost, "/export", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, filepath.Join("out", script.DefaultFilename), resp["location"])

	w = do(h, http.MethodGet, "/exports", "")
	var records []models.ExportRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "file", records[0].Sink)
}

func TestIngestEndpoint(t *testing.T) {
	ext := extract.Func(func(ctx context.Context, instruction string) (string, error) {
		return `[{"name":"DB","path":"E:\\db","command":"redis-server"},{"name":"broken"}]`, nil
	})
	s := newTestServer(t, ext)
	h := s.Handler()

	w := do(h, http.MethodPost, "/ingest", `{"instruction":"run redis in E:\\db"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result IngestResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Len(t, result.Added, 1)
	assert.Len(t, result.Rejected, 1)

	w = do(h, http.MethodGet, "/ingest/status", "")
	assert.Contains(t, w.Body.String(), `"success"`)

	w = do(h, http.MethodPost, "/ingest", `{"instruction":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestOutlivesClientDisconnect(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	ext := extract.Func(func(ctx context.Context, instruction string) (string, error) {
		close(started)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-release:
		}
		return `[{"name":"DB","path":"E:\\db","command":"redis-server"}]`, nil
	})
	s := newTestServer(t, ext)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"instruction":"run redis"}`)).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Handler().ServeHTTP(w, req)
	}()

	<-started
	cancel()
	close(release)
	<-done

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tasks := s.service.ListTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "DB", tasks[0].Name)
	assert.Equal(t, models.IngestSuccess, s.service.IngestStatus())
}

func TestIngestEndpointErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s.Handler(), http.MethodPost, "/ingest", `{"instruction":"run redis"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "missing credentials")

	failing := extract.Func(func(ctx context.Context, instruction string) (string, error) {
		return "", errors.New("upstream timeout")
	})
	s2 := newTestServer(t, failing)

	w = do(s2.Handler(), http.MethodPost, "/ingest", `{"instruction":"run redis"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, s2.service.ListTasks())
}

func TestIngestRecordsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	w := do(h, http.MethodPost, "/ingest/records", `[{"name":"A","path":"a","command":"a"},{"name":1,"path":"b","command":"b"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	var result IngestResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Len(t, result.Added, 1)
	assert.Len(t, result.Rejected, 1)

	w = do(h, http.MethodPost, "/ingest/records", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	do(h, http.MethodPost, "/tasks", "")
	do(h, http.MethodDelete, "/tasks/missing", "")

	w := do(h, http.MethodGet, "/audit?limit=10", "")
	var entries []models.PDREntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "task.delete", entries[0].Action)
	assert.Equal(t, "error", entries[0].Outcome)
	assert.Equal(t, "task.add", entries[1].Action)
	assert.Equal(t, "success", entries[1].Outcome)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	do(h, http.MethodPost, "/tasks", "")

	w := do(h, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), "devlaunch_tasks 1")
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newTestServer(t *testing.T, ext extract.Extractor) *Server {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := prometheus.NewRegistry()
	service := NewService(audit.NewPDRWriter(st), ext, WithMetrics(metrics.MustNew(reg)))
	server := NewServer(service, st, "127.0.0.1:0")
	server.SetGatherer(reg)
	return server
}
