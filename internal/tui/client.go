package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/devlaunch/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// IngestTimeout bounds a natural-language ingestion request, which waits on
// the extraction service.
const IngestTimeout = 90 * time.Second

// Client wraps HTTP calls to the devlaunch API
type Client struct {
	baseURL    string
	httpClient *http.Client
	slowClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
		slowClient: &http.Client{Timeout: IngestTimeout},
	}
}

// ListTasks fetches the task list in launch order.
func (c *Client) ListTasks() ([]models.Task, error) {
	var tasks []models.Task
	if err := c.getJSON("/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Script fetches the compiled preview.
func (c *Client) Script() (string, error) {
	body, err := c.do(c.httpClient, http.MethodGet, "/script", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// CreateTask appends a task. An empty name creates a placeholder task.
func (c *Client) CreateTask(name string) (*models.Task, error) {
	var body interface{}
	if name != "" {
		body = map[string]string{"name": name}
	}
	resp, err := c.do(c.httpClient, http.MethodPost, "/tasks", body)
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask replaces one field of a task.
func (c *Client) UpdateTask(id, field, value string) (*models.Task, error) {
	body := map[string]string{
		"field": field,
		"value": value,
	}
	resp, err := c.do(c.httpClient, http.MethodPatch, "/tasks/"+id, body)
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(id string) error {
	_, err := c.do(c.httpClient, http.MethodDelete, "/tasks/"+id, nil)
	return err
}

// Ingest asks the daemon to extract tasks from instruction.
func (c *Client) Ingest(instruction string) (*IngestResult, error) {
	resp, err := c.do(c.slowClient, http.MethodPost, "/ingest", map[string]string{"instruction": instruction})
	if err != nil {
		return nil, err
	}

	var result IngestResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Export writes the current script through the daemon's export sink.
func (c *Client) Export(filename string) (string, error) {
	var body interface{}
	if filename != "" {
		body = map[string]string{"filename": filename}
	}
	resp, err := c.do(c.httpClient, http.MethodPost, "/export", body)
	if err != nil {
		return "", err
	}

	var result ExportResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return result.Location, nil
}

// CheckHealth checks if the daemon is healthy
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var health struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}

	return health.OK, nil
}

func (c *Client) getJSON(path string, v interface{}) error {
	body, err := c.do(c.httpClient, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (c *Client) do(hc *http.Client, method, path string, data interface{}) ([]byte, error) {
	var reqBody io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", strings.TrimSpace(string(body)))
	}

	return body, nil
}
