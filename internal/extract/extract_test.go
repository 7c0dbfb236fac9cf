package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiMissingAPIKey(t *testing.T) {
	g := NewGemini(GeminiConfig{})

	_, err := g.Extract(context.Background(), "run redis")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestGeminiDefaultsModel(t *testing.T) {
	assert.Equal(t, DefaultGeminiModel, NewGemini(GeminiConfig{APIKey: "k"}).cfg.Model)
}

func TestGeminiExtract(t *testing.T) {
	var gotBody map[string]any
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"name\":\"DB\",\"path\":\"E:\\\\db\",\"command\":\"redis-server\"}]"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	text, err := g.Extract(context.Background(), "run redis-server in E:\\db")
	require.NoError(t, err)

	assert.Equal(t, `[{"name":"DB","path":"E:\\db","command":"redis-server"}]`, text)
	assert.True(t, strings.HasSuffix(gotPath, DefaultGeminiModel+":generateContent"), gotPath)

	raw, _ := json.Marshal(gotBody)
	assert.Contains(t, string(raw), "redis-server in E:")
	assert.Contains(t, string(raw), "application/json")
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := g.Extract(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)

	var extractErr *Error
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "gemini", extractErr.Provider)
}

func TestFuncWrapsPlainErrors(t *testing.T) {
	boom := errors.New("boom")
	f := Func(func(ctx context.Context, instruction string) (string, error) {
		return "", boom
	})

	_, err := f.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, boom)
}

func TestFuncPassesThroughText(t *testing.T) {
	f := Func(func(ctx context.Context, instruction string) (string, error) {
		return "[]", nil
	})

	text, err := f.Extract(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
}
