package sinks

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"":                      "launch-dev-env.bat",
		"   ":                   "launch-dev-env.bat",
		"dev.bat":               "dev.bat",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\start.bat`: "start.bat",
		"nested/dir/launch.bat": "launch.bat",
		"..":                    "launch-dev-env.bat",
	}
	for in, want := range cases {
		assert.Equal(t, want, Filename(in), "input %q", in)
	}
}

func TestServeDownload(t *testing.T) {
	w := httptest.NewRecorder()
	ServeDownload(w, "@echo off\n", "")

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="launch-dev-env.bat"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "@echo off\n", w.Body.String())
}
