package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func setupTestRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(slog.New(slog.NewTextHandler(buf, nil))))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })
	return r
}

func TestRequestIDAssigned(t *testing.T) {
	var buf bytes.Buffer
	router := setupTestRouter(&buf)

	req, _ := http.NewRequest("GET", "/ok", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	id := resp.Header().Get(HeaderRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected a uuid request id, got %q", id)
	}
	if !strings.Contains(buf.String(), id) {
		t.Errorf("Expected log line to carry the request id, got %q", buf.String())
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var buf bytes.Buffer
	router := setupTestRouter(&buf)
	incoming := uuid.NewString()

	req, _ := http.NewRequest("GET", "/ok", nil)
	req.Header.Set(HeaderRequestID, incoming)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get(HeaderRequestID); got != incoming {
		t.Errorf("Expected request id %s, got %s", incoming, got)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	router := setupTestRouter(&buf)

	req, _ := http.NewRequest("GET", "/boom", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status=500") {
		t.Errorf("Expected an error log for a 500, got %q", out)
	}
}
