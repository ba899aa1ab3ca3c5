package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method   string
	endpoint string
	status   string
	duration time.Duration
}

type requestRecorder struct {
	mu      sync.Mutex
	records []recordedRequest
}

func captureRequests(t *testing.T) *requestRecorder {
	t.Helper()
	rec := &requestRecorder{}
	original := recordHTTPRequest
	recordHTTPRequest = func(method, endpoint, status string, duration time.Duration) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.records = append(rec.records, recordedRequest{method, endpoint, status, duration})
	}
	t.Cleanup(func() { recordHTTPRequest = original })
	return rec
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"/health":                   "/health",
		"/api/projects":             "/api/projects",
		"/api/project/123":          "/api/project/:id",
		"/api/project/7/stats":      "/api/project/:id/stats",
		"/api/project/7/board":      "/api/project/:id/board",
		"/api/project/7/members/42": "/api/project/:id/members/:user_id",
		"/api/project/7/tasks":      "/api/project/:id/tasks",
		"/api/task/55/move":         "/api/task/:id/move",
		"/api/task/55/comments":     "/api/task/:id/comments",
		"/api/comment/9":            "/api/comment/:id",
		"/admin/generate_report":    "/admin/generate_report",
		"/admin/download_report/31": "/admin/download_report/:id",
		"/api/project/abc":          "/api/project/abc",
		"/api/project/12a":          "/api/project/12a",
		"/admin/dashboard/stats":    "/admin/dashboard/stats",
	}

	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, want, normalizeEndpoint(path))
		})
	}
}

func TestMetricsMiddleware_RecordsRequest(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		endpoint string
		label    string
	}{
		{"project by id", http.MethodGet, "/api/project/123", http.StatusOK, "/api/project/:id", "200"},
		{"create project", http.MethodPost, "/api/projects", http.StatusCreated, "/api/projects", "201"},
		{"missing task", http.MethodDelete, "/api/task/999", http.StatusNotFound, "/api/task/:id", "404"},
		{"report download", http.MethodGet, "/admin/download_report/456", http.StatusOK, "/admin/download_report/:id", "200"},
		{"forbidden report", http.MethodPost, "/admin/generate_report", http.StatusForbidden, "/admin/generate_report", "403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := captureRequests(t)
			handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			require.Len(t, recorder.records, 1)
			got := recorder.records[0]
			assert.Equal(t, tt.method, got.method)
			assert.Equal(t, tt.endpoint, got.endpoint)
			assert.Equal(t, tt.label, got.status)
		})
	}
}

func TestMetricsMiddleware_DefaultsTo200(t *testing.T) {
	recorder := captureRequests(t)
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, recorder.records, 1)
	assert.Equal(t, "200", recorder.records[0].status)
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	recorder := captureRequests(t)
	delay := 20 * time.Millisecond
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	require.Len(t, recorder.records, 1)
	assert.GreaterOrEqual(t, recorder.records[0].duration, delay)
}

func TestResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Same(t, rec, rw.Unwrap())

	// http.ResponseController reaches the recorder through Unwrap.
	assert.NoError(t, http.NewResponseController(rw).Flush())
	assert.True(t, rec.Flushed)
}
