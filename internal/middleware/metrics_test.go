package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockMetricsRecorder struct {
	records []metricRecord
}

type metricRecord struct {
	method   string
	endpoint string
	status   string
	duration time.Duration
}

func (m *mockMetricsRecorder) record(method, endpoint, status string, duration time.Duration) {
	m.records = append(m.records, metricRecord{
		method:   method,
		endpoint: endpoint,
		status:   status,
		duration: duration,
	})
}

func (m *mockMetricsRecorder) reset() {
	m.records = []metricRecord{}
}

var mockRecorder = &mockMetricsRecorder{}

func setupMock() func() {
	original := recordHTTPRequest
	recordHTTPRequest = func(method, endpoint, status string, duration time.Duration) {
		mockRecorder.record(method, endpoint, status, duration)
	}
	return func() { recordHTTPRequest = original }
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		expectedStatus int
	}{
		{
			name:           "sets status code 200",
			statusCode:     http.StatusOK,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "sets status code 404",
			statusCode:     http.StatusNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "sets status code 500",
			statusCode:     http.StatusInternalServerError,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rw := &responseWriter{
				ResponseWriter: rec,
				statusCode:     http.StatusOK,
			}

			rw.WriteHeader(tt.statusCode)

			if rw.statusCode != tt.expectedStatus {
				t.Errorf("expected status code %d, got %d", tt.expectedStatus, rw.statusCode)
			}

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected underlying response writer status %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "attempt by id",
			path:     "/api/attempts/123",
			expected: "/api/attempts/:id",
		},
		{
			name:     "attempt with uuid",
			path:     "/api/attempts/abc-def-456",
			expected: "/api/attempts/:id",
		},
		{
			name:     "attempt progress",
			path:     "/api/attempts/123/progress",
			expected: "/api/attempts/:id/progress",
		},
		{
			name:     "attempt stats",
			path:     "/api/attempts/123/stats",
			expected: "/api/attempts/:id/stats",
		},
		{
			name:     "attempt with unknown nested path (should not normalize)",
			path:     "/api/attempts/123/other/path",
			expected: "/api/attempts/123/other/path",
		},
		{
			name:     "attempts list",
			path:     "/api/attempts",
			expected: "/api/attempts",
		},
		{
			name:     "dashboard stats",
			path:     "/api/dashboard/stats",
			expected: "/api/dashboard/stats",
		},
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "metrics endpoint",
			path:     "/metrics",
			expected: "/metrics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeEndpoint(tt.path)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	cleanup := setupMock()
	defer cleanup()

	tests := []struct {
		name               string
		method             string
		path               string
		handlerStatusCode  int
		expectedEndpoint   string
		expectedStatusCode string
	}{
		{
			name:               "GET attempt by id with 200",
			method:             http.MethodGet,
			path:               "/api/attempts/123",
			handlerStatusCode:  http.StatusOK,
			expectedEndpoint:   "/api/attempts/:id",
			expectedStatusCode: "200",
		},
		{
			name:               "POST attempt with 201",
			method:             http.MethodPost,
			path:               "/api/attempts",
			handlerStatusCode:  http.StatusCreated,
			expectedEndpoint:   "/api/attempts",
			expectedStatusCode: "201",
		},
		{
			name:               "GET progress with 404",
			method:             http.MethodGet,
			path:               "/api/attempts/999/progress",
			handlerStatusCode:  http.StatusNotFound,
			expectedEndpoint:   "/api/attempts/:id/progress",
			expectedStatusCode: "404",
		},
		{
			name:               "internal server error",
			method:             http.MethodGet,
			path:               "/api/attempts/123",
			handlerStatusCode:  http.StatusInternalServerError,
			expectedEndpoint:   "/api/attempts/:id",
			expectedStatusCode: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRecorder.reset()

			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.handlerStatusCode)
				_, _ = w.Write([]byte("test response"))
			})

			handler := MetricsMiddleware(testHandler)
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.handlerStatusCode {
				t.Errorf("expected status code %d, got %d", tt.handlerStatusCode, rec.Code)
			}

			if len(mockRecorder.records) != 1 {
				t.Fatalf("expected 1 metric recorded, got %d", len(mockRecorder.records))
			}

			m := mockRecorder.records[0]
			if m.method != tt.method {
				t.Errorf("expected method %q, got %q", tt.method, m.method)
			}
			if m.endpoint != tt.expectedEndpoint {
				t.Errorf("expected endpoint %q, got %q", tt.expectedEndpoint, m.endpoint)
			}
			if m.status != tt.expectedStatusCode {
				t.Errorf("expected status %q, got %q", tt.expectedStatusCode, m.status)
			}
			if m.duration <= 0 {
				t.Error("expected duration > 0")
			}
		})
	}
}

func TestMetricsMiddleware_CallsNextHandler(t *testing.T) {
	cleanup := setupMock()
	defer cleanup()

	mockRecorder.reset()
	handlerCalled := false

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	handler := MetricsMiddleware(testHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/attempts", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("expected next handler to be called")
	}
}
