package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/trip-planner/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		wantLevel     zapcore.Level
	}{
		{name: "GET request", method: "GET", path: "/api/v1/trips", handlerStatus: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "POST request", method: "POST", path: "/api/v1/staging", handlerStatus: http.StatusCreated, wantLevel: zapcore.InfoLevel},
		{name: "404 request", method: "GET", path: "/notfound", handlerStatus: http.StatusNotFound, wantLevel: zapcore.InfoLevel},
		{name: "server error", method: "GET", path: "/api/v1/search", handlerStatus: http.StatusBadGateway, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if request.RequestIDFromContext(r.Context()) == "" {
					t.Error("request id missing from handler context")
				}
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			Logging(zap.New(core))(handler).ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.handlerStatus)
			}
			if w.Header().Get(request.RequestIDHeader) == "" {
				t.Error("response is missing the request id header")
			}
			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("got %d http_request entries, want 1", len(entries))
			}
			if entries[0].Level != tt.wantLevel {
				t.Errorf("level = %v, want %v", entries[0].Level, tt.wantLevel)
			}
			fields := entries[0].ContextMap()
			if fields["path"] != tt.path {
				t.Errorf("path field = %v, want %s", fields["path"], tt.path)
			}
			if fields["status_code"] != int64(tt.handlerStatus) {
				t.Errorf("status_code field = %v, want %d", fields["status_code"], tt.handlerStatus)
			}
		})
	}
}

func TestLoggingKeepsIncomingRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.RequestIDFromContext(r.Context())
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/api/v1/trips", nil)
	req.Header.Set(request.RequestIDHeader, "trace-me")
	w := httptest.NewRecorder()
	Logging(nil)(handler).ServeHTTP(w, req)

	if seen != "trace-me" {
		t.Errorf("handler saw request id %q, want trace-me", seen)
	}
	if got := w.Header().Get(request.RequestIDHeader); got != "trace-me" {
		t.Errorf("response request id = %q, want trace-me", got)
	}
}

func TestLoggingResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	_, _ = rw.Write([]byte("test"))
	rw.WriteHeader(http.StatusTeapot)

	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200 once the body has started", rw.statusCode)
	}
	if rw.bytes != 4 {
		t.Errorf("bytes = %d, want 4", rw.bytes)
	}
}
