package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler_NoPanic(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/api/v1/trips", nil)
	w := httptest.NewRecorder()
	ErrorHandler(zap.NewNop())(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestErrorHandler_PanicRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name:    "string panic",
			handler: func(w http.ResponseWriter, r *http.Request) { panic("test panic") },
		},
		{
			name: "runtime panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var nilMap map[string]string
				nilMap["key"] = "value"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.ErrorLevel)
			req := httptest.NewRequest("GET", "/api/v1/trips", nil)
			w := httptest.NewRecorder()

			ErrorHandler(zap.New(core))(tt.handler).ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}

			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Success {
				t.Error("Expected success to be false")
			}
			if body.Error != "Internal Server Error" || body.Message != "An unexpected error occurred" {
				t.Errorf("unexpected body: %+v", body)
			}
			if body.Path != "/api/v1/trips" {
				t.Errorf("Expected path '/api/v1/trips', got '%s'", body.Path)
			}
			if body.Timestamp == "" {
				t.Error("Expected timestamp to be set")
			}
			if logs.FilterMessage("panic_recovered").Len() != 1 {
				t.Error("expected a panic_recovered log entry")
			}
		})
	}
}

func TestErrorHandler_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	ErrorHandler(zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	t.Error("expected the abort panic to propagate")
}

func TestReject_CarriesTraceID(t *testing.T) {
	t.Parallel()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	tests := []struct {
		name    string
		status  int
		label   string
		withCtx bool
		wantID  string
	}{
		{name: "traced request", status: http.StatusUnsupportedMediaType, label: "Unsupported Media Type", withCtx: true, wantID: traceID.String()},
		{name: "untraced request", status: http.StatusRequestEntityTooLarge, label: "Request Entity Too Large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("POST", "/api/v1/staged", nil)
			if tt.withCtx {
				req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
			}
			w := httptest.NewRecorder()
			reject(w, req, tt.status, "rejected", nil)

			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if w.Code != tt.status || body.Error != tt.label {
				t.Errorf("got %d %q, want %d %q", w.Code, body.Error, tt.status, tt.label)
			}
			if body.TraceID != tt.wantID {
				t.Errorf("trace_id = %q, want %q", body.TraceID, tt.wantID)
			}
		})
	}
}
