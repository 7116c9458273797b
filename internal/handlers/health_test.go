package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/trip-planner/internal/storage"
)

type pingingStore struct {
	storage.BlobStore
	err error
}

func (p pingingStore) Ping(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		store      storage.BlobStore
		probes     map[string]HealthProbe
		mode       string
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips probes",
			store:      pingingStore{BlobStore: storage.NewMemoryStore(), err: errors.New("down")},
			wantStatus: http.StatusOK,
		},
		{
			name:       "extended with memory store has no store probe",
			store:      storage.NewMemoryStore(),
			mode:       "extended",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name:       "extended healthy",
			store:      pingingStore{BlobStore: storage.NewMemoryStore()},
			probes:     map[string]HealthProbe{"queue": func(context.Context) error { return nil }},
			mode:       "extended",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"store": "healthy", "queue": "healthy"},
		},
		{
			name:       "extended unhealthy queue",
			store:      pingingStore{BlobStore: storage.NewMemoryStore()},
			probes:     map[string]HealthProbe{"queue": func(context.Context) error { return errors.New("connection closed") }},
			mode:       "extended",
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"store": "healthy", "queue": "unhealthy: connection closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(tt.store)
			for name, probe := range tt.probes {
				h.AddProbe(name, probe)
			}

			req := httptest.NewRequest(http.MethodGet, "/healthz?mode="+tt.mode, nil)
			w := httptest.NewRecorder()
			h.HealthCheck(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", body.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if body.Checks[k] != v {
					t.Errorf("checks[%s] = %q, want %q", k, body.Checks[k], v)
				}
			}
		})
	}
}
