package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/trip-planner/internal/storage"
)

// HealthProbe checks one dependency. storage.Pinger, the job queue and the place catalog all fit.
type HealthProbe func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	probes map[string]HealthProbe
}

// NewHealthChecker creates a health checker. The store is probed when it implements storage.Pinger.
func NewHealthChecker(store storage.BlobStore) *HealthChecker {
	h := &HealthChecker{probes: make(map[string]HealthProbe)}
	if p, ok := store.(storage.Pinger); ok {
		h.AddProbe("store", p.Ping)
	}
	return h
}

// AddProbe registers a named dependency check for extended mode
func (h *HealthChecker) AddProbe(name string, probe HealthProbe) {
	if probe != nil {
		h.probes[name] = probe
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. ?mode=extended probes every dependency.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		response.Checks = make(map[string]string, len(h.probes))
		for name, probe := range h.probes {
			if err := h.check(r.Context(), probe); err != nil {
				response.Status = "unhealthy"
				response.Checks[name] = "unhealthy: " + err.Error()
				continue
			}
			response.Checks[name] = "healthy"
		}
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) check(ctx context.Context, probe HealthProbe) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return probe(ctx)
}
