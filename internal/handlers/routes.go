package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// API groups the handlers mounted under /api/v1
type API struct {
	Trips    *TripHandler
	Sessions *SessionHandler
	Staging  *StagingHandler
	Search   *SearchHandler
	Health   *HealthChecker
}

// Register mounts /healthz and the /api/v1 routes on r. limit, when non-nil, wraps the API routes only.
func (a *API) Register(r *mux.Router, limit func(http.Handler) http.Handler) {
	if a.Health != nil {
		r.HandleFunc("/healthz", a.Health.HealthCheck).Methods("GET")
	}

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	if limit != nil {
		apiRouter.Use(limit)
	}

	tripsRouter := apiRouter.PathPrefix("/trips").Subrouter()
	if a.Sessions != nil {
		a.Sessions.RegisterRoutes(tripsRouter)
	}
	if a.Trips != nil {
		a.Trips.RegisterRoutes(tripsRouter)
	}
	if a.Staging != nil {
		a.Staging.RegisterRoutes(apiRouter.PathPrefix("/staged").Subrouter())
	}
	if a.Search != nil {
		a.Search.RegisterRoutes(apiRouter.PathPrefix("/search").Subrouter())
	}

	// preflight requests are answered by the CORS middleware before reaching here
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
