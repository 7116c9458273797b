package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// DefaultFrontendOrigin is allowed when no frontend URL is configured
const DefaultFrontendOrigin = "http://localhost:3000"

// AllowedOrigins splits a comma-separated origin list, dropping blanks and duplicates
func AllowedOrigins(frontendURL string) []string {
	var origins []string
	seen := make(map[string]bool)
	for _, o := range strings.Split(frontendURL, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		return []string{DefaultFrontendOrigin}
	}
	return origins
}

// CORS wraps rs/cors with the API's methods and headers for the given origins
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   AllowedOrigins(frontendURL),
		AllowCredentials: false,
		MaxAge:           86400,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	})
	return c.Handler
}
