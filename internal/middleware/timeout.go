package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout covers a search provider round trip plus storage writes
	DefaultRequestTimeout = 30 * time.Second
)

const timeoutBody = `{"success":false,"error":"Request Timeout","message":"the request took too long"}`

// Timeout creates a middleware that enforces a timeout on request handlers.
// The handler's context is cancelled when the deadline passes, which also cancels an in-flight place search.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
