package search

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResults means the provider answered but matched nothing
	ErrNoResults = errors.New("no results")
	// ErrQueryTooShort is returned for queries below the minimum length
	ErrQueryTooShort = errors.New("query too short")
	// ErrStaleResponse marks an outcome superseded by a newer query
	ErrStaleResponse = errors.New("stale response")
	// ErrRateLimited is returned when the coordinator's request budget is exhausted
	ErrRateLimited = errors.New("search rate limit exceeded")
)

// ErrorKind classifies provider failures
type ErrorKind string

const (
	// KindUnreachable covers transport failures (DNS, connection refused, timeouts)
	KindUnreachable ErrorKind = "unreachable"
	// KindBadStatus is a non-success response from the provider
	KindBadStatus ErrorKind = "bad_status"
	// KindMalformed is a response body that could not be decoded
	KindMalformed ErrorKind = "malformed"
)

// ProviderError describes a failed provider call
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindBadStatus:
		if e.Err != nil {
			return fmt.Sprintf("%s search returned status %d: %v", e.Provider, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s search returned status %d", e.Provider, e.StatusCode)
	case KindMalformed:
		return fmt.Sprintf("%s search returned a malformed response: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s search unreachable: %v", e.Provider, e.Err)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err wraps a *ProviderError of the given kind
func IsProviderError(err error, kind ErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}
