package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrProviderTransient marks 429/5xx, timeouts and open circuits on the
	// score or push provider. Callers skip and retry next cycle.
	ErrProviderTransient = errors.New("transient provider failure")
	// ErrDataInconsistency marks rows that cannot be matched to a fixture.
	ErrDataInconsistency = errors.New("data inconsistency")
)
