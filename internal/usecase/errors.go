package usecase

import "github.com/cockroachdb/errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrDependencyNotReady means a referenced entity has not been ingested
	// yet. The document is retried after the dependency is requested.
	ErrDependencyNotReady  = errors.New("dependency not ready")
	ErrUnsupportedDocument = errors.New("unsupported document type")
)
