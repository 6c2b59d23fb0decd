// Package common defines shared constants and sentinel errors used across
// the reconciliation engine and its stores. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrIdentityConflict means the external identity requested for linking
	// already belongs to a different voter than the caller expected. The
	// reconciliation engine uses it to trigger an account merge; it is not
	// necessarily a user-facing failure.
	ErrIdentityConflict = errors.New("identity already linked to another voter")

	// ErrManualInterventionRequired means an automatic merge cannot safely
	// proceed (for example bookmarks attached directly to an organization
	// being merged). The workflow halts at the failing step.
	ErrManualInterventionRequired = errors.New("manual intervention required")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
