// Package sentinel holds the store-level facts that services translate into
// customer-facing outcomes. Validation failures use pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound: no account exists for the email.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable: the backing store could not answer. Callers treat it
	// as a collaborator failure, never as a business result.
	ErrUnavailable = errors.New("unavailable")
)
