// Package providers holds the failure taxonomy shared by every adapter to an
// external collaborator (document reading, face matching, email, retrieval,
// generation, archiving).
package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory is the normalized reason a collaborator call failed.
//
//	timeout          no answer within the step bound
//	bad_data         the collaborator answered that the input is unusable
//	authentication   credentials or permissions rejected
//	provider_outage  the collaborator is down, or its circuit is open
//	not_found        the named resource does not exist
//	rate_limited     throttled
//	internal         anything unclassified
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// Unavailable reports whether the category means no usable answer was
// given. bad_data and not_found are answers about the input.
func (c ErrorCategory) Unavailable() bool {
	return c != ErrorBadData && c != ErrorNotFound
}

// ErrCircuitOpen is returned by guarded providers while their breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// ProviderError is what every adapter returns on failure.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
}

func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s (%s)", e.ProviderID, e.Message, e.Category)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// GetCategory classifies any error. Unclassified context expiry is a
// timeout; everything else unclassified is internal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorInternal
}

// IsUnavailable reports whether err means the collaborator could not give an
// answer at all, as opposed to answering that the input was unusable.
func IsUnavailable(err error) bool {
	return GetCategory(err).Unavailable()
}
