package verification

import (
	"time"

	"penny/internal/account"
)

// State is the position of one verification attempt.
type State int

const (
	StateReceived State = iota
	StateExtracted
	StateMatched
	StateAccountReady
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateExtracted:
		return "extracted"
	case StateMatched:
		return "matched"
	case StateAccountReady:
		return "account_ready"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further step runs from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Reason explains a failed attempt.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonMissingInput            Reason = "missing_input"
	ReasonExtractionUnreadable    Reason = "extraction_unreadable"
	ReasonDocumentExpired         Reason = "document_expired"
	ReasonDetailsMismatch         Reason = "details_mismatch"
	ReasonFaceMismatch            Reason = "face_mismatch"
	ReasonFaceMatchUnavailable    Reason = "face_match_unavailable"
	ReasonAccountStoreUnavailable Reason = "account_store_unavailable"
	// ReasonNotificationUnavailable only ever accompanies a completed
	// attempt; the account is kept.
	ReasonNotificationUnavailable Reason = "notification_unavailable"
)

// Business reports whether the reason is a legitimate negative result of a
// correct process rather than a system failure.
func (r Reason) Business() bool {
	switch r {
	case ReasonFaceMismatch, ReasonDocumentExpired, ReasonDetailsMismatch:
		return true
	default:
		return false
	}
}

// Outcome is the terminal result reported to the caller.
type Outcome string

const (
	OutcomeCompleted                   Outcome = "completed"
	OutcomeCompletedNotificationFailed Outcome = "completed_notification_failed"
	OutcomeFailed                      Outcome = "failed"
)

// VerificationRequest is one upload attempt. It is never modified.
type VerificationRequest struct {
	DocumentImage []byte
	FaceImage     []byte
	CustomerEmail string
	// Declared holds the details the customer typed in. Empty fields are
	// not checked against the document.
	Declared    DeclaredDetails
	AccountType account.Type
}

// DeclaredDetails is what the customer says is printed on their ID.
type DeclaredDetails struct {
	FirstName string
	LastName  string
}

// Field names reported when a declared detail differs from the document.
const (
	FieldFirstName = "first name"
	FieldLastName  = "last name"
)

// ExtractedIdentity is what the document reader found on the ID.
type ExtractedIdentity struct {
	FirstName      string
	LastName       string
	FullName       string
	DocumentNumber string
	// ExpiryDate is zero when the document shows none.
	ExpiryDate time.Time
}

// Attempt carries the state of one run between steps. Steps take and return
// it by value.
type Attempt struct {
	ID         string
	State      State
	Request    VerificationRequest
	Identity   ExtractedIdentity
	Confidence float64
	// MismatchedField is set with ReasonDetailsMismatch.
	MismatchedField string
	Account         account.Record
	Creation   account.CreateOutcome
	Reason     Reason
	// Unavailable marks a failure caused by a collaborator that could not
	// answer, rather than by the customer's input.
	Unavailable bool
	Err         error
	StartedAt   time.Time
}

func (a Attempt) fail(reason Reason, unavailable bool, err error) Attempt {
	a.State = StateFailed
	a.Reason = reason
	a.Unavailable = unavailable
	a.Err = err
	return a
}

// Result is the terminal report of an attempt.
type Result struct {
	AttemptID   string
	Outcome     Outcome
	Reason      Reason
	Unavailable bool
	Confidence  float64
	// MismatchedField names the declared detail that differed from the ID.
	MismatchedField string
	Account         *account.Record
	// AccountCreated is false when the account already existed.
	AccountCreated bool
	FinalState     State
}

func (a Attempt) result() Result {
	res := Result{
		AttemptID:   a.ID,
		Reason:      a.Reason,
		Unavailable: a.Unavailable,
		Confidence:      a.Confidence,
		MismatchedField: a.MismatchedField,
		FinalState:      a.State,
	}
	switch {
	case a.State == StateCompleted && a.Reason == ReasonNotificationUnavailable:
		res.Outcome = OutcomeCompletedNotificationFailed
	case a.State == StateCompleted:
		res.Outcome = OutcomeCompleted
	default:
		res.Outcome = OutcomeFailed
	}
	if a.Creation != 0 {
		rec := a.Account
		res.Account = &rec
		res.AccountCreated = a.Creation == account.Created
	}
	return res
}
