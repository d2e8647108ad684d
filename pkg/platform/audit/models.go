package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so they can
// be routed and retained differently downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance, such as
	// an identity being verified or an account being opened.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events worth alerting on.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity; it can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// Subject is the customer the event is about, normally their email.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// AttemptID correlates all events of one verification attempt.
	AttemptID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can be read back.
type Lister interface {
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

type AuditEvent string

const (
	// Verification events
	EventVerificationCompleted AuditEvent = "verification_completed"
	EventVerificationFailed    AuditEvent = "verification_failed"
	EventIdentityMismatch      AuditEvent = "identity_mismatch"
	EventAccountCreated        AuditEvent = "account_created"
	EventAccountReused         AuditEvent = "account_reused"
	EventNotificationFailed    AuditEvent = "notification_failed"

	// Session events
	EventSessionStarted AuditEvent = "session_started"
	EventSessionDenied  AuditEvent = "session_denied"

	// Chat events
	EventQuestionAnswered AuditEvent = "question_answered"
	EventQuestionFailed   AuditEvent = "question_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationCompleted: CategoryCompliance,
	EventAccountCreated:        CategoryCompliance,
	EventAccountReused:         CategoryCompliance,

	EventIdentityMismatch: CategorySecurity,
	EventSessionDenied:    CategorySecurity,

	EventVerificationFailed: CategoryOperations,
	EventNotificationFailed: CategoryOperations,
	EventSessionStarted:     CategoryOperations,
	EventQuestionAnswered:   CategoryOperations,
	EventQuestionFailed:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
