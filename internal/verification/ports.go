package verification

import (
	"context"

	"penny/internal/account"
	audit "penny/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Extractor,FaceMatcher,AccountStore,Notifier,AuditPublisher

// Extractor reads the identity fields printed on an ID document.
type Extractor interface {
	Extract(ctx context.Context, documentImage []byte) (ExtractedIdentity, error)
}

// FaceMatcher compares the face on the document with a live face and returns
// a similarity between 0 and 100.
type FaceMatcher interface {
	Match(ctx context.Context, documentImage, faceImage []byte) (float64, error)
}

// AccountStore creates accounts idempotently per email.
type AccountStore interface {
	CreateIfAbsent(ctx context.Context, record account.Record) (account.Record, account.CreateOutcome, error)
}

// Notification is an email to a verified customer.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends a confirmation to a verified customer.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// AuditPublisher records verification events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
