// Package account defines the customer account record. Accounts are keyed
// by normalized email and are only ever created, never updated or removed.
package account

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Record is a customer account.
type Record struct {
	Email     string
	Name      string
	Type      Type
	CreatedAt time.Time
}

// Type is the kind of account the customer asked to open.
type Type string

const (
	TypeChecking Type = "checking"
	TypeSavings  Type = "savings"

	DefaultType = TypeChecking
)

var ErrUnknownType = errors.New("unknown account type")

// ParseType accepts a type in any case. An empty value is DefaultType.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return DefaultType, nil
	case TypeChecking, TypeSavings:
		return t, nil
	default:
		return "", ErrUnknownType
	}
}

// CreateOutcome distinguishes a fresh creation from an idempotent repeat.
type CreateOutcome int

const (
	Created CreateOutcome = iota + 1
	AlreadyExisted
)

func (o CreateOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExisted:
		return "already_existed"
	default:
		return "unknown"
	}
}

// Store is implemented by every account backend. CreateIfAbsent must be
// atomic per email: concurrent calls for one email yield exactly one Created.
// It never overwrites an existing record; on AlreadyExisted the stored record
// is returned.
type Store interface {
	CreateIfAbsent(ctx context.Context, record Record) (Record, CreateOutcome, error)
	// Get returns sentinel.ErrNotFound when no account exists.
	Get(ctx context.Context, email string) (Record, error)
}
