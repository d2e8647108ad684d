package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"penny/internal/account"
)

func TestWelcomeNotification(t *testing.T) {
	rec := account.Record{Email: "jane@example.com", Name: "Jane Doe", Type: account.TypeSavings}

	created := WelcomeNotification(rec, account.Created)
	assert.Equal(t, "jane@example.com", created.To)
	assert.Equal(t, "Welcome to AnyBank!", created.Subject)
	assert.Contains(t, created.Body, "thank you for creating a new savings account with AnyBank")

	existing := WelcomeNotification(rec, account.AlreadyExisted)
	assert.NotEqual(t, created.Subject, existing.Subject)
	assert.Contains(t, existing.Body, "existing AnyBank savings account")

	untyped := WelcomeNotification(account.Record{Email: "sam@example.com", Name: "Sam"}, account.Created)
	assert.Contains(t, untyped.Body, "a new checking account")
}

func TestCustomerStatus(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{"completed", Result{Outcome: OutcomeCompleted}, StatusCompleted},
		{"notification failed", Result{Outcome: OutcomeCompletedNotificationFailed, Reason: ReasonNotificationUnavailable, Unavailable: true}, StatusCompletedNotificationFailed},
		{"face mismatch", Result{Outcome: OutcomeFailed, Reason: ReasonFaceMismatch}, StatusIdentityMismatch},
		{"unreadable", Result{Outcome: OutcomeFailed, Reason: ReasonExtractionUnreadable}, StatusRejected},
		{"extractor down", Result{Outcome: OutcomeFailed, Reason: ReasonExtractionUnreadable, Unavailable: true}, StatusFailed},
		{"expired", Result{Outcome: OutcomeFailed, Reason: ReasonDocumentExpired}, StatusRejected},
		{"details mismatch", Result{Outcome: OutcomeFailed, Reason: ReasonDetailsMismatch, MismatchedField: FieldFirstName}, StatusRejected},
		{"store down", Result{Outcome: OutcomeFailed, Reason: ReasonAccountStoreUnavailable, Unavailable: true}, StatusFailed},
		{"matcher down", Result{Outcome: OutcomeFailed, Reason: ReasonFaceMatchUnavailable, Unavailable: true}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CustomerStatus(tt.res))
			assert.NotEmpty(t, CustomerMessage(tt.res))
		})
	}
}

func TestCustomerMessageNeverLeaksReason(t *testing.T) {
	for _, reason := range []Reason{ReasonAccountStoreUnavailable, ReasonFaceMatchUnavailable, ReasonExtractionUnreadable} {
		msg := CustomerMessage(Result{Outcome: OutcomeFailed, Reason: reason, Unavailable: true})
		assert.NotContains(t, msg, string(reason))
		assert.Contains(t, msg, "try again")
	}
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateReceived.Terminal())
	assert.False(t, StateAccountReady.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.Equal(t, "account_ready", StateAccountReady.String())
}
