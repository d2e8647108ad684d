package verification

import (
	"fmt"

	"penny/internal/account"
)

const (
	BankName      = "AnyBank"
	AssistantName = "Penny"
)

// WelcomeNotification builds the confirmation email for a verified customer.
func WelcomeNotification(rec account.Record, outcome account.CreateOutcome) Notification {
	if outcome == account.AlreadyExisted {
		return Notification{
			To:      rec.Email,
			Subject: fmt.Sprintf("Your %s identity verification", BankName),
			Body: fmt.Sprintf("Hello %s, we have completed your ID and face verification successfully. "+
				"Your existing %s %s account is ready for you to access.", rec.Name, BankName, accountType(rec)),
		}
	}
	return Notification{
		To:      rec.Email,
		Subject: fmt.Sprintf("Welcome to %s!", BankName),
		Body: fmt.Sprintf("Hello %s, thank you for creating a new %s account with %s. "+
			"We have completed your ID and face verification successfully and you should be ready to access your account!",
			rec.Name, accountType(rec), BankName),
	}
}

func accountType(rec account.Record) account.Type {
	if rec.Type == "" {
		return account.DefaultType
	}
	return rec.Type
}

// Status values reported to the client.
const (
	StatusCompleted                   = "completed"
	StatusCompletedNotificationFailed = "completed_notification_failed"
	StatusIdentityMismatch            = "identity_mismatch"
	StatusRejected                    = "rejected"
	StatusFailed                      = "failed"
)

// CustomerStatus maps a result to the status the client branches on.
func CustomerStatus(res Result) string {
	switch res.Outcome {
	case OutcomeCompleted:
		return StatusCompleted
	case OutcomeCompletedNotificationFailed:
		return StatusCompletedNotificationFailed
	}
	switch {
	case res.Reason == ReasonFaceMismatch:
		return StatusIdentityMismatch
	case res.Unavailable:
		return StatusFailed
	case res.Reason == ReasonExtractionUnreadable, res.Reason == ReasonDocumentExpired,
		res.Reason == ReasonDetailsMismatch, res.Reason == ReasonMissingInput:
		return StatusRejected
	default:
		return StatusFailed
	}
}

// CustomerMessage is the customer-facing description of a result. It never
// contains collaborator error detail.
func CustomerMessage(res Result) string {
	switch CustomerStatus(res) {
	case StatusCompleted:
		if !res.AccountCreated {
			return "Your identity has been verified and your existing account is ready. We have emailed you a confirmation."
		}
		return "Your identity has been verified and your new account has been created. We have emailed you a confirmation."
	case StatusCompletedNotificationFailed:
		return "Your identity has been verified and your account is ready. We could not send the confirmation email, but there is nothing else you need to do."
	case StatusIdentityMismatch:
		return "We could not confirm that the photo matches the person on the ID document. Please try again with a clear, well-lit selfie."
	case StatusRejected:
		switch res.Reason {
		case ReasonDocumentExpired:
			return "Your ID document appears to have expired. Please upload a valid, unexpired document."
		case ReasonDetailsMismatch:
			return fmt.Sprintf("The details you provided for your %s do not match your ID. Please check them and try again.", detailLabel(res))
		case ReasonMissingInput:
			return "Please upload both a photo of your ID document and a selfie."
		default:
			return "We could not read your ID document. Please upload a clear photo of the whole document."
		}
	default:
		return "We could not complete your verification right now. Please try again in a few minutes."
	}
}

func detailLabel(res Result) string {
	if res.MismatchedField == "" {
		return "name"
	}
	return res.MismatchedField
}
