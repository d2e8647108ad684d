package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"penny/internal/platform/middleware"
	"penny/internal/verification"
	dErrors "penny/pkg/domain-errors"
	audit "penny/pkg/platform/audit"
	"penny/pkg/platform/httputil"
	"penny/pkg/platform/sentinel"
)

// HandleStartSession validates the customer's email, looks up whether an
// account already exists and issues the session token that uploads carry.
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StartSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		h.emit(ctx, audit.Event{
			Action:    string(audit.EventSessionDenied),
			Decision:  "denied",
			Reason:    "invalid_email",
			RequestID: requestID,
		})
		return
	}

	// A failed lookup only changes the greeting, so the session still starts.
	exists := true
	if _, err := h.accounts.Get(ctx, req.Email); err != nil {
		exists = false
		if !errors.Is(err, sentinel.ErrNotFound) {
			h.logger.ErrorContext(ctx, "account lookup failed",
				"request_id", requestID,
				"error", err,
			)
		}
	}

	sessionID := uuid.New()
	token, err := h.tokens.GenerateSessionToken(sessionID, req.Email, h.sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token"))
		return
	}

	h.metrics.IncrementSessionsStarted()
	h.emit(ctx, audit.Event{
		Subject:   req.Email,
		Action:    string(audit.EventSessionStarted),
		Decision:  "granted",
		RequestID: requestID,
	})
	h.logger.InfoContext(ctx, "session started",
		"request_id", requestID,
		"session_id", sessionID.String(),
		"account_exists", exists,
	)

	httputil.WriteJSON(w, http.StatusCreated, &StartSessionResponse{
		Token:         token,
		Email:         req.Email,
		AccountExists: exists,
		Message:       sessionMessage(exists),
	})
}

func sessionMessage(accountExists bool) string {
	if accountExists {
		return fmt.Sprintf("Welcome back! Your %s account is already verified. How can I help you today?", verification.BankName)
	}
	return fmt.Sprintf("To open your %s account, please upload a photo of your ID document and a selfie.", verification.BankName)
}
