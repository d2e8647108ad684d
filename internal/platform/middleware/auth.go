package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "penny/pkg/domain-errors"
	"penny/pkg/platform/httputil"
	"penny/pkg/requestcontext"
)

// SessionValidator validates a bearer session token.
type SessionValidator interface {
	ValidateSession(token string) (SessionClaims, error)
}

// SessionClaims is the identity a valid session token carries.
type SessionClaims struct {
	SessionID string
	Email     string
}

// RequireSession rejects requests without a valid bearer session token and
// binds the session identity to the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Please start a session before uploading documents"))
				return
			}

			claims, err := validator.ValidateSession(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Your session has expired. Please start a new session"))
				return
			}

			ctx = requestcontext.WithSession(ctx, claims.SessionID, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
