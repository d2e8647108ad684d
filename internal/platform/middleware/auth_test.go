package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "penny/pkg/domain-errors"
	"penny/pkg/requestcontext"
)

type stubValidator struct {
	claims SessionClaims
	err    error
}

func (s stubValidator) ValidateSession(string) (SessionClaims, error) {
	return s.claims, s.err
}

func TestRequireSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail = requestcontext.CustomerEmail(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header", func(t *testing.T) {
		h := RequireSession(stubValidator{}, logger)(next)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/uploadDoc", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		h := RequireSession(stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}, logger)(next)
		r := httptest.NewRequest(http.MethodPost, "/uploadDoc", nil)
		r.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "invalid token")
	})

	t.Run("valid token binds identity", func(t *testing.T) {
		h := RequireSession(stubValidator{claims: SessionClaims{SessionID: "s-1", Email: "jane@example.com"}}, logger)(next)
		r := httptest.NewRequest(http.MethodPost, "/uploadDoc", nil)
		r.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "jane@example.com", gotEmail)
	})
}
