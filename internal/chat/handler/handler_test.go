package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny/internal/chat"
	dErrors "penny/pkg/domain-errors"
	"penny/pkg/testutil"
)

type stubService struct {
	answer chat.Answer
	err    error
	calls  int
	got    string
}

func (s *stubService) Ask(_ context.Context, question string) (chat.Answer, error) {
	s.calls++
	s.got = question
	return s.answer, s.err
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestHandleQuestion(t *testing.T) {
	t.Run("returns only the generated text", func(t *testing.T) {
		svc := &stubService{answer: chat.Answer{
			Text:     "The minimum balance is $25.",
			Passages: []chat.Passage{{Text: "Minimum balance is $25."}},
		}}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/question",
			map[string]string{"message": "What is the account minimum balance?"}))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[MessageResponse](t, rr)
		assert.Equal(t, "The minimum balance is $25.", resp.Message)
		assert.Equal(t, "What is the account minimum balance?", svc.got)
	})

	t.Run("blank message never reaches the gateway", func(t *testing.T) {
		svc := &stubService{}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/question",
			map[string]string{"message": "   "}))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		assert.Zero(t, svc.calls)
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(&stubService{}), testutil.NewRequestWithBody(t, http.MethodPost, "/question", "{"))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	t.Run("collaborator failure returns the generic message", func(t *testing.T) {
		svc := &stubService{err: dErrors.Wrap(errors.New("bedrock throttled"), dErrors.CodeUnavailable, chat.FailureMessage)}

		rr := testutil.DoRequest(newRouter(svc), testutil.NewJSONRequest(t, http.MethodPost, "/question",
			map[string]string{"message": "hi"}))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		body := testutil.UnmarshalErrorResponse(t, rr)
		assert.Equal(t, chat.FailureMessage, body.Detail)
		assert.NotContains(t, body.Detail, "bedrock")
	})
}

func TestHandleGreeting(t *testing.T) {
	rr := testutil.DoRequest(newRouter(&stubService{}), testutil.NewRequest(t, http.MethodGet, "/"))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "message", chat.Greeting())
}
