// Package handler exposes the chat gateway over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"penny/internal/chat"
	"penny/internal/platform/middleware"
	dErrors "penny/pkg/domain-errors"
	"penny/pkg/platform/httputil"
)

// Service answers a single question.
type Service interface {
	Ask(ctx context.Context, question string) (chat.Answer, error)
}

// QuestionRequest is the body of POST /question.
type QuestionRequest struct {
	Message string `json:"message"`
}

func (r *QuestionRequest) Validate() error {
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "Please type a question.")
	}
	return nil
}

// MessageResponse carries assistant text back to the client.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler serves the greeting and question endpoints.
type Handler struct {
	logger *slog.Logger
	chat   Service
}

func New(chat Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, chat: chat}
}

// Register registers the chat routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleGreeting)
	r.With(middleware.ContentTypeJSON).Post("/question", h.HandleQuestion)
}

// HandleGreeting returns the assistant's opening line.
func (h *Handler) HandleGreeting(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, &MessageResponse{Message: chat.Greeting()})
}

// HandleQuestion answers one question. Only the generated text is returned.
func (h *Handler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[QuestionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	answer, err := h.chat.Ask(ctx, req.Message)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MessageResponse{Message: answer.Text})
}
