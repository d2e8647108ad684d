// Package handler exposes identity verification over HTTP: starting a chat
// session and uploading an ID document with a selfie.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"penny/internal/account"
	"penny/internal/platform/metrics"
	"penny/internal/platform/middleware"
	"penny/internal/verification"
	audit "penny/pkg/platform/audit"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Verifier,AccountLookup,Archiver

// Verifier runs one verification attempt to a terminal result.
type Verifier interface {
	Verify(ctx context.Context, req verification.VerificationRequest) verification.Result
}

// AccountLookup reports whether a customer already has an account.
type AccountLookup interface {
	Get(ctx context.Context, email string) (account.Record, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	GenerateSessionToken(sessionID uuid.UUID, email string, expiresIn time.Duration) (string, error)
}

// Archiver keeps a copy of uploaded images.
type Archiver interface {
	Archive(ctx context.Context, key string, content []byte, contentType string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultSessionTTL     = time.Hour
)

// Handler serves the session and upload endpoints.
type Handler struct {
	logger         *slog.Logger
	verifier       Verifier
	accounts       AccountLookup
	tokens         TokenIssuer
	validator      middleware.SessionValidator
	metrics        *metrics.Metrics
	archive        Archiver
	auditor        AuditPublisher
	maxUploadBytes int64
	sessionTTL     time.Duration
}

type Option func(*Handler)

// WithArchiver enables best-effort archiving of uploaded images.
func WithArchiver(a Archiver) Option {
	return func(h *Handler) {
		h.archive = a
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(h *Handler) {
		h.auditor = p
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.sessionTTL = ttl
		}
	}
}

// New creates a verification Handler.
func New(
	verifier Verifier,
	accounts AccountLookup,
	tokens TokenIssuer,
	validator middleware.SessionValidator,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Handler {
	h := &Handler{
		logger:         logger,
		verifier:       verifier,
		accounts:       accounts,
		tokens:         tokens,
		validator:      validator,
		metrics:        metrics,
		maxUploadBytes: DefaultMaxUploadBytes,
		sessionTTL:     DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the session and upload routes with the chi router.
// Common middleware (request ID, logging, recovery) is expected on r.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/session", h.HandleStartSession)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.validator, h.logger))
		r.Post("/uploadDoc", h.HandleUpload)
	})
}

// emit is best effort.
func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}
