// Package chat answers free-text banking questions with retrieval-grounded
// generation, one request at a time.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "penny/pkg/domain-errors"
	audit "penny/pkg/platform/audit"
	"penny/pkg/requestcontext"
)

const (
	DefaultTopN        = 3
	DefaultStepTimeout = 20 * time.Second
	MaxQuestionLength  = 2000

	// FailureMessage is the only thing a customer sees when a collaborator fails.
	FailureMessage = "Sorry, I'm having trouble answering right now. Please try again in a moment."

	outcomeAnswered = "answered"
	outcomeFailed   = "failed"
	outcomeRejected = "rejected"
)

// Answer is the generated text plus the passages it was grounded on.
type Answer struct {
	Text     string
	Passages []Passage
}

// Gateway is stateless and safe for concurrent use.
type Gateway struct {
	retriever   Retriever
	generator   Generator
	auditor     AuditPublisher
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	topN        int
	stepTimeout time.Duration
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(g *Gateway) {
		g.auditor = p
	}
}

// WithTopN bounds the passages requested from the retriever.
func WithTopN(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.topN = n
		}
	}
}

func WithStepTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.stepTimeout = d
		}
	}
}

func NewGateway(retriever Retriever, generator Generator, opts ...Option) *Gateway {
	g := &Gateway{
		retriever:   retriever,
		generator:   generator,
		logger:      slog.Default(),
		tracer:      otel.Tracer("penny/chat"),
		topN:        DefaultTopN,
		stepTimeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ask retrieves passages for the question and generates an answer from them.
// A blank question is a validation error and reaches no collaborator. Any
// collaborator failure is returned as CodeUnavailable carrying FailureMessage;
// the cause is logged, never retried.
func (g *Gateway) Ask(ctx context.Context, question string) (Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		g.metrics.ObserveAnswer(outcomeRejected, 0, start)
		return Answer{}, dErrors.New(dErrors.CodeValidation, "Please type a question.")
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		g.metrics.ObserveAnswer(outcomeRejected, 0, start)
		return Answer{}, dErrors.New(dErrors.CodeValidation, "Your question is too long. Please shorten it and try again.")
	}

	ctx, span := g.tracer.Start(ctx, "chat.ask")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	var passages []Passage
	err := g.call(ctx, "retrieve", func(ctx context.Context) error {
		var err error
		passages, err = g.retriever.Search(ctx, question, g.topN)
		return err
	})
	if err != nil {
		return Answer{}, g.fail(ctx, span, "retrieve", err, start)
	}
	if len(passages) > g.topN {
		passages = passages[:g.topN]
	}
	span.SetAttributes(attribute.Int("passages", len(passages)))
	if len(passages) == 0 {
		g.logger.InfoContext(ctx, "no passages found, answering without grounding",
			"request_id", requestID,
		)
	}

	var text string
	err = g.call(ctx, "generate", func(ctx context.Context) error {
		var err error
		text, err = g.generator.Generate(ctx, question, passages)
		return err
	})
	if err != nil {
		return Answer{}, g.fail(ctx, span, "generate", err, start)
	}

	g.metrics.ObserveAnswer(outcomeAnswered, len(passages), start)
	g.emit(ctx, audit.EventQuestionAnswered, "")
	g.logger.InfoContext(ctx, "question answered",
		"request_id", requestID,
		"passages", len(passages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Answer{Text: text, Passages: passages}, nil
}

func (g *Gateway) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, "chat."+name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.stepTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (g *Gateway) fail(ctx context.Context, span trace.Span, step string, err error, start time.Time) error {
	span.SetStatus(codes.Error, step+" failed")
	g.metrics.ObserveAnswer(outcomeFailed, 0, start)
	g.emit(ctx, audit.EventQuestionFailed, step+"_unavailable")
	g.logger.ErrorContext(ctx, "chat collaborator failed",
		"request_id", requestcontext.RequestID(ctx),
		"step", step,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, FailureMessage)
}

// emit is best effort.
func (g *Gateway) emit(ctx context.Context, action audit.AuditEvent, reason string) {
	if g.auditor == nil {
		return
	}
	subject := requestcontext.CustomerEmail(ctx)
	if subject == "" {
		subject = "anonymous"
	}
	err := g.auditor.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		g.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
}
