// Package guard wraps external collaborators in circuit breakers. An open
// circuit fails fast with a provider_outage error; nothing is retried.
package guard

import (
	"context"
	"log/slog"

	"penny/internal/chat"
	"penny/internal/providers"
	"penny/internal/verification"
	"penny/pkg/platform/circuit"
	"penny/pkg/requestcontext"
)

// Guard runs calls through one breaker.
type Guard struct {
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
}

func New(breaker *circuit.Breaker, logger *slog.Logger, metrics *Metrics) *Guard {
	metrics.setState(breaker.Name(), circuit.StateClosed)
	return &Guard{breaker: breaker, logger: logger, metrics: metrics}
}

func (g *Guard) Name() string { return g.breaker.Name() }

// Open reports whether calls are currently failing fast.
func (g *Guard) Open() bool { return g.breaker.IsOpen() }

// OpenCircuits names the guards whose circuit is open, in argument order.
func OpenCircuits(guards ...*Guard) []string {
	var open []string
	for _, g := range guards {
		if g.Open() {
			open = append(open, g.Name())
		}
	}
	return open
}

// do records only unavailability as a failure; a collaborator that answered
// "bad input" is healthy.
func do[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	name := g.breaker.Name()
	if !g.breaker.Allow() {
		g.metrics.incRejected(name)
		return zero, providers.NewProviderError(providers.ErrorProviderOutage, name, "circuit open", providers.ErrCircuitOpen)
	}

	v, err := fn(ctx)
	if err != nil && providers.IsUnavailable(err) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.metrics.setState(name, circuit.StateOpen)
			g.logger.WarnContext(ctx, "circuit opened",
				"request_id", requestcontext.RequestID(ctx),
				"provider", name,
				"error", err,
			)
		}
		return zero, err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.metrics.setState(name, circuit.StateClosed)
		g.logger.InfoContext(ctx, "circuit closed",
			"request_id", requestcontext.RequestID(ctx),
			"provider", name,
		)
	}
	return v, err
}

type Extractor struct {
	next  verification.Extractor
	guard *Guard
}

func NewExtractor(next verification.Extractor, g *Guard) *Extractor {
	return &Extractor{next: next, guard: g}
}

func (e *Extractor) Extract(ctx context.Context, documentImage []byte) (verification.ExtractedIdentity, error) {
	return do(ctx, e.guard, func(ctx context.Context) (verification.ExtractedIdentity, error) {
		return e.next.Extract(ctx, documentImage)
	})
}

type FaceMatcher struct {
	next  verification.FaceMatcher
	guard *Guard
}

func NewFaceMatcher(next verification.FaceMatcher, g *Guard) *FaceMatcher {
	return &FaceMatcher{next: next, guard: g}
}

func (m *FaceMatcher) Match(ctx context.Context, documentImage, faceImage []byte) (float64, error) {
	return do(ctx, m.guard, func(ctx context.Context) (float64, error) {
		return m.next.Match(ctx, documentImage, faceImage)
	})
}

type Notifier struct {
	next  verification.Notifier
	guard *Guard
}

func NewNotifier(next verification.Notifier, g *Guard) *Notifier {
	return &Notifier{next: next, guard: g}
}

func (n *Notifier) Send(ctx context.Context, msg verification.Notification) error {
	_, err := do(ctx, n.guard, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.next.Send(ctx, msg)
	})
	return err
}

type Retriever struct {
	next  chat.Retriever
	guard *Guard
}

func NewRetriever(next chat.Retriever, g *Guard) *Retriever {
	return &Retriever{next: next, guard: g}
}

func (r *Retriever) Search(ctx context.Context, query string, topN int) ([]chat.Passage, error) {
	return do(ctx, r.guard, func(ctx context.Context) ([]chat.Passage, error) {
		return r.next.Search(ctx, query, topN)
	})
}

type Generator struct {
	next  chat.Generator
	guard *Guard
}

func NewGenerator(next chat.Generator, g *Guard) *Generator {
	return &Generator{next: next, guard: g}
}

func (gen *Generator) Generate(ctx context.Context, question string, passages []chat.Passage) (string, error) {
	return do(ctx, gen.guard, func(ctx context.Context) (string, error) {
		return gen.next.Generate(ctx, question, passages)
	})
}
