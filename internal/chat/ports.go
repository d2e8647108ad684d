package chat

import (
	"context"

	audit "penny/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Retriever,Generator,AuditPublisher

// Passage is one ranked excerpt from the bank's document corpus.
type Passage struct {
	ID    string
	Title string
	Text  string
	URI   string
}

// Retriever returns at most topN passages for a query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, topN int) ([]Passage, error)
}

// Generator answers a question from the given passages. An empty passage
// list means no grounding context was found.
type Generator interface {
	Generate(ctx context.Context, question string, passages []Passage) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
