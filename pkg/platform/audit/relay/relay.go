// Package relay moves audit events from the Postgres outbox to Kafka.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const defaultBatchSize = 100

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay publishes unpublished outbox rows in creation order. Rows are locked
// with SKIP LOCKED so several replicas can relay concurrently.
type Relay struct {
	db        *sql.DB
	producer  Producer
	topic     string
	batchSize int
	metrics   *Metrics
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func New(db *sql.DB, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		producer:  producer,
		topic:     topic,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outboxRow struct {
	id          string
	aggregateID string
	eventType   string
	payload     []byte
}

// RunOnce publishes one batch and returns how many rows were relayed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select outbox batch: %w", err)
	}

	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.aggregateID, &row.eventType, &row.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(batch))
	ids := make([]string, 0, len(batch))
	for _, row := range batch {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.aggregateID),
			Value: row.payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(row.eventType)},
			},
		})
		ids = append(ids, row.id)
	}

	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		r.metrics.observeFailed(len(batch))
		return 0, fmt.Errorf("produce audit batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET published_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}

	r.metrics.observePublished(len(batch))
	return len(batch), nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func EnsureTopic(ctx context.Context, admin *kadm.Client, topic string, partitions int32, replication int16) error {
	resp, err := admin.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}
