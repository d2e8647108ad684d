package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"penny/internal/account"
	"penny/pkg/platform/sentinel"
)

// PostgresStore keeps accounts in the accounts table. The email primary key
// makes ON CONFLICT DO NOTHING the idempotency guard.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, record account.Record) (account.Record, account.CreateOutcome, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (email, name, account_type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, record.Email, record.Name, string(record.Type), record.CreatedAt)
	if err != nil {
		return account.Record{}, 0, fmt.Errorf("insert account: %w: %w", sentinel.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return record, account.Created, nil
	}

	existing, err := s.Get(ctx, record.Email)
	if err != nil {
		return account.Record{}, 0, fmt.Errorf("load existing account: %w", err)
	}
	return existing, account.AlreadyExisted, nil
}

func (s *PostgresStore) Get(ctx context.Context, email string) (account.Record, error) {
	var (
		record      account.Record
		accountType string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT email, name, account_type, created_at FROM accounts WHERE email = $1
	`, email).Scan(&record.Email, &record.Name, &accountType, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Record{}, sentinel.ErrNotFound
		}
		return account.Record{}, fmt.Errorf("select account: %w: %w", sentinel.ErrUnavailable, err)
	}
	record.Type = account.Type(accountType)
	return record, nil
}
