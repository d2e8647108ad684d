//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"penny/internal/account"
	"penny/internal/account/store"
	"penny/pkg/platform/sentinel"
	"penny/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "accounts"))
}

func (s *PostgresStoreSuite) TestCreateIsIdempotent() {
	ctx := context.Background()
	first := account.Record{Email: "jane@example.com", Name: "Jane Doe", Type: account.TypeSavings, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}

	_, outcome, err := s.store.CreateIfAbsent(ctx, first)
	s.Require().NoError(err)
	s.Equal(account.Created, outcome)

	rec, outcome, err := s.store.CreateIfAbsent(ctx, account.Record{Email: first.Email, Name: "Impostor", CreatedAt: time.Now()})
	s.Require().NoError(err)
	s.Equal(account.AlreadyExisted, outcome)
	s.Equal("Jane Doe", rec.Name)
	s.Equal(account.TypeSavings, rec.Type)
	s.True(first.CreatedAt.Equal(rec.CreatedAt))
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "nobody@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentCreate verifies that concurrent creates for the same email
// result in exactly one Created.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var created, existed atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := s.store.CreateIfAbsent(ctx, account.Record{Email: "race@example.com", Name: "Racer", CreatedAt: time.Now()})
			if err != nil {
				return
			}
			if outcome == account.Created {
				created.Add(1)
			} else {
				existed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), existed.Load())
}
