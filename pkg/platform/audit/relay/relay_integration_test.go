//go:build integration

package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "penny/pkg/platform/audit"
	"penny/pkg/platform/audit/relay"
	"penny/pkg/platform/audit/store/postgres"
	"penny/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *postgres.Store
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func (s *RelaySuite) TestPublishesPendingRowsOnce() {
	ctx := context.Background()
	topic := "audit-" + uuid.NewString()
	producer := s.redpanda.NewClient(s.T())
	s.Require().NoError(relay.EnsureTopic(ctx, kadm.NewClient(producer), topic, 1, 1))

	subject := "jane.doe@example.com"
	for _, action := range []audit.AuditEvent{audit.EventAccountCreated, audit.EventVerificationCompleted} {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Subject:   subject,
			Action:    string(action),
			Timestamp: time.Now(),
		}))
	}

	r := relay.New(s.postgres.DB, producer, topic)
	n, err := r.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = r.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(0, n, "published rows are not relayed again")

	consumer := s.redpanda.NewClient(s.T(),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	pollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var got []audit.Event
	for len(got) < 2 && pollCtx.Err() == nil {
		consumer.PollFetches(pollCtx).EachRecord(func(rec *kgo.Record) {
			s.Equal(subject, string(rec.Key))
			event, err := postgres.DecodePayload(rec.Value)
			s.Require().NoError(err)
			got = append(got, event)
		})
	}
	s.Require().Len(got, 2)
	s.Equal(string(audit.EventAccountCreated), got[0].Action)
	s.Equal(audit.CategoryCompliance, got[1].Category)

	events, err := s.store.ListBySubject(ctx, subject)
	s.Require().NoError(err)
	s.Len(events, 2)
}
