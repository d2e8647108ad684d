package worker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRelay struct {
	pending atomic.Int32
	calls   atomic.Int32
	err     error
}

func (f *fakeRelay) RunOnce(context.Context) (int, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	if f.pending.Load() == 0 {
		return 0, nil
	}
	f.pending.Add(-1)
	return 1, nil
}

func TestWorkerDrainsBacklog(t *testing.T) {
	relay := &fakeRelay{}
	relay.pending.Store(3)
	w := NewWorker(relay, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return relay.pending.Load() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestWorkerKeepsRunningOnRelayError(t *testing.T) {
	relay := &fakeRelay{err: assert.AnError}
	w := NewWorker(relay, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return relay.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
