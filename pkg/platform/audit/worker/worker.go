package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Relayer publishes one batch of pending audit events.
type Relayer interface {
	RunOnce(ctx context.Context) (int, error)
}

// Worker drives a Relayer on a fixed interval. A full batch is followed
// immediately by another pass so a backlog drains without waiting.
type Worker struct {
	relay    Relayer
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(relay Relayer, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{relay: relay, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. Relay errors are logged, not returned.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		n, err := w.relay.RunOnce(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "audit relay failed", "error", err)
			}
			return
		}
		if n == 0 {
			return
		}
	}
}
