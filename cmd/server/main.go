package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	chatHandler "penny/internal/chat/handler"
	jwttoken "penny/internal/jwt_token"
	"penny/internal/platform/config"
	"penny/internal/platform/httpserver"
	"penny/internal/platform/logger"
	"penny/internal/platform/metrics"
	"penny/internal/platform/middleware"
	"penny/internal/providers/guard"
	verificationHandler "penny/internal/verification/handler"
	"penny/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	m := metrics.New()
	svc, err := buildServices(ctx, cfg, log, infra)
	if err != nil {
		return err
	}
	defer svc.auditPublisher.Close()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "penny", "penny-client")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.LatencyMiddleware(m))
	r.Use(middleware.Timeout(httpserver.WriteTimeout(cfg)))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(infra, svc.guards))

	chatHandler.New(svc.chat, log).Register(r)
	verificationHandler.New(
		svc.coordinator,
		svc.accounts,
		jwtService,
		jwtService,
		log,
		m,
		verificationHandler.WithArchiver(svc.archive),
		verificationHandler.WithAuditPublisher(svc.auditPublisher),
		verificationHandler.WithMaxUploadBytes(cfg.MaxUploadBytes),
		verificationHandler.WithSessionTTL(cfg.SessionTTL),
	).Register(r)

	srv := httpserver.New(cfg, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting penny", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if svc.relayWorker != nil {
		g.Go(func() error {
			return svc.relayWorker.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// readiness fails on a dead dependency. Open circuits only mark the server
// degraded, since those calls fail fast with a customer message.
func readiness(infra *infra, guards []*guard.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if infra.db != nil {
			if err := infra.db.Health(ctx); err != nil {
				status["status"], status["postgres"] = "unavailable", "down"
				code = http.StatusServiceUnavailable
			}
		}
		if infra.redis != nil {
			if err := infra.redis.Health(ctx); err != nil {
				status["status"], status["redis"] = "unavailable", "down"
				code = http.StatusServiceUnavailable
			}
		}
		if open := guard.OpenCircuits(guards...); len(open) > 0 {
			status["open_circuits"] = strings.Join(open, ",")
			if code == http.StatusOK {
				status["status"] = "degraded"
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
