package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"firledger/internal/audit/outbox"
	auditpostgres "firledger/internal/audit/store/postgres"
	"firledger/internal/platform/config"
	"firledger/internal/platform/httpserver"
	"firledger/internal/platform/kafka"
	"firledger/internal/platform/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the audit outbox relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	srv := httpserver.New(cfg.Addr, a.newRouter())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(gctx, "starting firledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if relay, cleanup, err := a.buildRelay(gctx); err != nil {
		log.WarnContext(ctx, "audit relay disabled", "error", err)
	} else if relay != nil {
		g.Go(func() error {
			defer cleanup()
			return relay.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.InfoContext(context.Background(), "firledger stopped")
	return nil
}

// buildRelay returns nil when the outbox is not configured. The relay only
// runs against Postgres because it drains the audit_outbox table.
func (a *app) buildRelay(ctx context.Context) (*outbox.Relay, func(), error) {
	if a.db == nil || !relayConfigured(a.cfg) {
		return nil, nil, nil
	}
	producer, err := kafka.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := producer.EnsureTopic(ensureCtx, 3, 1); err != nil {
		a.logger.WarnContext(ctx, "could not ensure audit topic", "topic", a.cfg.Kafka.AuditTopic, "error", err)
	}

	listener := outbox.NewListener(a.cfg.Database.URL, auditpostgres.NotifyChannel)
	relay := outbox.New(outbox.NewPostgresStore(a.db), producer,
		outbox.WithWaiter(listener),
		outbox.WithInterval(a.cfg.Kafka.RelayInterval),
		outbox.WithLogger(a.logger),
		outbox.WithMetrics(a.auditMetric),
	)
	cleanup := func() {
		_ = listener.Close(context.Background())
		producer.Close()
	}
	return relay, cleanup, nil
}

// relayConfigured reports whether serve will start the outbox relay.
func relayConfigured(cfg config.Server) bool {
	return cfg.Database.URL != "" && cfg.Kafka.OutboxEnabled && len(cfg.Kafka.Brokers) > 0
}
