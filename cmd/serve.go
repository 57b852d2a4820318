package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"school-controlplane/internal/api"
	"school-controlplane/internal/auth"
	"school-controlplane/internal/entitlement"
	"school-controlplane/internal/manager"
	"school-controlplane/internal/messaging"
	"school-controlplane/internal/metrics"
	"school-controlplane/internal/registry"
	"school-controlplane/internal/storage"
	"school-controlplane/internal/syncer"
	"school-controlplane/internal/tenantclient"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control plane API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	metrics.Init()

	// Init PostgreSQL
	db, err := storage.NewStorage(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	log.Info("PostgreSQL connected")

	// Tokens
	issuer, err := auth.NewInstanceIssuer(cfg.Auth.InstanceSecret)
	if err != nil {
		return err
	}
	authn, err := auth.NewAuthenticator(db, cfg.Auth.OperatorSecret, cfg.Auth.OperatorTokenTTL, log)
	if err != nil {
		return err
	}

	clients := tenantclient.NewCache(issuer, cfg.TenantClient.Timeout, log)
	sync := syncer.NewService(db, db, clients, log)

	// Init RabbitMQ. Without a broker events are dropped and fleet sync is disabled.
	var events registry.EventPublisher = messaging.NopPublisher{}
	var fleet api.FleetSyncer
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, log)
		if err != nil {
			return err
		}
		defer rabbitClient.Close()
		if err := rabbitClient.DeclareTopology(); err != nil {
			return err
		}
		log.Info("RabbitMQ connected")

		sm := manager.NewSyncManager(rabbitClient.GetConnection(), rabbitClient, db, sync, cfg.Workers, log)
		if err := sm.Start(ctx); err != nil {
			return err
		}
		defer sm.Shutdown()

		events, fleet = rabbitClient, sm
		go pollQueueDepth(ctx, rabbitClient)
	} else {
		log.Warn("rabbitmq.url not set: tenant events dropped, fleet sync disabled")
	}

	reg := registry.New(db, events, clients, log)
	ents := entitlement.NewManager(db, events, log)

	apiHandler := api.NewAPI(authn, reg, db, sync, ents, fleet, log)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return errors.Wrap(err, "server error")
	}
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown error", zap.Error(err))
	}

	log.Info("graceful shutdown complete")
	return nil
}

func pollQueueDepth(ctx context.Context, rabbit *messaging.RabbitClient) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rabbit.UpdateQueueDepth()
		}
	}
}
