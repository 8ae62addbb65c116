package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/ghostcart-backend/internal/chain"
	"github.com/angelmondragon/ghostcart-backend/internal/credentials"
	"github.com/angelmondragon/ghostcart-backend/internal/events"
	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/internal/monitoring"
	"github.com/angelmondragon/ghostcart-backend/internal/processor"
	"github.com/angelmondragon/ghostcart-backend/internal/purchase"
	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/internal/transactions"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
	"github.com/angelmondragon/ghostcart-backend/pkg/metrics"
	"github.com/angelmondragon/ghostcart-backend/pkg/migrate"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
	"github.com/angelmondragon/ghostcart-backend/pkg/redis"
)

const (
	workerLockName = "monitor"
	workerLockTTL  = 90 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "monitor-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "monitor-worker"

	logg = logger.New(logger.Options{
		ServiceName: "monitor-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	keyring, err := signature.NewHMACKeyringFromConfig(cfg.Signature)
	if err != nil {
		logg.Error(context.Background(), "failed to build signing keyring", err)
		os.Exit(1)
	}
	signer, err := signature.NewService(keyring)
	if err != nil {
		logg.Error(context.Background(), "failed to create signature service", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	eventSink, err := events.NewOutboxSink(dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create event sink", err)
		os.Exit(1)
	}

	mandateRepo, err := mandate.NewRepo(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create mandate repo", err)
		os.Exit(1)
	}
	mandates, err := mandate.NewService(mandate.ServiceParams{
		Client: dbClient,
		Repo:   mandateRepo,
		Signer: signer,
		Events: outboxSvc,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create mandate service", err)
		os.Exit(1)
	}

	jobRepo, err := monitoring.NewRepo(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create monitoring repo", err)
		os.Exit(1)
	}

	validator, err := chain.NewValidator(signer)
	if err != nil {
		logg.Error(context.Background(), "failed to create chain validator", err)
		os.Exit(1)
	}
	txns, err := transactions.NewRepo(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create transactions repo", err)
		os.Exit(1)
	}
	proc, err := processor.New(cfg.Processor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment processor", err)
		os.Exit(1)
	}
	orchestrator, err := purchase.NewOrchestrator(purchase.OrchestratorParams{
		Client:      dbClient,
		Validator:   validator,
		Signer:      signer,
		Credentials: credentials.NewStaticProvider(),
		Processor:   proc,
		Txns:        txns,
		Mandates:    mandateRepo,
		Events:      outboxSvc,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase orchestrator", err)
		os.Exit(1)
	}

	scheduler, err := monitoring.NewScheduler(monitoring.SchedulerParams{
		Config:    cfg.Monitoring,
		Repo:      jobRepo,
		Intents:   mandates,
		Checker:   merchant.NewService(cfg.Merchant, logg),
		Signer:    signer,
		Purchaser: orchestrator,
		Events:    eventSink,
		Metrics:   metrics.NewMonitorMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create monitoring scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	holder, _ := os.Hostname()
	if holder == "" {
		holder = "local"
	}
	acquired, err := redisClient.AcquireWorkerLock(ctx, workerLockName, holder, workerLockTTL)
	if err != nil {
		logg.Error(ctx, "failed to acquire worker lock", err)
		os.Exit(1)
	}
	if !acquired {
		logg.Info(ctx, "another monitor worker holds the lock, exiting")
		return
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.ReleaseWorkerLock(releaseCtx, workerLockName); err != nil {
			logg.Error(releaseCtx, "failed to release worker lock", err)
		}
	}()
	go renewLock(ctx, logg, redisClient)

	logg.Info(ctx, "starting monitor worker")

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "monitor worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "monitor worker shutting down gracefully")
}

func renewLock(ctx context.Context, logg *logger.Logger, redisClient *redis.Client) {
	ticker := time.NewTicker(workerLockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := redisClient.RenewWorkerLock(ctx, workerLockName, workerLockTTL); err != nil {
				logg.Error(ctx, "failed to renew worker lock", err)
			}
		}
	}
}
