package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/ghostcart-backend/api/routes"
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
	"github.com/angelmondragon/ghostcart-backend/pkg/migrate"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
	"github.com/angelmondragon/ghostcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	shop := merchant.NewService(cfg.Merchant, logg)

	jobRepo, err := monitoring.NewRepo(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create monitoring repo", err)
		os.Exit(1)
	}
	eventSink, err := events.NewOutboxSink(dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create event sink", err)
		os.Exit(1)
	}
	jobs, err := monitoring.NewService(monitoring.ServiceParams{
		Config:   cfg.Monitoring,
		Repo:     jobRepo,
		Intents:  mandates,
		Verifier: signer,
		Dropper:  shop,
		Events:   eventSink,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create monitoring service", err)
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
	creds := credentials.NewStaticProvider()
	orchestrator, err := purchase.NewOrchestrator(purchase.OrchestratorParams{
		Client:      dbClient,
		Validator:   validator,
		Signer:      signer,
		Credentials: creds,
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Mandates:     mandates,
			Monitoring:   jobs,
			Merchant:     shop,
			Orchestrator: orchestrator,
			Transactions: txns,
			Signer:       signer,
			Credentials:  creds,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
