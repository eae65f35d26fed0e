package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/karimadly/soukly-backend/internal/cron"
	"github.com/karimadly/soukly-backend/internal/inventory"
	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/payouts"
	"github.com/karimadly/soukly-backend/internal/refunds"
	"github.com/karimadly/soukly-backend/internal/webhooks"
	"github.com/karimadly/soukly-backend/pkg/config"
	"github.com/karimadly/soukly-backend/pkg/db"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/metrics"
	"github.com/karimadly/soukly-backend/pkg/migrate"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/paymob"
	"github.com/karimadly/soukly-backend/pkg/redis"
)

const outboxRetentionEvery = 24 * time.Hour

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	paymobClient, err := paymob.NewClient(ctx, cfg.Paymob, logg)
	requireResource(ctx, logg, "paymob", err)

	payoutClient, err := paymob.NewPayoutClient(ctx, cfg.Payouts, logg)
	requireResource(ctx, logg, "payout provider", err)

	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	outboxService := outbox.NewService(outboxRepo, logg)
	ordersRepo := orders.NewRepository(gdb)
	payoutsRepo := payouts.NewRepository(gdb)
	claimStore := webhooks.NewClaimStore(gdb)

	inventoryService, err := inventory.NewService(inventory.NewRepository(gdb), logg)
	requireResource(ctx, logg, "inventory service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:          payments.NewRepository(gdb),
		Orders:        ordersRepo,
		Gateway:       paymobClient,
		Claims:        claimStore,
		Outbox:        outboxService,
		Tx:            dbClient,
		Logger:        logg,
		SessionExpiry: cfg.Paymob.SessionExpiry,
	})
	requireResource(ctx, logg, "payments service", err)

	refundsService, err := refunds.NewService(refunds.ServiceParams{
		Orders:    ordersRepo,
		Payments:  paymentsService,
		Inventory: inventoryService,
		Payouts:   payoutsRepo,
		Outbox:    outboxService,
		Tx:        dbClient,
		Logger:    logg,
	})
	requireResource(ctx, logg, "refunds service", err)

	dispatcher, err := payouts.NewDispatcher(payouts.DispatcherParams{
		Repo:         payoutsRepo,
		Provider:     payoutClient,
		Tx:           dbClient,
		Outbox:       outboxService,
		Logger:       logg,
		Metrics:      metrics.NewPayoutMetrics(prometheus.DefaultRegisterer),
		RetryBackoff: cfg.Payouts.RetryBackoff,
		MaxAttempts:  cfg.Payouts.MaxAttempts,
		BatchSize:    cfg.Payouts.BatchSize,
	})
	requireResource(ctx, logg, "payout dispatcher", err)

	payoutJob, err := cron.NewPayoutDispatchJob(cron.PayoutDispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
	})
	requireResource(ctx, logg, "payout dispatch job", err)

	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger: logg,
		Orders: ordersRepo,
		Cancel: refundsService,
		TTL:    cfg.Cron.PendingOrderTTL,
	})
	requireResource(ctx, logg, "order expiry job", err)

	webhookJob, err := cron.NewWebhookRetentionJob(cron.WebhookRetentionJobParams{
		Logger:    logg,
		Claims:    claimStore,
		Retention: cfg.Cron.WebhookLogRetention,
	})
	requireResource(ctx, logg, "webhook retention job", err)

	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	requireResource(ctx, logg, "outbox retention job", err)

	registry := cron.NewRegistry()
	registry.Register(payoutJob, cfg.Cron.PayoutDispatchEvery)
	registry.Register(expiryJob, cfg.Cron.PendingOrderSweep)
	registry.Register(webhookJob, cfg.Cron.WebhookRetentionEvery)
	registry.Register(outboxJob, outboxRetentionEvery)

	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), cfg.Cron.LockTTL)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "cron service", err)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey("cron-worker:" + env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
