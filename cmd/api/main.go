package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/api/routes"
	"github.com/karimadly/soukly-backend/internal/cart"
	"github.com/karimadly/soukly-backend/internal/discounts"
	"github.com/karimadly/soukly-backend/internal/inventory"
	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/payouts"
	"github.com/karimadly/soukly-backend/internal/refunds"
	"github.com/karimadly/soukly-backend/internal/webhooks"
	"github.com/karimadly/soukly-backend/pkg/config"
	"github.com/karimadly/soukly-backend/pkg/db"
	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/migrate"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/paymob"
	"github.com/karimadly/soukly-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	shippingRate, err := decimal.NewFromString(cfg.Checkout.ShippingFlatRate)
	requireResource(ctx, logg, "shipping flat rate", err)
	commissionRate, err := decimal.NewFromString(cfg.Payouts.DefaultCommissionRate)
	requireResource(ctx, logg, "default commission rate", err)

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)
	ordersRepo := orders.NewRepository(gdb)
	payoutsRepo := payouts.NewRepository(gdb)
	claimStore := webhooks.NewClaimStore(gdb)

	inventoryService, err := inventory.NewService(inventory.NewRepository(gdb), logg)
	requireResource(ctx, logg, "inventory service", err)

	payoutScheduler, err := payouts.NewScheduler(payouts.SchedulerParams{
		Repo:        payoutsRepo,
		Vendors:     payouts.NewVendorLookup(gdb),
		Logger:      logg,
		HoldPeriod:  cfg.Payouts.HoldPeriod,
		DefaultRate: commissionRate,
	})
	requireResource(ctx, logg, "payout scheduler", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:          cart.NewRepository(gdb),
		Tx:            dbClient,
		Logger:        logg,
		MaxQtyPerLine: cfg.Checkout.MaxQtyPerLine,
	})
	requireResource(ctx, logg, "cart service", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:      ordersRepo,
		Products:  orders.NewProductLookup(gdb),
		Users:     orders.NewUserStore(gdb),
		Vouchers:  discounts.NewRepository(gdb),
		Inventory: inventoryService,
		Payouts:   payoutScheduler,
		Carts:     cartService,
		Outbox:    outboxService,
		Tx:        dbClient,
		Logger:    logg,

		ShippingFlatRate:          shippingRate,
		FirstOrderDiscountPercent: cfg.Checkout.FirstOrderDiscountPercent,
		MaxQtyPerLine:             cfg.Checkout.MaxQtyPerLine,
		Currency:                  enums.Currency(cfg.Checkout.DefaultCurrency),
	})
	requireResource(ctx, logg, "orders service", err)

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

	payoutReconciler, err := payouts.NewReconciler(payouts.ReconcilerParams{
		Repo:   payoutsRepo,
		Claims: claimStore,
		Tx:     dbClient,
		Logger: logg,
	})
	requireResource(ctx, logg, "payout reconciler", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			Orders:           ordersService,
			Refunds:          refundsService,
			Payments:         paymentsService,
			PayoutReconciler: payoutReconciler,
			Cart:             cartService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
