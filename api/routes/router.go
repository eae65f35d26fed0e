package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karimadly/soukly-backend/api/controllers"
	"github.com/karimadly/soukly-backend/api/middleware"
	"github.com/karimadly/soukly-backend/internal/cart"
	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/payouts"
	"github.com/karimadly/soukly-backend/internal/refunds"
	"github.com/karimadly/soukly-backend/pkg/config"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/redis"
)

// Deps carries the wired services the router exposes.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      controllers.Pinger
	Redis   *redis.Client
	Orders  orders.Service
	Refunds refunds.Service

	Payments         payments.Service
	PayoutReconciler payouts.Reconciler
	Cart             cart.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	// Webhooks authenticate by HMAC signature, not bearer token.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paymob", controllers.PaymobWebhook(deps.Payments, cfg.Paymob.HMACSecret, logg))
		r.Post("/payouts", controllers.PayoutWebhook(deps.PayoutReconciler, cfg.Payouts.HMACSecret, logg))
	})

	// Cart works for guests (token header) and logged-in users alike.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(deps.Redis, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Get("/", controllers.CartFetch(deps.Cart, logg))
		r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
		r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
		r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
	})

	// Guest checkout: anonymous but idempotency-protected.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Redis, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Post("/api/v1/orders/guest", controllers.CreateGuestOrder(deps.Orders, deps.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(deps.Redis, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, deps.Payments, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Refunds, logg))
			r.With(middleware.RequireRole("admin", logg)).
				Put("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
		})

		r.Route("/vendor/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole("vendor", logg))
			r.Put("/{orderId}/status", controllers.VendorUpdateOrderStatus(deps.Orders, logg))
		})

		r.Post("/payments/paymob/session", controllers.CreatePaymentSession(deps.Payments, logg))

		r.Post("/cart/merge", controllers.CartMerge(deps.Cart, logg))
	})

	return r
}
