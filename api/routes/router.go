package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/auth"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	mpwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
)

// RedisStore is the slice of the redis client the HTTP layer uses for rate
// limits, idempotency replays and readiness.
type RedisStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	IdempotencyKey(scope, id string) string
	Ping(ctx context.Context) error
}

type webhookService interface {
	SignatureRequired() bool
	VerifySignature(in mercadopago.SignatureInput) error
	HandleNotification(ctx context.Context, n mpwebhook.Notification) (*mpwebhook.Result, error)
}

// Deps carries everything NewRouter mounts. Redis may be nil, in which case
// rate limiting and idempotency replays are disabled.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Auth     auth.Service
	Products products.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Webhooks webhookService
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	// typed nils must not reach the middleware as non-nil interfaces
	var (
		rateStore interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
			RateLimitKey(string) string
		}
		replayStore interface {
			Get(context.Context, string) (string, error)
			SetNX(context.Context, string, any, time.Duration) (bool, error)
			IdempotencyKey(string, string) string
		}
		redisPinger interface{ Ping(context.Context) error }
	)
	if d.Redis != nil {
		rateStore, replayStore, redisPinger = d.Redis, d.Redis, d.Redis
	}
	idempotency := middleware.Idempotency(replayStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, redisPinger))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", authcontrollers.Login(d.Auth, logg))
			r.Post("/logout", authcontrollers.Logout(d.Auth, logg))
			r.Post("/refresh", authcontrollers.Refresh(d.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Get("/me", authcontrollers.Me(d.Auth, logg))
		})

		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Products, logg))

		// replay middleware matches on the full route pattern, so it is
		// attached per route rather than per subrouter
		r.With(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg), idempotency).
			Post("/checkout", controllers.Checkout(d.Checkout, logg))
		r.Get("/checkout/success", ordercontrollers.CheckoutResult(ordercontrollers.OutcomeSuccess, d.Orders, logg))
		r.Get("/checkout/failure", ordercontrollers.CheckoutResult(ordercontrollers.OutcomeFailure, d.Orders, logg))
		r.Get("/checkout/pending", ordercontrollers.CheckoutResult(ordercontrollers.OutcomePending, d.Orders, logg))

		r.Get("/orders/{orderId}/payment-status", ordercontrollers.PaymentStatus(d.Orders, logg))
		r.Post("/webhooks/mercadopago", webhookcontrollers.MercadoPagoWebhook(d.Webhooks, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.With(idempotency).Post("/products", controllers.AdminProductCreate(d.Products, logg))
		r.Get("/products/stats", controllers.AdminProductStats(d.Products, logg))
		r.Put("/products/{productId}", controllers.AdminProductUpdate(d.Products, logg))
		r.Delete("/products/{productId}", controllers.AdminProductDelete(d.Products, logg))

		r.Get("/orders", ordercontrollers.AdminList(d.Orders, logg))
		r.Get("/orders/{orderId}", ordercontrollers.AdminDetail(d.Orders, logg))
	})

	return r
}
