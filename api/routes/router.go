package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copperspur/rodeo-backend/api/controllers"
	webhookcontrollers "github.com/copperspur/rodeo-backend/api/controllers/webhooks"
	"github.com/copperspur/rodeo-backend/api/middleware"
	"github.com/copperspur/rodeo-backend/internal/auth"
	checkoutsvc "github.com/copperspur/rodeo-backend/internal/checkout"
	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/internal/redemption"
	"github.com/copperspur/rodeo-backend/internal/shipping"
	moneriswebhook "github.com/copperspur/rodeo-backend/internal/webhooks/moneris"
	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/db"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/qr"
	pkgredis "github.com/copperspur/rodeo-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs:
// idempotency records, login rate-limit counters, and readiness pings.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   RedisStore
	QR      *qr.Generator
	Metrics http.Handler

	AuthService     auth.Service
	CheckoutService checkoutsvc.Service
	ShippingService shipping.Service
	Redemption      redemption.Service
	Orders          orders.Service
	StripeWebhook   StripeWebhookProcessor
	MonerisWebhook  MonerisWebhookProcessor
}

// StripeWebhookProcessor handles a raw Stripe delivery.
type StripeWebhookProcessor interface {
	Process(ctx context.Context, payload []byte, sigHeader string) error
}

// MonerisWebhookProcessor handles a decoded Moneris callback.
type MonerisWebhookProcessor interface {
	Process(ctx context.Context, callback moneriswebhook.Callback, payload []byte) error
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginDeviceLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())

		r.With(middleware.Idempotency(deps.Redis, logg)).
			Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))
		r.Post("/shipping/rates", controllers.ShippingRates(deps.ShippingService, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, logg))
			r.Post("/moneris", webhookcontrollers.MonerisWebhook(deps.MonerisWebhook, logg))
		})

		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/auth/staff", controllers.StaffLogin(deps.AuthService, logg))

		r.Route("/scan", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireAnyRole(logg, enums.StaffRoleScanner, enums.StaffRoleAdmin))
			r.Get("/ping", controllers.StaffPing())
			r.Post("/ticket", controllers.ScanTicket(deps.Redemption, deps.QR, logg))
			r.Post("/bar", controllers.RedeemBarCredit(deps.Redemption, deps.QR, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(enums.StaffRoleAdmin, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
				r.Get("/search", controllers.AdminSearchOrders(deps.Orders, logg))
				r.Get("/{code}", controllers.AdminGetOrder(deps.Orders, logg))
				r.Post("/{code}/confirm", controllers.AdminConfirmOrder(deps.Orders, logg))
				r.Post("/{code}/refund", controllers.AdminRefundOrder(deps.Orders, logg))
				r.Post("/{code}/resend-email", controllers.AdminResendEmail(deps.Orders, logg))
				r.Post("/{code}/rfid-tags", controllers.AdminAttachRFIDTags(deps.Orders, logg))
			})
		})
	})

	return r
}
