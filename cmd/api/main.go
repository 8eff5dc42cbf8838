package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copperspur/rodeo-backend/api/routes"
	"github.com/copperspur/rodeo-backend/internal/auth"
	"github.com/copperspur/rodeo-backend/internal/catalog"
	checkoutsvc "github.com/copperspur/rodeo-backend/internal/checkout"
	"github.com/copperspur/rodeo-backend/internal/notify"
	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/internal/payments"
	"github.com/copperspur/rodeo-backend/internal/reconcile"
	"github.com/copperspur/rodeo-backend/internal/redemption"
	"github.com/copperspur/rodeo-backend/internal/shipping"
	moneriswebhook "github.com/copperspur/rodeo-backend/internal/webhooks/moneris"
	stripewebhook "github.com/copperspur/rodeo-backend/internal/webhooks/stripe"
	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/db"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/metrics"
	"github.com/copperspur/rodeo-backend/pkg/migrate"
	"github.com/copperspur/rodeo-backend/pkg/moneris"
	"github.com/copperspur/rodeo-backend/pkg/qr"
	"github.com/copperspur/rodeo-backend/pkg/railway"
	"github.com/copperspur/rodeo-backend/pkg/redis"
	"github.com/copperspur/rodeo-backend/pkg/resend"
	"github.com/copperspur/rodeo-backend/pkg/shiptime"
	"github.com/copperspur/rodeo-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
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
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	meters := metrics.NewWebhookMetrics(registry)

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to create stripe client", err)
		os.Exit(1)
	}
	monerisClient, err := moneris.NewClient(ctx, cfg.Moneris, logg)
	if err != nil {
		logg.Error(ctx, "failed to create moneris client", err)
		os.Exit(1)
	}
	railwayClient, err := railway.NewClient(ctx, cfg.Railway, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog client", err)
		os.Exit(1)
	}
	shiptimeClient, err := shiptime.NewClient(ctx, cfg.Shiptime, logg)
	if err != nil {
		logg.Error(ctx, "failed to create shiptime client", err)
		os.Exit(1)
	}
	resendClient, err := resend.NewClient(ctx, cfg.Resend, logg)
	if err != nil {
		logg.Error(ctx, "failed to create resend client", err)
		os.Exit(1)
	}
	qrGen, err := qr.New(cfg.QR)
	if err != nil {
		logg.Error(ctx, "failed to create qr generator", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())

	catalogSvc, err := catalog.NewService(railwayClient, redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	gatewayRouter, err := payments.NewRouter(
		payments.NewStripeGateway(stripeClient, cfg.Payments, logg),
		payments.NewMonerisGateway(monerisClient, logg),
	)
	if err != nil {
		logg.Error(ctx, "failed to create payment router", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(ordersRepo, catalogSvc, gatewayRouter, cfg.Payments, logg)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	notifyService, err := notify.NewService(resendClient, qrGen, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notify service", err)
		os.Exit(1)
	}

	shippingService, err := shipping.NewService(shiptimeClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create shipping service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(dbClient, ordersRepo, notifyService, shippingService, meters, logg)
	if err != nil {
		logg.Error(ctx, "failed to create reconcile service", err)
		os.Exit(1)
	}

	stripeGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "webhook:stripe")
	if err != nil {
		logg.Error(ctx, "failed to create stripe idempotency guard", err)
		os.Exit(1)
	}
	stripeWebhookService, err := stripewebhook.NewService(stripeClient, reconcileService, stripeGuard, logg)
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	monerisWebhookService, err := moneriswebhook.NewService(monerisClient, reconcileService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create moneris webhook service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, reconcileService, stripeClient, notifyService)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	redemptionService, err := redemption.NewService(ordersRepo, meters, logg)
	if err != nil {
		logg.Error(ctx, "failed to create redemption service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(cfg.Staff, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		Redis:   redisClient,
		QR:      qrGen,
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		AuthService:     authService,
		CheckoutService: checkoutService,
		ShippingService: shippingService,
		Redemption:      redemptionService,
		Orders:          ordersService,
		StripeWebhook:   stripeWebhookService,
		MonerisWebhook:  monerisWebhookService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}
