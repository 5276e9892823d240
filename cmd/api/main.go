package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/audiophile-commerce/storefront-backend/api/routes"
	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	"github.com/audiophile-commerce/storefront-backend/internal/cart"
	"github.com/audiophile-commerce/storefront-backend/internal/checkout"
	"github.com/audiophile-commerce/storefront-backend/internal/notifications"
	"github.com/audiophile-commerce/storefront-backend/internal/orders"
	"github.com/audiophile-commerce/storefront-backend/internal/overlay"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	"github.com/audiophile-commerce/storefront-backend/pkg/config"
	"github.com/audiophile-commerce/storefront-backend/pkg/db"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/metrics"
	"github.com/audiophile-commerce/storefront-backend/pkg/migrate"
	"github.com/audiophile-commerce/storefront-backend/pkg/redis"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	carts := cart.NewManager(cart.NewRedisStorage(redisClient, cfg.Cart), logg)
	snapshots := bridge.NewRedisBridge(redisClient, cfg.Checkout.BridgeTTL)

	ordersRepo := orders.NewRepository(dbClient.DB())
	orderStore, err := orders.NewStore(ordersRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create order store", err)
		os.Exit(1)
	}

	var notifier notifications.Service
	if cfg.Notifier.GatewayURL != "" {
		notifier, err = notifications.NewGateway(cfg.Notifier, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notification gateway", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "notification gateway url not set, order confirmations disabled")
	}

	checkouts := checkout.NewManager(checkout.ManagerDeps{
		Carts:      carts,
		OrderStore: orderStore,
		Snapshots:  snapshots,
		Notifier:   notifier,
		Pricing: pricing.Config{
			TaxRate:     cfg.Checkout.TaxRateDecimal(),
			ShippingFee: types.Cents(cfg.Checkout.ShippingFeeCents),
		},
		RemoteBudget: cfg.Checkout.RemoteBudget,
		Metrics:      checkoutMetrics,
		Logger:       logg,
	})
	overlays := overlay.NewCoordinator(checkouts, carts, logg)
	checkouts.SetOverlays(overlays)

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
		Handler: routes.NewRouter(
			cfg, logg,
			dbClient, redisClient, redisClient, redisClient,
			carts, checkouts, overlays, snapshots,
			registry,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}
