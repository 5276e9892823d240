package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/audiophile-commerce/storefront-backend/api/controllers"
	"github.com/audiophile-commerce/storefront-backend/api/middleware"
	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	cartsvc "github.com/audiophile-commerce/storefront-backend/internal/cart"
	checkoutsvc "github.com/audiophile-commerce/storefront-backend/internal/checkout"
	overlaysvc "github.com/audiophile-commerce/storefront-backend/internal/overlay"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	"github.com/audiophile-commerce/storefront-backend/pkg/config"
	"github.com/audiophile-commerce/storefront-backend/pkg/db"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	pkgredis "github.com/audiophile-commerce/storefront-backend/pkg/redis"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// NewRouter assembles the HTTP surface: health probes, Prometheus metrics,
// and the versioned cart, checkout and overlay APIs. Every /api/v1 route runs
// behind the session cookie middleware; the checkout submit additionally runs
// behind idempotency replay when a store is provided.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cacheP pkgredis.Pinger,
	idempotency pkgredis.IdempotencyStore,
	limiter pkgredis.CounterStore,
	carts *cartsvc.Manager,
	checkouts *checkoutsvc.Manager,
	overlays *overlaysvc.Coordinator,
	snapshots bridge.Bridge,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	pricingCfg := pricing.Config{
		TaxRate:     cfg.Checkout.TaxRateDecimal(),
		ShippingFee: types.Cents(cfg.Checkout.ShippingFeeCents),
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cacheP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg, cfg.App.IsProd()))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(carts, pricingCfg, logg))
			r.Delete("/", controllers.CartClear(carts, pricingCfg, logg))
			r.Post("/items", controllers.CartAddItem(carts, pricingCfg, logg))
			r.Put("/items/{itemId}", controllers.CartSetQuantity(carts, pricingCfg, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(carts, pricingCfg, logg))
		})

		// Registered flat so the route pattern the idempotency rules match
		// against is exactly /api/v1/checkout.
		submitPolicy := middleware.NewSubmitRateLimitPolicy(cfg.Checkout.SubmitRateWindow, cfg.Checkout.SubmitRateLimit)
		if idempotency != nil {
			r.With(
				middleware.SubmitRateLimit(submitPolicy, limiter, logg),
				middleware.Idempotency(idempotency, cfg.Checkout.IdempotencyTTL, logg),
			).Post("/checkout", controllers.CheckoutSubmit(checkouts, logg))
		} else {
			r.With(middleware.SubmitRateLimit(submitPolicy, limiter, logg)).Post("/checkout", controllers.CheckoutSubmit(checkouts, logg))
		}
		r.Get("/checkout/confirmation", controllers.CheckoutConfirmation(snapshots, carts, pricingCfg, logg))
		r.Post("/checkout/dismiss", controllers.CheckoutDismiss(checkouts, logg))

		r.Route("/overlay", func(r chi.Router) {
			r.Get("/", controllers.OverlayState(overlays, logg))
			r.Post("/cart/open", controllers.OverlayOpenCart(overlays, logg))
			r.Post("/cart/close", controllers.OverlayCloseCart(overlays, logg))
			r.Post("/confirmation/dismiss", controllers.OverlayDismissConfirmation(overlays, logg))
		})
	})

	return r
}
