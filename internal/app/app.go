// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jfs-fashion/storefront/internal/checkout"
	"github.com/jfs-fashion/storefront/internal/domain/cart"
	"github.com/jfs-fashion/storefront/internal/domain/order"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/events"
	"github.com/jfs-fashion/storefront/internal/handler"
	"github.com/jfs-fashion/storefront/internal/paymentgw"
	"github.com/jfs-fashion/storefront/internal/storage/postgres"
	"github.com/jfs-fashion/storefront/internal/storage/redis"
	"github.com/jfs-fashion/storefront/pkg/health"
	"github.com/jfs-fashion/storefront/pkg/httpmiddleware"
)

const serviceName = "jfs-storefront"

// Run creates all dependencies, serves HTTP until ctx is cancelled and then
// shuts down gracefully. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("cart_store", cfg.Cart.Store),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = rdb.Close() }()
	}

	healthSvc := health.New()
	healthSvc.Add(health.Check{
		Name:    "postgres",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(pool),
	})
	if rdb != nil {
		healthSvc.Add(health.Check{
			Name:    "redis",
			Kind:    health.Readiness,
			Timeout: 2 * time.Second,
			Func:    health.PingCheck(rdb),
		})
	}
	healthSvc.Add(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(10000),
	})

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	zoneRepo := postgres.NewShippingRepository(pool)
	promoRepo := postgres.NewPromotionRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	var cartRepo cart.Repository = postgres.NewCartRepository(pool)
	if cfg.Cart.Store == CartStoreRedis {
		cartRepo = redis.NewCartRepository(rdb, cfg.Cart.TTL)
	}

	publisher, closePublisher := newPublisher(lg, cfg.Events)
	defer func() {
		if err := closePublisher(); err != nil {
			lg.Warn("Close event publisher", zap.Error(err))
		}
	}()

	payments, err := paymentgw.NewClient(paymentgw.Config{
		BaseURL:     cfg.Payment.BaseURL,
		SecretKey:   cfg.Payment.SecretKey,
		CallbackURL: cfg.Payment.CallbackURL,
		Timeout:     cfg.Payment.Timeout,
	}, m.TracerProvider())
	if err != nil {
		return errors.Wrap(err, "create payment client")
	}

	// Domain services.
	promos := promotion.NewRepoValidator(promoRepo)
	cartService := cart.NewService(cartRepo, catalogRepo)
	orderService := order.NewService(catalogRepo, zoneRepo, promos, promos, orderRepo, publisher)
	orchestrator, err := checkout.New(cartService, zoneRepo, promos, orderService, payments, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create checkout")
	}

	h := handler.New(handler.Config{ImageBaseURL: cfg.ImageBaseURL}, handler.Deps{
		Catalog:  catalogRepo,
		Zones:    zoneRepo,
		Promos:   promos,
		Carts:    cartService,
		Orders:   orderService,
		Checkout: orchestrator,
		Payments: payments,
	})

	var protect httpmiddleware.Middleware
	if cfg.Auth.Disabled {
		lg.Warn("Route protection disabled")
	} else {
		protect = httpmiddleware.RequireAuth(httpmiddleware.AuthConfig{
			Secret:     []byte(cfg.Auth.JWTSecret),
			CookieName: cfg.Auth.CookieName,
			Leeway:     30 * time.Second,
		})
	}

	g, gCtx := errgroup.WithContext(ctx)

	var limiter httpmiddleware.Limiter
	if rdb != nil {
		limiter = httpmiddleware.NewFixedWindow(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window)
	} else {
		sw := httpmiddleware.NewSlidingWindow(cfg.RateLimit.Max, cfg.RateLimit.Window)
		g.Go(func() error {
			if err := sw.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		limiter = sw
	}

	router := newRouter(h, healthSvc, protect, m.TracerProvider(), m.MeterProvider())
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Limiter: limiter,
				Skip:    isProbe,
			}),
		),
	}

	g.Go(func() error {
		return healthSvc.Run(gCtx, 10*time.Second)
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// newRouter mounts the probes and the API. Instrumentation and request
// logging run inside the router so they see the matched route pattern.
func newRouter(
	h *handler.Handler,
	healthSvc *health.Health,
	protect httpmiddleware.Middleware,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Instrument(serviceName, tp, mp),
		httpmiddleware.LogRequests(),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Route("/api", func(r chi.Router) {
		h.Routes(r, protect)
	})
	return r
}

func newPublisher(lg *zap.Logger, cfg EventsConfig) (order.Publisher, func() error) {
	if len(cfg.Brokers) == 0 {
		lg.Info("Order events disabled: no brokers configured")
		return events.Noop{}, func() error { return nil }
	}
	p := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	lg.Info("Publishing order events",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return p, p.Close
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
