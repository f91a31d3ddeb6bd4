// Package app wires the API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bazaar/internal/checkout"
	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/domain/opinion"
	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/payment"
	"github.com/xenking/bazaar/internal/domain/wallet"
	"github.com/xenking/bazaar/internal/handler"
	"github.com/xenking/bazaar/internal/repository"
	"github.com/xenking/bazaar/pkg/health"
	"github.com/xenking/bazaar/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the listing
// expiry sweep, and handles graceful shutdown. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	db := repository.NewDB(pool)
	listingRepo := repository.NewListingRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	opinionRepo := repository.NewOpinionRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Payment provider client, traced like inbound requests.
	checkoutClient := checkout.New(checkout.Config{
		APIURL:    cfg.Payment.APIURL,
		SecretKey: cfg.Payment.SecretKey,
		Currency:  cfg.Payment.Currency,
		Timeout:   cfg.Payment.Timeout,
	}, checkout.WithTransport(otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)))

	// Domain services.
	listingSvc := listing.NewService(listingRepo)
	ledger := wallet.NewLedger(walletRepo, orderRepo, profileRepo)
	orderSvc := order.NewService(db, listingSvc, orderRepo, ledger, profileRepo, checkoutClient)
	opinionSvc := opinion.NewService(opinionRepo, orderRepo)
	reconciler, err := payment.NewReconciler(
		payment.NewVerifier(cfg.Payment.WebhookSecret, cfg.Payment.SignatureTolerance),
		orderSvc,
		m.MeterProvider().Meter("bazaar"),
	)
	if err != nil {
		return errors.Wrap(err, "create reconciler")
	}

	h := handler.New(
		handler.Config{PublicURL: cfg.PublicURL},
		handler.NewAuthenticator(cfg.Auth.Secret),
		listingSvc,
		orderSvc,
		ledger,
		opinionSvc,
		reconciler,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Payment.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", "Authorization"},
				ExposeHeaders:    []string{"X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isHealthCheck,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("bazaar-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweepListings(gctx, listingSvc, cfg.Expiry.Interval)
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	healthSvc.SetReady(true)
	return g.Wait()
}

// isHealthCheck reports health endpoints, which are exempt from rate limiting.
func isHealthCheck(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
