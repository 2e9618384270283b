// Package app wires configuration, storage, domain services and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata" // Timezone must resolve in minimal images.

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/scan-and-go/internal/domain/analytics"
	"github.com/xenking/scan-and-go/internal/domain/catalog"
	"github.com/xenking/scan-and-go/internal/domain/order"
	"github.com/xenking/scan-and-go/internal/gateway"
	"github.com/xenking/scan-and-go/internal/handler"
	"github.com/xenking/scan-and-go/internal/seed"
	"github.com/xenking/scan-and-go/internal/storage/memory"
	"github.com/xenking/scan-and-go/internal/storage/postgres"
	"github.com/xenking/scan-and-go/pkg/health"
	"github.com/xenking/scan-and-go/pkg/httpmiddleware"
)

const serviceName = "scan-and-go"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	ctx = zctx.Base(ctx, lg)
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Catalog is loaded once; a broken seed is fatal.
	cat, err := seed.Catalog(ctx, seed.Source{
		StoresFile:   cfg.Catalog.StoresFile,
		ProductsFile: cfg.Catalog.ProductsFile,
	})
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.AddReadinessCheck("catalog", time.Second, catalogCheck(cat))

	orders, closeStorage, err := openStorage(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeStorage()

	orderService, err := order.NewService(cat, orders,
		order.WithMeter(m.MeterProvider().Meter(serviceName+"/order")),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	gatewayCfg := gateway.Config{
		BaseURL:      cfg.Gateway.BaseURL,
		ClientID:     cfg.Gateway.ClientID,
		ClientSecret: cfg.Gateway.ClientSecret,
		Timeout:      cfg.Gateway.Timeout,
	}
	payments := gateway.New(gatewayCfg,
		gateway.WithTracerProvider(m.TracerProvider()),
		gateway.WithMeterProvider(m.MeterProvider()),
	)
	if !payments.Enabled() {
		lg.Info("Payment gateway disabled, payment sessions unavailable")
	}

	h := handler.NewHandler(cat, orderService, analytics.NewAggregator(orders, loc), payments)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// openStorage selects PostgreSQL when a database URL is configured and the
// in-memory repository otherwise.
func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, h *health.Health) (order.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		lg.Warn("No database configured, orders are kept in memory")
		return memory.NewOrderRepository(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	h.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

	return postgres.NewOrderRepository(pool), pool.Close, nil
}

func catalogCheck(c *catalog.Catalog) health.CheckFunc {
	return func(context.Context) error {
		if stores, products := c.Len(); stores == 0 || products == 0 {
			return errors.Errorf("catalog has %d stores and %d products", stores, products)
		}
		return nil
	}
}
