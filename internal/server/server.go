// Package server provides the service lifecycle runner.
// cmd/ binaries delegate to server.Run for signal handling, config loading,
// observability init, routing, health checks, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/zonixt/eauction/internal/config"
	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/observability"
)

// SetupDeps is handed to Params.Setup once config and observability are ready.
type SetupDeps struct {
	Config *config.Config
	Logger *slog.Logger
	Router chi.Router
}

// SetupFunc wires a service's dependencies and mounts its routes.
// The returned cleanup runs after the HTTP server has drained.
type SetupFunc func(ctx context.Context, deps SetupDeps) (cleanup func(), err error)

// Params configures a service's lifecycle runner.
type Params struct {
	// Name identifies the service in logs and telemetry.
	Name string

	// PortFromConfig extracts the HTTP port for this service from config.
	PortFromConfig func(cfg *config.Config) int

	// Setup is optional; nil serves only /healthz.
	Setup SetupFunc
}

// Run executes the full service lifecycle. If ln is non-nil, it is used
// instead of creating a new listener from config (enables port-0 testing).
func Run(ctx context.Context, p Params, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		ServiceName: p.Name,
		Environment: cfg.Environment,
	})

	// --- Startup order: tracer -> metrics -> setup -> HTTP server ---

	otelCfg := observability.OTELConfig{
		ServiceName:    p.Name,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	}
	tracerProvider, err := observability.InitTracer(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	metricsProvider, err := observability.InitMetrics(ctx, otelCfg)
	if err != nil {
		_ = tracerProvider.Shutdown(context.Background())
		return fmt.Errorf("initialize metrics: %w", err)
	}
	flushOTEL := func() {
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}
	}

	var shuttingDown atomic.Bool
	router := newRouter(cfg, logger, p.Name, &shuttingDown)

	cleanup := func() {}
	if p.Setup != nil {
		c, setupErr := p.Setup(ctx, SetupDeps{Config: cfg, Logger: logger, Router: router})
		if setupErr != nil {
			flushOTEL()
			return fmt.Errorf("setup %s: %w", p.Name, setupErr)
		}
		if c != nil {
			cleanup = c
		}
	}

	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", p.PortFromConfig(cfg)))
		if err != nil {
			cleanup()
			flushOTEL()
			return fmt.Errorf("listen: %w", err)
		}
	}

	// WriteTimeout must outlast a full three-channel OTP cascade.
	server := &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
			slog.String("environment", cfg.Environment),
		)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Shutdown order is the reverse of startup: HTTP -> setup cleanup -> metrics -> tracer.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		shuttingDown.Store(true)

		// Let the load balancer observe the failing health check.
		time.Sleep(cfg.HTTP.DrainDelay)

		httpCtx, httpCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer httpCancel()
		if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		cleanup()
		flushOTEL()

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}

// newRouter builds the chi router with the shared middleware stack and /healthz.
func newRouter(cfg *config.Config, logger *slog.Logger, name string, shuttingDown *atomic.Bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.HTTPMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	r.Use(middleware.RequestSize(domain.MaxRequestBodySize))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if shuttingDown.Load() {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "shutting_down", "service": name})
			return
		}
		render.JSON(w, r, map[string]string{"status": "healthy", "service": name})
	})

	return r
}
