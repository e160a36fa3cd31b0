package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"gigmarket/pkg/cache"
	"gigmarket/pkg/config"
	"gigmarket/pkg/contracts"
	"gigmarket/pkg/middleware"
)

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      middleware.Limiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	closers          []func()
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// OnShutdown registers fn to run after the server stops, in reverse order.
func (a *Application) OnShutdown(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *Application) SetApp(appHandlers ...contracts.Handler) {
	a.setHealthHandler()
	a.setAppHandler(appHandlers)
	a.setAppServer()
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	healthHandler := NewHealthHandler(a.cfg.Client.Mongo, a.cfg.Client.Redis, a.cfg.Log)
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandlers []contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range appHandlers {
		h.RegisterRoutes(appRouter)
	}

	if a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.Log)
		a.rateLimiter = middleware.NewRedisRateLimiter(a.cfg.Client.Redis, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, a.cfg.Log)
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
		a.rateLimiter = middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
	}

	var appHTTPHandler http.Handler = appRouter
	appHTTPHandler = cache.ScopeHandler(appHTTPHandler)
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore, middleware.DefaultIdempotencyHeader)(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.RateLimit(a.rateLimiter, middleware.AccountKeyExtractor, a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Authenticate(a.cfg.JWTSecret, a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.appHTTPHandler = appHTTPHandler
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHTTPHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.cfg.GracefulShutdown()

	a.cfg.Log.Info("Server stopped gracefully")
}
