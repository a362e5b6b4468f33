package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/kreeda-labs/backend-quotes/internal/config"
	"github.com/kreeda-labs/backend-quotes/internal/health"
	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
	"github.com/kreeda-labs/backend-quotes/internal/ledger"
	"github.com/kreeda-labs/backend-quotes/internal/obs"
	"github.com/kreeda-labs/backend-quotes/internal/quote"
	"github.com/kreeda-labs/backend-quotes/internal/store"
)

const metricsNamespace = "quotes"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "api").
		Logger()

	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, nil, nil)

	quotesStore, err := store.New(cfg.QuotesDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("open quote store")
	}
	eventsStore, err := store.New(cfg.EventsDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("open event store")
	}

	var (
		led         ledger.Ledger
		redisClient *redis.Client
	)
	switch cfg.LedgerBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis client")
			}
		}()
		led = ledger.NewRedisLedger(redisClient, metricsNamespace, cfg.ProcessedTTL)
	default:
		fileLedger, err := ledger.NewFileLedger(cfg.LedgerDir())
		if err != nil {
			logger.Fatal().Err(err).Msg("open file ledger")
		}
		led = fileLedger
	}

	healthHandler := health.Handler{Checker: readinessChecker{
		redis:     redisClient,
		ledgerDir: cfg.LedgerDir(),
		dataDir:   cfg.DataDir,
	}}
	quoteHandler := &quote.Handler{Store: quotesStore}
	eventHandler := &inquiry.Handler{Store: eventsStore}
	activityHandler := &ledger.Handler{Ledger: led}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/quotes", quoteHandler.List)
		v.Get("/quotes/{emailID}", quoteHandler.Get)
		v.Get("/events", eventHandler.List)
		v.Get("/events/{emailID}", eventHandler.Get)
		v.Get("/activity", activityHandler.Activity)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// readinessChecker probes the ledger backend and the data directory.
type readinessChecker struct {
	redis     *redis.Client
	ledgerDir string
	dataDir   string
}

func (c readinessChecker) PingLedger(ctx context.Context, timeout time.Duration) error {
	if c.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.redis.Ping(ctx).Err()
	}
	if _, err := os.Stat(c.ledgerDir); err != nil {
		return err
	}
	return nil
}

func (c readinessChecker) PingData(_ context.Context, _ time.Duration) error {
	if _, err := os.Stat(c.dataDir); err != nil {
		return err
	}
	return nil
}
