package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
	"github.com/kreeda-labs/backend-quotes/internal/config"
	"github.com/kreeda-labs/backend-quotes/internal/extract"
	"github.com/kreeda-labs/backend-quotes/internal/ledger"
	"github.com/kreeda-labs/backend-quotes/internal/obs"
	"github.com/kreeda-labs/backend-quotes/internal/pipeline"
	"github.com/kreeda-labs/backend-quotes/internal/policy"
	"github.com/kreeda-labs/backend-quotes/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "pipeline").
		Logger()

	obs.MustRegisterDomainMetrics("quotes", nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.PriceListPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load price list")
	}
	rules, err := policy.Load(cfg.DiscountRulesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load discount rules")
	}

	eventsStore, err := store.New(cfg.EventsDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("open event store")
	}
	quotesStore, err := store.New(cfg.QuotesDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("open quote store")
	}
	outboxStore, err := store.New(cfg.OutboxDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("open outbox store")
	}

	var led ledger.Ledger
	switch cfg.LedgerBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		client := redis.NewClient(opts)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis client")
			}
		}()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("ping redis")
		}
		led = ledger.NewRedisLedger(client, "quotes", cfg.ProcessedTTL)
	default:
		fileLedger, err := ledger.NewFileLedger(cfg.LedgerDir())
		if err != nil {
			logger.Fatal().Err(err).Msg("open file ledger")
		}
		led = fileLedger
	}

	var extractor extract.Extractor
	switch cfg.Extractor {
	case "llm":
		extractor = extract.NewLLM(cat, extract.LLMConfig{
			BaseURL:        cfg.LLMBaseURL,
			APIKey:         cfg.LLMAPIKey,
			Model:          cfg.LLMModel,
			MaxRetries:     cfg.LLMMaxRetries,
			RequestTimeout: cfg.LLMRequestTimeout,
			RateLimit:      cfg.LLMRateLimit,
		})
	default:
		extractor = extract.NewFuzzy(cat)
	}

	runner := &pipeline.Runner{
		Extractor:     extractor,
		ExtractorKind: cfg.Extractor,
		Catalog:       cat,
		Rules:         rules,
		Ledger:        led,
		Events:        eventsStore,
		Quotes:        quotesStore,
		Outbox:        outboxStore,
		Logger:        logger,
	}

	logger.Info().
		Str("inbox", cfg.InboxDir).
		Str("extractor", cfg.Extractor).
		Int("catalog_products", cat.Len()).
		Msg("batch starting")

	summary, err := runner.Run(ctx, cfg.InboxDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch aborted")
	}

	logger.Info().
		Str("run_id", summary.RunID).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("batch finished")

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
