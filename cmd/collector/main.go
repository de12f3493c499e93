package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/millionvolts/adgather/internal/api"
	"github.com/millionvolts/adgather/internal/config"
	"github.com/millionvolts/adgather/internal/delivery"
	"github.com/millionvolts/adgather/internal/fetcher"
	"github.com/millionvolts/adgather/internal/model"
	"github.com/millionvolts/adgather/internal/reconcile"
	"github.com/millionvolts/adgather/internal/roster"
	"github.com/millionvolts/adgather/internal/scheduler"
	"github.com/millionvolts/adgather/internal/store"
	"github.com/millionvolts/adgather/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until the config says otherwise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting collector",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	flags, err := config.ParseModeFlags()
	if err != nil {
		logger.Error("failed to parse mode flags", "error", err)
		os.Exit(1)
	}
	if err := flags.ApplyMode(cfg); err != nil {
		logger.Error("failed to apply mode flags", "error", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.Log)
	slog.SetDefault(logger)

	accounts := roster.Accounts(cfg.Accounts)
	logger.Info("configuration loaded",
		"accounts", len(accounts),
		"billing_accounts", countBilling(accounts),
		"interval", cfg.Scheduler.Interval,
		"init_only", cfg.Scheduler.InitOnly,
		"billing_mode", cfg.Scheduler.BillingMode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	baselineStore, cleanup, err := buildStore(ctx, cfg, flags, logger)
	if err != nil {
		logger.Error("failed to set up baseline store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	client := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.AccessToken,
		api.WithVersion(cfg.API.Version),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithLogger(logger),
		api.WithGraphQLURL(cfg.API.GraphQLURL),
		api.WithPageLimit(cfg.API.PageLimit),
	)

	gate := delivery.NewGate(
		cfg.Delivery.URL,
		delivery.Meta{
			User: cfg.Meta.User,
			Geo:  cfg.Meta.Geo,
			Sign: cfg.Meta.Sign,
		},
		delivery.WithTimeout(cfg.Delivery.Timeout),
		delivery.WithLogger(logger),
	)

	sched := scheduler.New(
		scheduler.Config{
			Interval:       cfg.Scheduler.Interval,
			Concurrency:    cfg.Scheduler.Concurrency,
			InitOnly:       cfg.Scheduler.InitOnly,
			BillingMode:    cfg.Scheduler.BillingMode,
			Range:          rangeFromConfig(cfg.Range),
			InitAckTimeout: cfg.Scheduler.InitAckTimeout,
			InitAckPoll:    cfg.Scheduler.InitAckPoll,
		},
		accounts,
		fetcher.New(client, logger),
		reconcile.NewEngine(baselineStore, logger),
		gate,
		baselineStore,
		logger,
	)

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-sched.Done():
		logger.Info("scheduler finished")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Error("scheduler shutdown timed out", "error", err)
		os.Exit(1)
	}

	logger.Info("collector stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// buildStore constructs the configured baseline store and hydrates it. The
// already-initialized mode flag marks a memory store initialized up front,
// for deployments where the downstream collector still holds the baselines.
func buildStore(ctx context.Context, cfg *config.CollectorConfig, flags *config.ModeFlags, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := store.Connect(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := pg.Load(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if flags.BillingInited != nil && *flags.BillingInited && !pg.Initialized() {
			if err := pg.MarkInitialized(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pg, pool.Close, nil
	default:
		mem := store.NewMemoryStore()
		if flags.BillingInited != nil && *flags.BillingInited {
			if err := mem.MarkInitialized(ctx); err != nil {
				return nil, nil, err
			}
		}
		return mem, func() {}, nil
	}
}

func rangeFromConfig(cfg config.RangeConfig) model.DateRange {
	return model.DateRange{Since: cfg.Since, Until: cfg.Until}
}

func countBilling(accounts []model.Account) int {
	n := 0
	for _, a := range accounts {
		if a.Billing {
			n++
		}
	}
	return n
}
