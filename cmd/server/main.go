package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/web3-frozen/miner-dashboard/internal/config"
	"github.com/web3-frozen/miner-dashboard/internal/handler"
	"github.com/web3-frozen/miner-dashboard/internal/middleware"
	"github.com/web3-frozen/miner-dashboard/internal/monitor"
	"github.com/web3-frozen/miner-dashboard/internal/monitor/sources"
	"github.com/web3-frozen/miner-dashboard/internal/settings"
	"github.com/web3-frozen/miner-dashboard/internal/tracing"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	tp, tracer, err := tracing.Init(ctx, cfg.TracingEnabled, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Settings store and credentials
	store, err := settings.Open(ctx, settings.Options{
		Backend:       cfg.SettingsBackend,
		RedisURL:      cfg.RedisURL,
		RedisPassword: cfg.RedisPassword,
		DatabaseURL:   cfg.DatabaseURL,
	}, logger)
	if err != nil {
		logger.Error("failed to open settings store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	seed := monitor.Credentials{PoolAPIKey: cfg.PoolAPIKey, WalletAddress: cfg.WalletAddress}
	creds, err := settings.LoadCredentials(ctx, store, seed)
	if err != nil {
		logger.Warn("failed to load persisted credentials, using environment", "error", err)
	}

	// Sources, in display order
	var price sources.PriceFeed
	switch cfg.PriceFeed {
	case "binance":
		price = sources.NewBinance(cfg.BinanceURL, cfg.BinanceSymbol, cfg.FetchTimeout)
	default:
		price = sources.NewBlockchainTicker(cfg.TickerURL, cfg.TickerCurrency, cfg.FetchTimeout)
	}

	registry := monitor.NewRegistry(creds)
	registry.Register(sources.NewFearGreed(tracer, cfg.FearGreedURL, cfg.FetchTimeout))
	registry.Register(sources.NewLedger(tracer, cfg.BalanceURL, price, cfg.FetchTimeout))
	registry.Register(sources.NewPool(tracer, cfg.FetchTimeout,
		sources.WithPoolURL(cfg.PoolURL),
		sources.WithPoolAuthHeader(cfg.PoolAuthHeader),
		sources.WithPoolCoin(cfg.PoolCoin),
	))
	logger.Info("sources registered",
		"sources", registry.SourceNames(),
		"price_feed", price.Name(),
		"pool_enabled", creds.PoolAPIKey != "",
		"ledger_enabled", creds.WalletAddress != "",
	)

	// Aggregation engine and scheduler
	snapshots := monitor.NewStore()
	engine := monitor.NewEngine(registry, snapshots, logger,
		monitor.WithFetchTimeout(cfg.FetchTimeout),
		monitor.WithTracer(tracer),
	)
	scheduler := monitor.NewScheduler(monitor.SchedulerConfig{
		Tick:        cfg.TickInterval,
		Interval:    cfg.PollIntervalTicks,
		Grace:       cfg.PollGraceTicks,
		PollOnStart: cfg.PollOnStart,
	}, engine, logger)

	// Start background goroutines
	go scheduler.Run(ctx)
	go monitor.LogChanges(ctx, snapshots, logger)
	monitor.ExportAge(snapshots, time.Now)

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(store))

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", handler.Snapshot(snapshots, 2*scheduler.Config().EffectiveInterval()))
		r.Get("/credentials", handler.GetCredentials(registry))
		r.Put("/credentials", handler.PutCredentials(registry, store, logger))
		r.Post("/cycle", handler.RunCycle(engine, logger))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := settings.SaveCredentials(shutdownCtx, store, registry.Credentials()); err != nil {
		logger.Error("failed to save credentials", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}
}
