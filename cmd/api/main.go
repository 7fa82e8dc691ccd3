package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tamaverse/pet-auction-backend/internal/api/rest"
	"github.com/tamaverse/pet-auction-backend/internal/api/ws"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/cache"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/config"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/database"
	infranotification "github.com/tamaverse/pet-auction-backend/internal/infrastructure/notification"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/repository"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/telemetry"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
	"github.com/tamaverse/pet-auction-backend/internal/service/notification"
	"github.com/tamaverse/pet-auction-backend/internal/service/settlement"
)

const serviceVersion = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init zap: %w", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    "pet-auction-backend",
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	pool, err := database.NewPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(&cfg.Redis, zapLogger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)
	limiter := cache.NewRedisRateLimiter(redisClient, zapLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMarketMetrics(registry)

	settlementSvc := settlement.NewService(store, cfg.Market, logger)
	marketSvc := market.NewService(store, settlementSvc, limiter, cfg.Market, logger)

	hub := ws.NewHub([]byte(cfg.Security.JWTSecret), logger)
	go hub.Run()

	telegram := infranotification.NewTelegramClient(&cfg.Telegram, zapLogger)
	dispatcher := notification.NewDispatcher(store, store, telegram, 5*time.Second, logger, metrics, hub)

	go settlementSvc.Run(ctx)
	go dispatcher.Run(ctx)

	router := rest.NewRouter(rest.RouterConfig{
		Handler:   rest.NewHandler(marketSvc, settlementSvc, logger),
		Health:    rest.NewHealthHandler(store),
		Hub:       hub,
		JWTSecret: []byte(cfg.Security.JWTSecret),
		Registry:  registry,
		Logger:    logger,
	})

	server := rest.NewServer(&cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return server.Shutdown(context.Background())
}
