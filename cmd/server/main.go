// Package main provides the API server entry point for the wallet insights service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-insights/internal/adapter"
	"github.com/wallet-insights/internal/api"
	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/storage"
)

const (
	clickHouseMigrationsPath = "migrations/clickhouse"
	leaderboardNetwork       = "mainnet"
)

func main() {
	fmt.Println("Wallet Insights API Server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx := logging.WithLogger(context.Background(), logger)

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	// Analysis history is optional
	var recorder service.AnalysisRecorder = storage.NoopRecorder{}
	var clickhouse *storage.ClickHouseDB
	if cfg.Database.ClickHouse.Enabled {
		clickhouse, err = storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		if err := storage.RunClickHouseMigrations(ctx, clickhouse, clickHouseMigrationsPath); err != nil {
			logger.WithError(err).Fatal("Failed to apply ClickHouse migrations")
		}
		recorder = storage.NewAnalysisHistoryRepository(clickhouse)
	} else {
		logger.Warn("ClickHouse disabled - analysis history will not be recorded")
	}

	logger.Info("Database connections established")

	// Storage
	walletRepo := storage.NewWalletRepository(postgres.Pool())
	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)
	walletStore := storage.NewCachedWalletStore(walletRepo, cacheService)

	// Upstream clients
	oneInch := adapter.NewOneInchClient(cfg.OneInch)
	llm := adapter.NewLLMClient(cfg.LLM)
	if cfg.OneInch.APIKey == "" {
		logger.Warn("ONEINCH_API_KEY not set - market data requests will likely be rejected")
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("LLM_API_KEY not set - insights will be unavailable")
	}
	if err := adapter.ApplyQuotas(redis.Client(), cfg.Quota, oneInch, llm); err != nil {
		logger.WithError(err).Fatal("Failed to configure upstream quotas")
	}

	// Services
	analysisService := service.NewAnalysisService(
		walletStore,
		oneInch,
		llm,
		recorder,
		service.NewRiskClassifier(cfg.Risk.ScamContracts, cfg.Risk.HighRiskContracts),
		service.NewPerformanceAggregator(),
		cfg.Cache.SnapshotFreshness,
	)
	leaderboardService := service.NewLeaderboardService(walletStore, leaderboardNetwork)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second, // covers a slow model response
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, analysisService, leaderboardService, logger)
	server.RegisterHealthCheck("postgres", postgres.Ping)
	server.RegisterHealthCheck("redis", redis.Ping)
	if clickhouse != nil {
		server.RegisterHealthCheck("clickhouse", clickhouse.Ping)
	}
	server.RegisterBreaker("oneinch", oneInch)
	server.RegisterBreaker("llm", llm)

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	server.RateLimiter().StartEviction(evictCtx, time.Minute, 10*time.Minute)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
