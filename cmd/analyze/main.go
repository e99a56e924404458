// Package main runs a single wallet analysis against the configured backends
// and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wallet-insights/internal/adapter"
	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/storage"
)

func main() {
	addrFlag := flag.String("address", "", "Wallet address to analyze (required)")
	roastFlag := flag.Bool("roast", false, "Ask the model for a roast section")
	sectionsFlag := flag.Bool("sections", false, "Print only the parsed insight sections as plain text")
	historyFlag := flag.Int("history", 0, "Also print up to N past analyses (requires ClickHouse)")
	flag.Parse()

	if *addrFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: analyze -address 0x... [-roast] [-sections] [-history N]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays valid JSON
	logger := logging.NewLoggerWithOutput(logging.ParseLogLevel(cfg.Logging.Level), logging.FormatText, os.Stderr)
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	if err := run(ctx, cfg, *addrFlag, *roastFlag, *sectionsFlag, *historyFlag); err != nil {
		logger.WithError(err).Error("Analysis failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, address string, roast, sectionsOnly bool, history int) error {
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer redis.Close()

	var recorder service.AnalysisRecorder = storage.NoopRecorder{}
	if cfg.Database.ClickHouse.Enabled {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			return err
		}
		defer clickhouse.Close()
		recorder = storage.NewAnalysisHistoryRepository(clickhouse)
	}

	store := storage.NewCachedWalletStore(
		storage.NewWalletRepository(postgres.Pool()),
		storage.NewCacheService(redis, cfg.Cache.TTL),
	)

	oneInch := adapter.NewOneInchClient(cfg.OneInch)
	llm := adapter.NewLLMClient(cfg.LLM)
	if err := adapter.ApplyQuotas(redis.Client(), cfg.Quota, oneInch, llm); err != nil {
		return err
	}

	svc := service.NewAnalysisService(
		store,
		oneInch,
		llm,
		recorder,
		service.NewRiskClassifier(cfg.Risk.ScamContracts, cfg.Risk.HighRiskContracts),
		service.NewPerformanceAggregator(),
		cfg.Cache.SnapshotFreshness,
	)

	result, err := svc.Analyze(ctx, service.AnalyzeInput{Address: address, IncludeRoast: roast})
	if err != nil {
		return err
	}

	if sectionsOnly {
		if !result.ParsedInsights.IsValid() {
			fmt.Println("No insights available")
		} else if !result.ParsedInsights.HasExpectedSections() {
			fmt.Fprintln(os.Stderr, "Warning: the model ignored the requested section layout")
		}
		for _, sec := range result.ParsedInsights.Sections {
			fmt.Printf("== %s ==\n%s\n\n", sec.Title, sec.Content)
		}
		if result.ParsedInsights.Roast != nil {
			fmt.Printf("== Roast ==\n%s\n", *result.ParsedInsights.Roast)
		}
		return nil
	}

	out := map[string]interface{}{"analysis": result}
	if history > 0 {
		records, err := svc.History(ctx, address, history)
		if err != nil {
			return err
		}
		out["history"] = records
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
