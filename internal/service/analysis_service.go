package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/insights"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Collaborator interfaces for dependency injection

// WalletStore persists one snapshot per address
type WalletStore interface {
	// FindByAddress returns nil, nil when no snapshot is stored
	FindByAddress(ctx context.Context, address string) (*models.WalletSnapshot, error)
	Upsert(ctx context.Context, snapshot *models.WalletSnapshot) (*models.WalletSnapshot, error)
	List(ctx context.Context, q models.LeaderboardQuery) ([]*models.WalletSnapshot, error)
}

// MarketDataProvider reads wallet activity from the market data API.
// Implementations never fail; they return empty values instead.
type MarketDataProvider interface {
	GetTransactionHistory(ctx context.Context, address string) []types.Transaction
	GetPortfolioValue(ctx context.Context, address string) float64
	GetTokenPerformance(ctx context.Context, address string) []types.TokenPerformanceRecord
}

// InsightsGenerator produces raw narrative insights for a snapshot
type InsightsGenerator interface {
	GenerateInsights(ctx context.Context, snapshot *models.WalletSnapshot, includeRoast bool) (string, error)
}

// AnalysisRecorder keeps the append-only analysis history
type AnalysisRecorder interface {
	Record(ctx context.Context, record *models.AnalysisRecord) error
	ListByAddress(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error)
}

// AnalyzeInput represents input for analyzing a wallet
type AnalyzeInput struct {
	Address      string `json:"address"`
	IncludeRoast bool   `json:"includeRoast"`
}

// AnalyzeResult is the outcome of one analysis request
type AnalyzeResult struct {
	Wallet            *models.WalletSnapshot `json:"wallet"`
	Insights          string                 `json:"insights"`
	ParsedInsights    *insights.Result       `json:"parsedInsights"`
	InsightsAvailable bool                   `json:"insightsAvailable"`
	InsightsError     string                 `json:"insightsError,omitempty"`
	Refreshed         bool                   `json:"refreshed"`
	GeneratedAt       time.Time              `json:"generatedAt"`
}

// MaxHistoryLimit caps the number of history records per request
const MaxHistoryLimit = 100

// AnalysisService coordinates snapshot refresh, insight generation and history
type AnalysisService struct {
	store      WalletStore
	market     MarketDataProvider
	generator  InsightsGenerator
	recorder   AnalysisRecorder
	classifier *RiskClassifier
	aggregator *PerformanceAggregator
	freshness  time.Duration
	now        func() time.Time
	refreshes  singleflight.Group
}

// NewAnalysisService creates a new analysis service. A non-positive
// freshness uses models.FreshnessThreshold.
func NewAnalysisService(
	store WalletStore,
	market MarketDataProvider,
	generator InsightsGenerator,
	recorder AnalysisRecorder,
	classifier *RiskClassifier,
	aggregator *PerformanceAggregator,
	freshness time.Duration,
) *AnalysisService {
	if freshness <= 0 {
		freshness = models.FreshnessThreshold
	}
	return &AnalysisService{
		store:      store,
		market:     market,
		generator:  generator,
		recorder:   recorder,
		classifier: classifier,
		aggregator: aggregator,
		freshness:  freshness,
		now:        time.Now,
	}
}

// Analyze returns the wallet snapshot, refreshing it when absent or stale,
// together with freshly generated insights.
func (s *AnalysisService) Analyze(ctx context.Context, input AnalyzeInput) (*AnalyzeResult, error) {
	if !types.IsValidAddress(input.Address) {
		return nil, apperrors.NewInvalidAddressError(input.Address)
	}
	address := types.NormalizeAddress(input.Address)
	log := logging.FromContext(ctx).WithField("address", address)

	snapshot, refreshed, err := s.loadSnapshot(ctx, address)
	if err != nil {
		log.WithError(err).Error("Failed to load wallet snapshot")
		return nil, apperrors.NewAnalysisFailedError(err)
	}

	result := &AnalyzeResult{
		Wallet:    snapshot,
		Refreshed: refreshed,
	}

	raw, err := s.generator.GenerateInsights(ctx, snapshot, input.IncludeRoast)
	if err != nil {
		log.WithError(err).Warn("Insights unavailable")
		result.ParsedInsights = insights.EmptyResult()
		result.InsightsError = apperrors.Categorize(err).Code
	} else {
		result.Insights = raw
		result.ParsedInsights = insights.Parse(raw)
		result.InsightsAvailable = true
		if result.ParsedInsights.IsValid() && !result.ParsedInsights.HasExpectedSections() {
			log.Warn("Model response has none of the requested insight sections")
		}
	}
	result.GeneratedAt = s.now().UTC()

	s.record(ctx, input.IncludeRoast, result)

	log.WithFields(map[string]interface{}{
		"refreshed":    refreshed,
		"risk":         snapshot.RiskAssessment.OverallRisk,
		"insightsKind": result.ParsedInsights.Kind,
	}).Info("Wallet analyzed")

	return result, nil
}

// loadSnapshot returns the stored snapshot, or a refreshed one when it is
// missing or older than the freshness threshold
func (s *AnalysisService) loadSnapshot(ctx context.Context, address string) (*models.WalletSnapshot, bool, error) {
	existing, err := s.store.FindByAddress(ctx, address)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find snapshot: %w", err)
	}
	if !existing.IsStale(s.now(), s.freshness) {
		return existing, false, nil
	}

	// Concurrent refreshes of one address are coalesced and detached from
	// the cancellation of the request that started them
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.refreshes.Do(address, func() (interface{}, error) {
		return s.refresh(shared, address, existing)
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*models.WalletSnapshot), true, nil
}

// refresh fetches market data concurrently, derives risk and performance and
// persists the result. Each fetch degrades on its own.
func (s *AnalysisService) refresh(ctx context.Context, address string, existing *models.WalletSnapshot) (*models.WalletSnapshot, error) {
	var (
		txs     []types.Transaction
		value   float64
		records []types.TokenPerformanceRecord
		g       errgroup.Group
	)

	g.Go(func() error {
		txs = s.market.GetTransactionHistory(ctx, address)
		return nil
	})
	g.Go(func() error {
		value = s.market.GetPortfolioValue(ctx, address)
		return nil
	})
	g.Go(func() error {
		records = s.market.GetTokenPerformance(ctx, address)
		return nil
	})
	_ = g.Wait()

	annotated := s.classifier.Annotate(txs)
	snapshot := &models.WalletSnapshot{
		Address:        address,
		TotalValue:     value,
		Transactions:   annotated,
		RiskAssessment: s.classifier.AssessWallet(annotated),
		Performance:    s.aggregator.Calculate(records),
		LastUpdated:    s.now().UTC(),
	}
	if existing != nil {
		snapshot.ID = existing.ID
	}

	stored, err := s.store.Upsert(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"address":      address,
		"transactions": len(annotated),
		"totalValue":   value,
	}).Debug("Wallet snapshot refreshed")

	return stored, nil
}

func (s *AnalysisService) record(ctx context.Context, includeRoast bool, result *AnalyzeResult) {
	w := result.Wallet
	rec := &models.AnalysisRecord{
		Address:          w.Address,
		OverallRisk:      string(w.RiskAssessment.OverallRisk),
		TotalRiskScore:   int64(w.RiskAssessment.TotalRiskScore),
		TotalPnL:         w.Performance.TotalPnL,
		TotalValue:       w.TotalValue,
		TransactionCount: int64(w.TransactionCount()),
		Refreshed:        result.Refreshed,
		InsightsValid:    result.ParsedInsights.IsValid(),
		InsightsKind:     string(result.ParsedInsights.Kind),
		IncludeRoast:     includeRoast,
		AnalyzedAt:       result.GeneratedAt,
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("address", w.Address).Warn("Failed to record analysis history")
	}
}

// History returns recent analysis records for address, newest first
func (s *AnalysisService) History(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error) {
	if !types.IsValidAddress(address) {
		return nil, apperrors.NewInvalidAddressError(address)
	}
	if limit <= 0 || limit > MaxHistoryLimit {
		return nil, apperrors.NewInvalidParameterError("limit", fmt.Sprintf("must be between 1 and %d", MaxHistoryLimit))
	}

	records, err := s.recorder.ListByAddress(ctx, types.NormalizeAddress(address), limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list analysis history", err)
	}
	if records == nil {
		records = []*models.AnalysisRecord{}
	}
	return records, nil
}
