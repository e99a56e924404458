package service

import (
	"context"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

// LeaderboardResult is one ranked page of wallets
type LeaderboardResult struct {
	Entries []models.LeaderboardEntry `json:"data"`
	SortBy  models.SortKey            `json:"sortBy"`
	Order   models.SortOrder          `json:"order"`
}

// LeaderboardService ranks stored wallet snapshots
type LeaderboardService struct {
	store   WalletStore
	network string
}

// NewLeaderboardService creates a new leaderboard service. network selects
// the Etherscan host used for entry links.
func NewLeaderboardService(store WalletStore, network string) *LeaderboardService {
	return &LeaderboardService{store: store, network: network}
}

// Leaderboard returns stored wallets ordered by q
func (s *LeaderboardService) Leaderboard(ctx context.Context, q models.LeaderboardQuery) (*LeaderboardResult, error) {
	if !q.SortBy.Valid() {
		q.SortBy = models.SortTotalPnL
		q.Order = models.OrderDesc
	}
	if q.Order != models.OrderAsc {
		q.Order = models.OrderDesc
	}
	if q.Limit <= 0 {
		q.Limit = models.DefaultLeaderboardLimit
	}
	if q.Limit > models.MaxLeaderboardLimit {
		q.Limit = models.MaxLeaderboardLimit
	}

	snapshots, err := s.store.List(ctx, q)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list leaderboard", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(snapshots))
	for i, snapshot := range snapshots {
		entries = append(entries, s.entry(i+1, snapshot))
	}

	return &LeaderboardResult{
		Entries: entries,
		SortBy:  q.SortBy,
		Order:   q.Order,
	}, nil
}

func (s *LeaderboardService) entry(rank int, snapshot *models.WalletSnapshot) models.LeaderboardEntry {
	risk := snapshot.RiskAssessment.OverallRisk
	if risk == "" {
		risk = types.RiskUnknown
	}

	return models.LeaderboardEntry{
		Rank:         rank,
		Address:      snapshot.Address,
		ShortAddress: types.ShortenAddress(snapshot.Address, 4, 4),
		EtherscanURL: types.EtherscanURL(snapshot.Address, s.network),
		TotalValue:   snapshot.TotalValue,
		Performance:  snapshot.Performance,
		RiskLevel:    risk,
		LastUpdated:  snapshot.LastUpdated,
	}
}
