package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/wallet-insights/internal/types"
)

// SortKey names a leaderboard ordering field
type SortKey string

const (
	SortTotalPnL   SortKey = "totalPnL"
	SortDailyPnL   SortKey = "dailyPnL"
	SortWeeklyPnL  SortKey = "weeklyPnL"
	SortMonthlyPnL SortKey = "monthlyPnL"
	SortTotalValue SortKey = "totalValue"
)

// SortOrder is the direction of a leaderboard ordering
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Leaderboard limits
const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// ValidSortKeys lists the accepted sort keys
var ValidSortKeys = []SortKey{SortTotalPnL, SortDailyPnL, SortWeeklyPnL, SortMonthlyPnL, SortTotalValue}

// LeaderboardQuery selects and orders stored snapshots
type LeaderboardQuery struct {
	SortBy SortKey
	Order  SortOrder
	Limit  int
}

// NewLeaderboardQuery builds a query from raw request parameters.
// An unknown sort key falls back to totalPnL and forces descending order.
// The limit defaults to 50 and is clamped to [1, 100].
func NewLeaderboardQuery(sortBy, order, limit string) LeaderboardQuery {
	q := LeaderboardQuery{
		SortBy: SortKey(sortBy),
		Order:  OrderDesc,
		Limit:  DefaultLeaderboardLimit,
	}

	if strings.EqualFold(order, string(OrderAsc)) {
		q.Order = OrderAsc
	}

	if !q.SortBy.Valid() {
		q.SortBy = SortTotalPnL
		q.Order = OrderDesc
	}

	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil {
		q.Limit = n
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxLeaderboardLimit {
		q.Limit = MaxLeaderboardLimit
	}

	return q
}

// Valid reports whether k is one of the accepted sort keys
func (k SortKey) Valid() bool {
	for _, v := range ValidSortKeys {
		if k == v {
			return true
		}
	}
	return false
}

// LeaderboardEntry is one ranked wallet
type LeaderboardEntry struct {
	Rank         int                      `json:"rank"`
	Address      string                   `json:"address"`
	ShortAddress string                   `json:"shortAddress"`
	EtherscanURL string                   `json:"etherscanUrl"`
	TotalValue   float64                  `json:"totalValue"`
	Performance  types.PerformanceSummary `json:"performance"`
	RiskLevel    types.RiskLevel          `json:"riskLevel"`
	LastUpdated  time.Time                `json:"lastUpdated"`
}
