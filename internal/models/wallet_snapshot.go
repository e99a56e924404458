package models

import (
	"time"

	"github.com/wallet-insights/internal/types"
)

// FreshnessThreshold is the default age after which a snapshot is refreshed
const FreshnessThreshold = 5 * time.Minute

// WalletSnapshot represents the cached analysis state of one wallet.
// The ID is assigned on first insert and survives every refresh.
type WalletSnapshot struct {
	ID             string                     `json:"id" db:"id"`
	Address        string                     `json:"address" db:"address"`
	TotalValue     float64                    `json:"totalValue" db:"total_value"`
	Transactions   []types.Transaction        `json:"transactions" db:"transactions"`
	RiskAssessment types.WalletRiskAssessment `json:"riskAssessment" db:"risk_assessment"`
	Performance    types.PerformanceSummary   `json:"performance" db:"performance"`
	LastUpdated    time.Time                  `json:"lastUpdated" db:"last_updated"`
}

// IsStale reports whether the snapshot is older than maxAge at time now
func (s *WalletSnapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.LastUpdated) > maxAge
}

// TransactionCount returns the number of stored transactions
func (s *WalletSnapshot) TransactionCount() int {
	return len(s.Transactions)
}
