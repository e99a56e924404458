package service

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wallet-insights/internal/types"
)

// Points added per matching token action
const (
	scamContractPoints      = 10
	highRiskContractPoints  = 5
	zeroValueTransferPoints = 3
)

// Average-score thresholds for the wallet risk level
const (
	highRiskAverage   = 7.0
	mediumRiskAverage = 3.0
)

// RiskClassifier scores transactions against static contract rule sets.
// It holds no mutable state and is safe for concurrent use.
type RiskClassifier struct {
	scamContracts     map[string]struct{}
	highRiskContracts map[string]struct{}
}

// NewRiskClassifier creates a classifier from scam and high-risk contract lists.
// Addresses are matched case-insensitively.
func NewRiskClassifier(scamContracts, highRiskContracts []string) *RiskClassifier {
	return &RiskClassifier{
		scamContracts:     toAddressSet(scamContracts),
		highRiskContracts: toAddressSet(highRiskContracts),
	}
}

func toAddressSet(addresses []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		addr = types.NormalizeAddress(addr)
		if addr == "" {
			continue
		}
		set[addr] = struct{}{}
	}
	return set
}

// ScoreTransaction applies every rule to every token action of tx.
// Flags are appended once per matching action, so a transaction touching the
// same scam contract twice carries SCAM_CONTRACT twice.
func (c *RiskClassifier) ScoreTransaction(tx types.Transaction) (int, []string) {
	score := 0
	flags := []string{}

	for _, action := range tx.TokenActions {
		addr := types.NormalizeAddress(action.Address)

		if _, ok := c.scamContracts[addr]; ok {
			score += scamContractPoints
			flags = append(flags, types.FlagScamContract)
		}
		if _, ok := c.highRiskContracts[addr]; ok {
			score += highRiskContractPoints
			flags = append(flags, types.FlagHighRiskContract)
		}
		if isZeroAmount(action.Amount) && strings.EqualFold(string(action.Direction), string(types.DirectionOut)) {
			score += zeroValueTransferPoints
			flags = append(flags, types.FlagZeroValueTransfer)
		}
	}

	return score, flags
}

// Annotate returns a copy of txs with RiskScore and RiskFlags filled in
func (c *RiskClassifier) Annotate(txs []types.Transaction) []types.Transaction {
	annotated := make([]types.Transaction, len(txs))
	for i, tx := range txs {
		tx.RiskScore, tx.RiskFlags = c.ScoreTransaction(tx)
		annotated[i] = tx
	}
	return annotated
}

// AssessWallet scores all transactions and derives the wallet risk level
// from the average score per transaction.
func (c *RiskClassifier) AssessWallet(txs []types.Transaction) types.WalletRiskAssessment {
	total := 0
	factors := []string{}
	seen := make(map[string]struct{})

	for _, tx := range txs {
		score, flags := c.ScoreTransaction(tx)
		total += score
		for _, flag := range flags {
			if _, ok := seen[flag]; ok {
				continue
			}
			seen[flag] = struct{}{}
			factors = append(factors, flag)
		}
	}

	return types.WalletRiskAssessment{
		OverallRisk:    riskLevelFor(total, len(txs)),
		RiskFactors:    factors,
		TotalRiskScore: total,
	}
}

// riskLevelFor maps the average score to a level; an empty wallet is LOW
func riskLevelFor(total, count int) types.RiskLevel {
	if count == 0 {
		return types.RiskLow
	}

	avg := float64(total) / float64(count)
	switch {
	case avg > highRiskAverage:
		return types.RiskHigh
	case avg > mediumRiskAverage:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// isZeroAmount reports whether amount parses to exactly zero.
// Unparseable and empty amounts are not zero.
func isZeroAmount(amount string) bool {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return false
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return false
	}
	return d.IsZero()
}
