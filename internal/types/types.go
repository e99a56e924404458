// Package types provides common type definitions for the wallet insights system.
package types

// Direction represents whether a token action moves value into or out of the wallet
type Direction string

const (
	// DirectionIn represents an incoming token action
	DirectionIn Direction = "In"
	// DirectionOut represents an outgoing token action
	DirectionOut Direction = "Out"
)

// RiskLevel represents the overall risk bucket of a wallet
type RiskLevel string

const (
	// RiskLow represents an average risk score of 3 or less per transaction
	RiskLow RiskLevel = "LOW"
	// RiskMedium represents an average risk score above 3
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh represents an average risk score above 7
	RiskHigh RiskLevel = "HIGH"
	// RiskUnknown is reported for wallets that have no stored assessment
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Risk flags attached to transactions by the classifier
const (
	FlagScamContract      = "SCAM_CONTRACT"
	FlagHighRiskContract  = "HIGH_RISK_CONTRACT"
	FlagZeroValueTransfer = "ZERO_VALUE_TRANSFER"
)

// NotAvailable is the performer sentinel used when there is no performance data
const NotAvailable = "N/A"

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// TokenAction represents a single asset movement within a transaction
type TokenAction struct {
	Address   string    `json:"address"`   // Token contract address
	Symbol    string    `json:"symbol"`    // Token symbol (e.g., "USDC")
	Amount    string    `json:"amount"`    // Decimal string, may be "0"
	Direction Direction `json:"direction"` // "In" or "Out"
	USDValue  float64   `json:"usdValue"`  // Fiat value of the movement
}

// Transaction represents a wallet history event with its token actions.
// RiskScore and RiskFlags are filled in by the risk classifier.
type Transaction struct {
	ID           string        `json:"id,omitempty"`
	TxHash       string        `json:"txHash"`
	TimeMs       int64         `json:"timeMs"`
	Type         string        `json:"type,omitempty"`
	Direction    string        `json:"direction,omitempty"`
	TokenActions []TokenAction `json:"tokenActions"`
	RiskScore    int           `json:"riskScore"`
	RiskFlags    []string      `json:"riskFlags"`
}

// TokenPerformanceRecord is the per-token profit reported by the aggregator
type TokenPerformanceRecord struct {
	ContractAddress string  `json:"contract_address"`
	ProfitPeriod    float64 `json:"abs_profit_fiat_period"`
}

// WalletRiskAssessment summarizes risk across all transactions of a wallet
type WalletRiskAssessment struct {
	OverallRisk    RiskLevel `json:"overallRisk"`
	RiskFactors    []string  `json:"riskFactors"`
	TotalRiskScore int       `json:"totalRiskScore"`
}

// PerformanceSummary holds the derived P&L figures of a wallet.
// Daily, weekly and monthly values are fixed ratios of the total.
type PerformanceSummary struct {
	TotalPnL       float64 `json:"totalPnL"`
	DailyPnL       float64 `json:"dailyPnL"`
	WeeklyPnL      float64 `json:"weeklyPnL"`
	MonthlyPnL     float64 `json:"monthlyPnL"`
	BestPerformer  string  `json:"bestPerformer"`
	WorstPerformer string  `json:"worstPerformer"`
}

// EmptyPerformance returns the summary used when no performance records exist
func EmptyPerformance() PerformanceSummary {
	return PerformanceSummary{
		BestPerformer:  NotAvailable,
		WorstPerformer: NotAvailable,
	}
}
