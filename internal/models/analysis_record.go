package models

import "time"

// AnalysisRecord is an append-only log entry written for every analysis request
type AnalysisRecord struct {
	ID               string    `json:"id" ch:"id"`
	Address          string    `json:"address" ch:"address"`
	OverallRisk      string    `json:"overallRisk" ch:"overall_risk"`
	TotalRiskScore   int64     `json:"totalRiskScore" ch:"total_risk_score"`
	TotalPnL         float64   `json:"totalPnL" ch:"total_pnl"`
	TotalValue       float64   `json:"totalValue" ch:"total_value"`
	TransactionCount int64     `json:"transactionCount" ch:"transaction_count"`
	Refreshed        bool      `json:"refreshed" ch:"refreshed"`
	InsightsValid    bool      `json:"insightsValid" ch:"insights_valid"`
	InsightsKind     string    `json:"insightsKind" ch:"insights_kind"`
	IncludeRoast     bool      `json:"includeRoast" ch:"include_roast"`
	AnalyzedAt       time.Time `json:"analyzedAt" ch:"analyzed_at"`
}
