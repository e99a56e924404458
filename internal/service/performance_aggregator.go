package service

import (
	"github.com/wallet-insights/internal/types"
)

// Fixed divisors used to derive period figures from the total.
// There is no historical series, so these are presentational proxies.
const (
	daysPerMonth  = 30
	weeksPerMonth = 4
)

// PerformanceAggregator reduces token performance records into a summary
type PerformanceAggregator struct{}

// NewPerformanceAggregator creates a new performance aggregator
func NewPerformanceAggregator() *PerformanceAggregator {
	return &PerformanceAggregator{}
}

// Calculate sums profits and picks the best and worst performers.
// Ties keep the first record found.
func (a *PerformanceAggregator) Calculate(records []types.TokenPerformanceRecord) types.PerformanceSummary {
	if len(records) == 0 {
		return types.EmptyPerformance()
	}

	total := 0.0
	best, worst := records[0], records[0]

	for i, r := range records {
		total += r.ProfitPeriod
		if i == 0 {
			continue
		}
		if r.ProfitPeriod > best.ProfitPeriod {
			best = r
		}
		if r.ProfitPeriod < worst.ProfitPeriod {
			worst = r
		}
	}

	return types.PerformanceSummary{
		TotalPnL:       total,
		DailyPnL:       total / daysPerMonth,
		WeeklyPnL:      total / weeksPerMonth,
		MonthlyPnL:     total,
		BestPerformer:  performerOrNA(best.ContractAddress),
		WorstPerformer: performerOrNA(worst.ContractAddress),
	}
}

func performerOrNA(address string) string {
	if address == "" {
		return types.NotAvailable
	}
	return address
}
