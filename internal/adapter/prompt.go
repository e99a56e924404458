package adapter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wallet-insights/internal/insights"
	"github.com/wallet-insights/internal/models"
)

const roastSectionTitle = "Roast"

// BuildPrompt renders the insight request for a snapshot. The model is asked
// for a single JSON object whose keys are the expected section titles, plus
// a Roast section when includeRoast is set.
func BuildPrompt(snapshot *models.WalletSnapshot, includeRoast bool) string {
	var b strings.Builder

	perf := snapshot.Performance
	risk := snapshot.RiskAssessment

	factors := "none"
	if len(risk.RiskFactors) > 0 {
		factors = strings.Join(risk.RiskFactors, ", ")
	}

	b.WriteString("Analyze this crypto wallet data and provide insights:\n\n")
	fmt.Fprintf(&b, "Portfolio Value: $%s\n", usd(snapshot.TotalValue))
	b.WriteString("P&L Performance:\n")
	fmt.Fprintf(&b, "- Total: $%s\n", usd(perf.TotalPnL))
	fmt.Fprintf(&b, "- Monthly: $%s\n", usd(perf.MonthlyPnL))
	fmt.Fprintf(&b, "- Best Performer: %s\n", perf.BestPerformer)
	fmt.Fprintf(&b, "- Worst Performer: %s\n\n", perf.WorstPerformer)
	fmt.Fprintf(&b, "Risk Assessment: %s\n", risk.OverallRisk)
	fmt.Fprintf(&b, "Risk Factors: %s\n\n", factors)
	fmt.Fprintf(&b, "Recent Activity: %d transactions\n", snapshot.TransactionCount())

	b.WriteString("NOTE:\n")
	b.WriteString("1. STRICTLY PROVIDE DATA IN JSON FORMAT AND DO NOT PROVIDE ANY PREAMBLE OR POSTAMBLE. ")
	b.WriteString("THE RESPONSE MUST START WITH AN OPENING BRACE \"{\" AND END WITH A CLOSING BRACE \"}\" WITH NO OTHER SYMBOLS BEFORE OR AFTER THEM.\n")
	if includeRoast {
		fmt.Fprintf(&b, "2. ENSURE THAT ALL THE SECTIONS EXCEPT %q ARE DETAILED AND INFORMATIVE.\n", roastSectionTitle)
		fmt.Fprintf(&b, "3. THE %q SECTION SHOULD BE EXTREMELY BRUTAL, BUT KEEP IT LIGHT AND EDUCATIONAL.\n", roastSectionTitle)
	} else {
		b.WriteString("2. ENSURE THAT ALL THE SECTIONS ARE DETAILED AND INFORMATIVE.\n")
	}

	b.WriteString("\nProvide the response in strict JSON format with the following sections:\n{\n")
	sections := append([]string{}, insights.ExpectedSections...)
	if includeRoast {
		sections = append(sections, roastSectionTitle)
	}
	for i, title := range sections {
		sep := ","
		if i == len(sections)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: string response%s\n", title, sep)
	}
	b.WriteString("}\n")

	return b.String()
}

func usd(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
