package nodes

import "github.com/mikeboe/company-researcher/pkg/state"

// NewFinancialAnalyst researches funding, revenue and valuation.
func NewFinancialAnalyst(deps Deps) *researcher {
	return &researcher{
		name:    StageFinancialAnalyst,
		label:   "Financial Analyst",
		dataKey: state.KeyFinancialData,
		guidance: `Generate queries on the financial situation such as:
- Funding rounds and investors
- Revenue and profitability
- Valuation
- Financial performance and outlook`,
		fallbackTopics: []string{
			"funding rounds",
			"revenue",
			"valuation",
			"financial results",
		},
		deps: deps,
	}
}
