package nodes

import "github.com/mikeboe/company-researcher/pkg/state"

// NewCompanyAnalyzer researches company fundamentals: products, history,
// leadership, business model. It is the only analyst seeded with the
// grounding site scrape.
func NewCompanyAnalyzer(deps Deps) *researcher {
	return &researcher{
		name:    StageCompanyAnalyst,
		label:   "Company Analyzer",
		dataKey: state.KeyCompanyData,
		guidance: `Generate queries on the company fundamentals such as:
- Core products and services
- Company history and milestones
- Leadership and management team
- Business model and strategy`,
		fallbackTopics: []string{
			"products and services",
			"company history",
			"leadership team",
			"business model",
		},
		seedSiteScrape: true,
		deps:           deps,
	}
}
