package nodes

import "github.com/mikeboe/company-researcher/pkg/state"

// NewIndustryAnalyzer researches the market the company operates in.
func NewIndustryAnalyzer(deps Deps) *researcher {
	return &researcher{
		name:    StageIndustryAnalyst,
		label:   "Industry Analyzer",
		dataKey: state.KeyIndustryData,
		guidance: `Generate queries on the industry context such as:
- Market size and growth
- Competitive landscape and main competitors
- Industry trends and challenges
- Market position of the company`,
		fallbackTopics: []string{
			"industry market size",
			"competitors",
			"industry trends",
			"market position",
		},
		deps: deps,
	}
}
