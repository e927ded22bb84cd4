package nodes

import "github.com/mikeboe/company-researcher/pkg/state"

// NewNewsScanner researches recent coverage: announcements, partnerships,
// controversies.
func NewNewsScanner(deps Deps) *researcher {
	return &researcher{
		name:    StageNewsScanner,
		label:   "News Scanner",
		dataKey: state.KeyNewsData,
		guidance: `Generate queries on recent news such as:
- Major announcements and product launches
- Partnerships and acquisitions
- Leadership changes
- Regulatory or legal developments`,
		fallbackTopics: []string{
			"latest news",
			"announcements",
			"partnerships",
			"acquisition",
		},
		deps: deps,
	}
}
