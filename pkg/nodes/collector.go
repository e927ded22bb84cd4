package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// Collector is the fan-in point after the four analysts. It takes stock of
// what each produced; a category that degraded to zero documents shows up
// here as "ran, empty" rather than silently missing.
type Collector struct {
	deps Deps
}

func NewCollector(deps Deps) *Collector {
	return &Collector{deps: deps}
}

func (c *Collector) Name() string { return StageCollector }

func (c *Collector) Run(ctx context.Context, s *state.State) (state.Update, error) {
	categories := []struct {
		label string
		key   state.Key
	}{
		{"company", state.KeyCompanyData},
		{"industry", state.KeyIndustryData},
		{"financial", state.KeyFinancialData},
		{"news", state.KeyNewsData},
	}

	var parts []string
	total := 0
	for _, cat := range categories {
		n := len(s.Docs(cat.key))
		total += n
		parts = append(parts, fmt.Sprintf("%s: %d", cat.label, n))
		if n == 0 {
			c.deps.logger().Warn("Category collected no documents", "category", cat.label)
		}
	}

	return state.Update{
		state.KeyMessages: []string{
			fmt.Sprintf("Collected %d documents (%s)", total, strings.Join(parts, ", ")),
		},
	}, nil
}
