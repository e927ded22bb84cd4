package nodes

import (
	"context"
	"fmt"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// Grounding seeds the run: it scrapes the company's own site so the analysts
// start from first-party content. No URL, or a failed scrape, just means an
// unseeded run.
type Grounding struct {
	deps Deps
}

func NewGrounding(deps Deps) *Grounding {
	return &Grounding{deps: deps}
}

func (g *Grounding) Name() string { return StageGrounding }

func (g *Grounding) Run(ctx context.Context, s *state.State) (state.Update, error) {
	if s.CompanyURL == "" {
		return state.Update{
			state.KeyMessages: []string{fmt.Sprintf("No company URL provided for %s, skipping site scrape", s.Company)},
		}, nil
	}

	scrape := attempt(g.deps.logger(), "site scrape", "", func() (string, error) {
		return g.deps.Extractor.Extract(ctx, s.CompanyURL)
	})
	if scrape == "" {
		return state.Update{
			state.KeyMessages: []string{fmt.Sprintf("Site scrape of %s returned nothing, continuing without it", s.CompanyURL)},
		}, nil
	}

	return state.Update{
		state.KeySiteScrape: scrape,
		state.KeyMessages:   []string{fmt.Sprintf("Scraped %s (%d characters)", s.CompanyURL, len(scrape))},
	}, nil
}
