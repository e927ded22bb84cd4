package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/state"
)

const maxSubQueries = 4

// researcher is the shared engine behind the four analysts. Each instance
// owns exactly one state key; that exclusivity is what lets all four run
// concurrently against the same snapshot without locks.
type researcher struct {
	name     string
	label    string
	dataKey  state.Key
	guidance string
	// fallbackTopics become "<company> <topic>" queries when the generative
	// backend cannot produce a query set.
	fallbackTopics []string
	// seedSiteScrape includes the grounding scrape as a first document.
	seedSiteScrape bool

	deps Deps
}

func (r *researcher) Name() string { return r.name }

func (r *researcher) Run(ctx context.Context, s *state.State) (state.Update, error) {
	logger := r.deps.logger().With("stage", r.name)
	msgs := []string{fmt.Sprintf("%s analyzing %s", r.label, s.Company)}

	queries := r.generateQueries(ctx, s)
	msgs = append(msgs, fmt.Sprintf("Subqueries for %s: %s", r.label, strings.Join(queries, "; ")))

	docs := make(map[string]state.Document)
	if r.seedSiteScrape && s.SiteScrape != "" {
		docs[s.CompanyURL] = state.Document{
			Title:      s.Company,
			RawContent: s.SiteScrape,
			Query:      fmt.Sprintf("Company overview and information about %s", s.Company),
		}
		msgs = append(msgs, "Including site scrape data")
	}

	// One failed sub-query is logged and skipped; the stage carries on with
	// whatever the remaining queries return.
	for _, query := range queries {
		found, err := r.deps.Searcher.Search(ctx, query)
		if err != nil {
			logger.Warn("Sub-query failed, skipping", "query", query, "error", err)
			msgs = append(msgs, fmt.Sprintf("Search failed for %q, skipped", query))
			continue
		}
		for url, doc := range found {
			doc.Query = query
			docs[url] = doc
		}
	}

	msgs = append(msgs, fmt.Sprintf("Found %d documents", len(docs)))
	return state.Update{
		r.dataKey:         docs,
		state.KeyMessages: msgs,
	}, nil
}

// generateQueries asks the generative backend for a bounded sub-query set
// and falls back to deterministic "<company> <topic>" queries when it fails.
func (r *researcher) generateQueries(ctx context.Context, s *state.State) []string {
	prompt := fmt.Sprintf(`You are researching %s, a company in the %s industry headquartered in %s.
%s

Return a JSON object: {"queries": ["...", "..."]} with at most %d specific web search queries. JSON only, no commentary.`,
		s.Company, orUnknown(s.Industry), orUnknown(s.HQLocation), r.guidance, maxSubQueries)

	raw, err := r.deps.Generator.GenerateJSON(ctx, prompt)
	if err == nil {
		var parsed struct {
			Queries []string `json:"queries"`
		}
		if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil && len(parsed.Queries) > 0 {
			if len(parsed.Queries) > maxSubQueries {
				parsed.Queries = parsed.Queries[:maxSubQueries]
			}
			return parsed.Queries
		}
		err = fmt.Errorf("unusable query response: %.80s", raw)
	}

	r.deps.logger().Warn("Query generation failed, using fallback queries", "stage", r.name, "error", err)
	queries := make([]string, 0, len(r.fallbackTopics))
	for _, topic := range r.fallbackTopics {
		queries = append(queries, fmt.Sprintf("%s %s", s.Company, topic))
	}
	return queries
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
