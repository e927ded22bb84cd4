package nodes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// maxDocChars caps how much of each document feeds a briefing prompt.
const maxDocChars = 4000

// Briefing condenses each category's curated documents into one briefing
// text. Categories without documents are skipped and logged; a failed
// generative call degrades that category to no briefing rather than failing
// the stage.
type Briefing struct {
	deps Deps
}

func NewBriefing(deps Deps) *Briefing {
	return &Briefing{deps: deps}
}

func (b *Briefing) Name() string { return StageBriefing }

type briefingCategory struct {
	label    string
	curated  state.Key
	briefing state.Key
	focus    string
}

var briefingCategories = []briefingCategory{
	{"company", state.KeyCuratedCompanyData, state.KeyCompanyBriefing,
		"products and services, history, leadership and business model"},
	{"industry", state.KeyCuratedIndustryData, state.KeyIndustryBriefing,
		"market size, competitive landscape and the company's position in it"},
	{"financial", state.KeyCuratedFinancialData, state.KeyFinancialBriefing,
		"funding, revenue, valuation and financial outlook"},
	{"news", state.KeyCuratedNewsData, state.KeyNewsBriefing,
		"recent announcements, partnerships and other notable developments"},
}

func (b *Briefing) Run(ctx context.Context, s *state.State) (state.Update, error) {
	logger := b.deps.logger()
	update := state.Update{}
	var msgs []string

	for _, cat := range briefingCategories {
		docs := s.Docs(cat.curated)
		if len(docs) == 0 {
			logger.Warn("No curated documents, skipping briefing", "category", cat.label)
			msgs = append(msgs, fmt.Sprintf("No %s briefing: no curated documents", cat.label))
			continue
		}

		text := attempt(logger, cat.label+" briefing", "", func() (string, error) {
			return b.deps.Generator.Generate(ctx, b.prompt(s, cat, docs), nil)
		})
		if text == "" {
			msgs = append(msgs, fmt.Sprintf("No %s briefing: generation failed", cat.label))
			continue
		}

		update[cat.briefing] = strings.TrimSpace(text)
		msgs = append(msgs, fmt.Sprintf("Completed %s briefing (%d characters)", cat.label, len(text)))
	}

	update[state.KeyMessages] = msgs
	return update, nil
}

func (b *Briefing) prompt(s *state.State, cat briefingCategory, docs map[string]state.Document) string {
	urls := make([]string, 0, len(docs))
	for url := range docs {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	var sb strings.Builder
	for _, url := range urls {
		doc := docs[url]
		fmt.Fprintf(&sb, "Source: %s\nTitle: %s\nContent: %s\n\n", url, doc.Title, truncate(doc.RawContent, maxDocChars))
	}

	return fmt.Sprintf(`You are writing the %s briefing of a research report on %s (%s industry, HQ: %s).

Source documents:
%s
Write a factual markdown briefing focused on %s. Use ### subsection headers and * bullet points. Facts only, no meta-commentary.`,
		cat.label, s.Company, orUnknown(s.Industry), orUnknown(s.HQLocation), sb.String(), cat.focus)
}
