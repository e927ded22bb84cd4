package nodes

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mikeboe/company-researcher/pkg/state"
)

const (
	maxCuratedPerCategory = 10
	minRelevance          = 0.3
	maxReferences         = 12
)

// Curator is the fan-in filter/rank stage: it scores every collected
// document for relevance, keeps the best per category and records the kept
// URLs as the run's reference list.
//
// With an Embedder it ranks by cosine similarity against a per-category
// reference query; without one it trusts the retrieval scores.
type Curator struct {
	deps Deps
}

func NewCurator(deps Deps) *Curator {
	return &Curator{deps: deps}
}

func (c *Curator) Name() string { return StageCurator }

type curatorCategory struct {
	label   string
	data    state.Key
	curated state.Key
}

var curatorCategories = []curatorCategory{
	{"company", state.KeyCompanyData, state.KeyCuratedCompanyData},
	{"industry", state.KeyIndustryData, state.KeyCuratedIndustryData},
	{"financial", state.KeyFinancialData, state.KeyCuratedFinancialData},
	{"news", state.KeyNewsData, state.KeyCuratedNewsData},
}

func (c *Curator) Run(ctx context.Context, s *state.State) (state.Update, error) {
	update := state.Update{}
	var msgs []string

	type ref struct {
		url   string
		score float64
	}
	var refs []ref

	for _, cat := range curatorCategories {
		docs := s.Docs(cat.data)
		kept := c.curate(ctx, s, cat.label, docs)
		update[cat.curated] = kept
		msgs = append(msgs, fmt.Sprintf("Curated %d/%d %s documents", len(kept), len(docs), cat.label))

		for url, doc := range kept {
			refs = append(refs, ref{url: url, score: doc.Score})
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].score != refs[j].score {
			return refs[i].score > refs[j].score
		}
		return refs[i].url < refs[j].url
	})
	references := make([]string, 0, len(refs))
	seen := make(map[string]bool)
	for _, r := range refs {
		if seen[r.url] || len(references) >= maxReferences {
			continue
		}
		seen[r.url] = true
		references = append(references, r.url)
	}

	update[state.KeyReferences] = references
	update[state.KeyMessages] = msgs
	return update, nil
}

// curate scores and ranks one category's documents, keeping at most
// maxCuratedPerCategory above the relevance floor.
func (c *Curator) curate(ctx context.Context, s *state.State, label string, docs map[string]state.Document) map[string]state.Document {
	logger := c.deps.logger()

	var queryVec []float32
	if c.deps.Embedder != nil {
		refQuery := fmt.Sprintf("%s %s %s", s.Company, orUnknown(s.Industry), label)
		vec, err := c.deps.Embedder.EmbedText(ctx, refQuery)
		if err != nil {
			logger.Warn("Reference embedding failed, using retrieval scores", "category", label, "error", err)
		} else {
			queryVec = vec
		}
	}

	type scored struct {
		url string
		doc state.Document
	}
	var ranked []scored
	for url, doc := range docs {
		if queryVec != nil {
			doc.Score = c.embedScore(ctx, queryVec, doc, label)
		}
		if doc.Score < minRelevance {
			continue
		}
		ranked = append(ranked, scored{url: url, doc: doc})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].doc.Score != ranked[j].doc.Score {
			return ranked[i].doc.Score > ranked[j].doc.Score
		}
		return ranked[i].url < ranked[j].url
	})
	if len(ranked) > maxCuratedPerCategory {
		ranked = ranked[:maxCuratedPerCategory]
	}

	kept := make(map[string]state.Document, len(ranked))
	for _, r := range ranked {
		kept[r.url] = r.doc
	}
	return kept
}

// embedScore returns cosine similarity to the category reference, falling
// back to the retrieval score if embedding this document fails.
func (c *Curator) embedScore(ctx context.Context, queryVec []float32, doc state.Document, label string) float64 {
	text := doc.Title + "\n" + truncate(doc.RawContent, 1000)
	vec, err := c.deps.Embedder.EmbedText(ctx, text)
	if err != nil {
		c.deps.logger().Warn("Document embedding failed, using retrieval score", "category", label, "title", doc.Title, "error", err)
		return doc.Score
	}
	return cosine(queryVec, vec)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// truncate cuts text to at most n runes without splitting a rune.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
