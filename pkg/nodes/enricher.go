package nodes

import (
	"context"
	"fmt"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// minUsefulContent is the length below which a document's content is
// considered a snippet worth replacing with a full page extract.
const minUsefulContent = 200

// Enricher augments curated documents that only carry search snippets with
// full page content. A failed extract leaves the snippet in place.
type Enricher struct {
	deps Deps
}

func NewEnricher(deps Deps) *Enricher {
	return &Enricher{deps: deps}
}

func (e *Enricher) Name() string { return StageEnricher }

func (e *Enricher) Run(ctx context.Context, s *state.State) (state.Update, error) {
	logger := e.deps.logger()
	update := state.Update{}
	enriched, attempted := 0, 0

	for _, cat := range curatorCategories {
		docs := s.Docs(cat.curated)
		changed := make(map[string]state.Document)
		for url, doc := range docs {
			if len(doc.RawContent) >= minUsefulContent {
				continue
			}
			attempted++
			content, err := e.deps.Extractor.Extract(ctx, url)
			if err != nil || content == "" {
				logger.Warn("Content extraction failed, keeping snippet", "url", url, "error", err)
				continue
			}
			doc.RawContent = content
			changed[url] = doc
			enriched++
		}
		if len(changed) > 0 {
			update[cat.curated] = changed
		}
	}

	update[state.KeyMessages] = []string{
		fmt.Sprintf("Enriched %d/%d thin documents with full content", enriched, attempted),
	}
	return update, nil
}
