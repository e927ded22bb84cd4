// Package nodes implements the stages of the company research pipeline:
// grounding, four parallel analysts, collection, curation, enrichment,
// per-category briefings, the report editor and terminal output.
package nodes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// Stage names. These key the write schema and the graph topology.
const (
	StageGrounding        = "grounding"
	StageCompanyAnalyst   = "company_analyst"
	StageIndustryAnalyst  = "industry_analyst"
	StageFinancialAnalyst = "financial_analyst"
	StageNewsScanner      = "news_scanner"
	StageCollector        = "collector"
	StageCurator          = "curator"
	StageEnricher         = "enricher"
	StageBriefing         = "briefing"
	StageEditor           = "editor"
	StageOutput           = "output"
)

// Generator is the generative text backend. Failures are ordinary errors;
// every call site has a deterministic fallback.
type Generator interface {
	// Generate produces text for the prompt. When stream is non-nil it is
	// invoked for every chunk as it arrives; the returned string is the
	// complete accumulated output.
	Generate(ctx context.Context, prompt string, stream func(chunk string)) (string, error)
	// GenerateJSON produces output constrained to a JSON object.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Searcher is the retrieval backend. An empty result map means "no results"
// and is not an error.
type Searcher interface {
	Search(ctx context.Context, query string) (map[string]state.Document, error)
}

// Extractor fetches the raw content of a single page.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Embedder turns text into a vector for relevance ranking. Optional: the
// curator falls back to retrieval scores without one.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Deps bundles the external collaborators every stage may need.
type Deps struct {
	Generator Generator
	Searcher  Searcher
	Extractor Extractor
	Embedder  Embedder
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// attempt runs op and substitutes fallback when it fails or produces a
// blank result, logging the degradation. All catch-and-continue around
// generative calls goes through here.
func attempt(logger *slog.Logger, what string, fallback string, op func() (string, error)) string {
	out, err := op()
	if err != nil || strings.TrimSpace(out) == "" {
		logger.Warn("Falling back", "op", what, "error", err)
		return fallback
	}
	return out
}
