package nodes

import (
	"log/slog"

	"github.com/mikeboe/company-researcher/pkg/graph"
	"github.com/mikeboe/company-researcher/pkg/state"
)

// WriteSchema declares each stage's exclusive write keys. The graph rejects
// any topology where two concurrent stages share a key, so extending the
// fan-out means adding a stage with keys of its own here.
func WriteSchema() state.Schema {
	return state.Schema{
		StageGrounding:        {state.KeySiteScrape},
		StageCompanyAnalyst:   {state.KeyCompanyData},
		StageIndustryAnalyst:  {state.KeyIndustryData},
		StageFinancialAnalyst: {state.KeyFinancialData},
		StageNewsScanner:      {state.KeyNewsData},
		StageCollector:        {},
		StageCurator: {
			state.KeyCuratedCompanyData, state.KeyCuratedIndustryData,
			state.KeyCuratedFinancialData, state.KeyCuratedNewsData,
			state.KeyReferences,
		},
		StageEnricher: {
			state.KeyCuratedCompanyData, state.KeyCuratedIndustryData,
			state.KeyCuratedFinancialData, state.KeyCuratedNewsData,
		},
		StageBriefing: {
			state.KeyCompanyBriefing, state.KeyIndustryBriefing,
			state.KeyFinancialBriefing, state.KeyNewsBriefing,
		},
		StageEditor: {state.KeyReport},
		StageOutput: {},
	}
}

// NewPipeline wires the fixed research topology: grounding fans out to the
// four analysts, which fan in through collector, curator, enricher, briefing
// and editor to the output stage.
func NewPipeline(deps Deps, reportDir string, logger *slog.Logger) (*graph.Pipeline, error) {
	g := graph.New(WriteSchema())

	output := NewOutput(deps)
	output.Dir = reportDir

	stages := []graph.Stage{
		NewGrounding(deps),
		NewCompanyAnalyzer(deps),
		NewIndustryAnalyzer(deps),
		NewFinancialAnalyst(deps),
		NewNewsScanner(deps),
		NewCollector(deps),
		NewCurator(deps),
		NewEnricher(deps),
		NewBriefing(deps),
		NewEditor(deps),
		output,
	}
	for _, s := range stages {
		g.AddStage(s)
	}

	analysts := []string{StageCompanyAnalyst, StageIndustryAnalyst, StageFinancialAnalyst, StageNewsScanner}
	for _, analyst := range analysts {
		if err := g.AddEdge(StageGrounding, analyst); err != nil {
			return nil, err
		}
		if err := g.AddEdge(analyst, StageCollector); err != nil {
			return nil, err
		}
	}

	chain := []string{StageCollector, StageCurator, StageEnricher, StageBriefing, StageEditor, StageOutput}
	for i := 0; i < len(chain)-1; i++ {
		if err := g.AddEdge(chain[i], chain[i+1]); err != nil {
			return nil, err
		}
	}

	return g.Compile(StageGrounding, StageOutput, logger)
}
