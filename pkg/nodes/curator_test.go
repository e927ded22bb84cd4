package nodes

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/company-researcher/pkg/state"
)

func curatorState(t *testing.T, companyDocs map[string]state.Document) *state.State {
	t.Helper()
	st := researchState()
	require.NoError(t, st.Apply(state.Update{state.KeyCompanyData: companyDocs}))
	return st
}

func TestCuratorRanksByRetrievalScoreWithoutEmbedder(t *testing.T) {
	st := curatorState(t, map[string]state.Document{
		"https://high.example": doc("High", "q", 0.9),
		"https://mid.example":  doc("Mid", "q", 0.5),
		"https://low.example":  doc("Low", "q", 0.1), // below minRelevance
	})

	stage := NewCurator(testDeps(nil, nil))
	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	kept := update[state.KeyCuratedCompanyData].(map[string]state.Document)
	assert.Len(t, kept, 2)
	assert.Contains(t, kept, "https://high.example")
	assert.Contains(t, kept, "https://mid.example")
	assert.NotContains(t, kept, "https://low.example")
}

func TestCuratorCapsPerCategory(t *testing.T) {
	docs := make(map[string]state.Document)
	for i := 0; i < maxCuratedPerCategory+5; i++ {
		url := fmt.Sprintf("https://doc%02d.example", i)
		docs[url] = doc(fmt.Sprintf("Doc %d", i), "q", 0.5+float64(i)*0.01)
	}
	st := curatorState(t, docs)

	stage := NewCurator(testDeps(nil, nil))
	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	kept := update[state.KeyCuratedCompanyData].(map[string]state.Document)
	assert.Len(t, kept, maxCuratedPerCategory)
	// Highest scores survive the cut.
	assert.Contains(t, kept, fmt.Sprintf("https://doc%02d.example", maxCuratedPerCategory+4))
	assert.NotContains(t, kept, "https://doc00.example")
}

func TestCuratorEmbedderRanking(t *testing.T) {
	st := curatorState(t, map[string]state.Document{
		"https://relevant.example": {Title: "Acme overview", RawContent: "all about acme", Score: 0.1},
		"https://spam.example":     {Title: "Banana bread", RawContent: "recipe", Score: 0.99},
	})

	deps := testDeps(nil, nil)
	deps.Embedder = &fakeEmbedder{}
	stage := NewCurator(deps)

	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	kept := update[state.KeyCuratedCompanyData].(map[string]state.Document)
	assert.Contains(t, kept, "https://relevant.example")
	assert.NotContains(t, kept, "https://spam.example")
}

func TestCuratorFallsBackWhenEmbedderFails(t *testing.T) {
	st := curatorState(t, map[string]state.Document{
		"https://high.example": doc("High", "q", 0.9),
	})

	deps := testDeps(nil, nil)
	deps.Embedder = &fakeEmbedder{fail: true}
	stage := NewCurator(deps)

	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	kept := update[state.KeyCuratedCompanyData].(map[string]state.Document)
	assert.Contains(t, kept, "https://high.example")
}

func TestCuratorBuildsReferences(t *testing.T) {
	st := curatorState(t, map[string]state.Document{
		"https://first.example":  doc("First", "q", 0.9),
		"https://second.example": doc("Second", "q", 0.7),
	})
	require.NoError(t, st.Apply(state.Update{state.KeyNewsData: map[string]state.Document{
		"https://news.example": doc("News", "q", 0.8),
	}}))

	stage := NewCurator(testDeps(nil, nil))
	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	refs := update[state.KeyReferences].([]string)
	assert.Equal(t, []string{
		"https://first.example",
		"https://news.example",
		"https://second.example",
	}, refs)
}

func TestCuratorReferencesCapped(t *testing.T) {
	companyDocs := make(map[string]state.Document)
	newsDocs := make(map[string]state.Document)
	for i := 0; i < maxReferences; i++ {
		companyDocs[fmt.Sprintf("https://company%02d.example", i)] = doc(fmt.Sprintf("Company %d", i), "q", 0.9)
		newsDocs[fmt.Sprintf("https://news%02d.example", i)] = doc(fmt.Sprintf("News %d", i), "q", 0.9)
	}
	st := researchState()
	require.NoError(t, st.Apply(state.Update{state.KeyCompanyData: companyDocs}))
	require.NoError(t, st.Apply(state.Update{state.KeyNewsData: newsDocs}))

	stage := NewCurator(testDeps(nil, nil))
	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	refs := update[state.KeyReferences].([]string)
	assert.Len(t, refs, maxReferences)
}

func TestCuratorEmptyInputProducesEmptyCuratedMaps(t *testing.T) {
	st := researchState()

	stage := NewCurator(testDeps(nil, nil))
	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	for _, key := range []state.Key{
		state.KeyCuratedCompanyData, state.KeyCuratedIndustryData,
		state.KeyCuratedFinancialData, state.KeyCuratedNewsData,
	} {
		kept, ok := update[key].(map[string]state.Document)
		require.True(t, ok, "missing curated map for %s", key)
		assert.Empty(t, kept)
	}
	assert.Empty(t, update[state.KeyReferences].([]string))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosine(nil, nil))
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}
