package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mikeboe/company-researcher/pkg/observer"
	"github.com/mikeboe/company-researcher/pkg/state"
)

var errBackendDown = errors.New("backend down")

// fakeGenerator scripts generative responses. Responses are matched by
// substring against the prompt; unmatched prompts return fallbackText or fail.
type fakeGenerator struct {
	mu sync.Mutex

	responses    map[string]string // prompt substring -> response
	fallbackText string
	failAll      bool
	failJSON     bool
	chunks       []string // when set, Generate streams these and returns their join

	generateCalls []string
	jsonCalls     []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, stream func(chunk string)) (string, error) {
	g.mu.Lock()
	g.generateCalls = append(g.generateCalls, prompt)
	g.mu.Unlock()

	if g.failAll {
		return "", errBackendDown
	}
	if len(g.chunks) > 0 {
		var sb strings.Builder
		for _, chunk := range g.chunks {
			if stream != nil {
				stream(chunk)
			}
			sb.WriteString(chunk)
		}
		return sb.String(), nil
	}
	for sub, resp := range g.responses {
		if strings.Contains(prompt, sub) {
			return resp, nil
		}
	}
	if g.fallbackText != "" {
		return g.fallbackText, nil
	}
	return "", errBackendDown
}

func (g *fakeGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.jsonCalls = append(g.jsonCalls, prompt)
	g.mu.Unlock()

	if g.failAll || g.failJSON {
		return "", errBackendDown
	}
	for sub, resp := range g.responses {
		if strings.Contains(prompt, sub) {
			return resp, nil
		}
	}
	return `{"queries": ["acme products", "acme history"]}`, nil
}

func (g *fakeGenerator) generateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.generateCalls)
}

// fakeSearcher returns canned documents per query and can fail selected
// queries.
type fakeSearcher struct {
	mu sync.Mutex

	results     map[string]map[string]state.Document // query -> docs
	failQueries map[string]bool
	queries     []string
}

func (s *fakeSearcher) Search(ctx context.Context, query string) (map[string]state.Document, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if s.failQueries[query] {
		return nil, errBackendDown
	}
	if docs, ok := s.results[query]; ok {
		return docs, nil
	}
	return map[string]state.Document{}, nil
}

type fakeExtractor struct {
	content string
	fail    bool
}

func (e *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	if e.fail {
		return "", errBackendDown
	}
	return e.content, nil
}

// fakeEmbedder embeds by keyword overlap so cosine similarity tracks textual
// relevance deterministically.
type fakeEmbedder struct {
	fail bool
}

func (e *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errBackendDown
	}
	lower := strings.ToLower(text)
	vec := make([]float32, 5)
	matched := false
	for i, word := range []string{"acme", "industry", "financial", "news"} {
		if strings.Contains(lower, word) {
			vec[i] = 1
			matched = true
		}
	}
	// Texts without any keyword land on their own axis, orthogonal to
	// everything relevant.
	if !matched {
		vec[4] = 1
	}
	return vec, nil
}

// recordingNotifier captures every event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []observer.StatusEvent
}

func (n *recordingNotifier) Notify(event observer.StatusEvent) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) byStatus(status string) []observer.StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []observer.StatusEvent
	for _, e := range n.events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

func testDeps(gen *fakeGenerator, search *fakeSearcher) Deps {
	if gen == nil {
		gen = &fakeGenerator{}
	}
	if search == nil {
		search = &fakeSearcher{}
	}
	return Deps{
		Generator: gen,
		Searcher:  search,
		Extractor: &fakeExtractor{content: "site content"},
	}
}

func doc(title, query string, score float64) state.Document {
	return state.Document{
		Title:      title,
		RawContent: fmt.Sprintf("content for %s", title),
		Query:      query,
		Score:      score,
	}
}
