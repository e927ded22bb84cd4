// Package graph drives the research pipeline: a fixed dependency graph of
// stages over one shared state, validated up front and executed with
// mutually-independent stages running concurrently.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// Stage is the uniform unit of pipeline work: consume the shared state,
// produce a partial update for merging. Stages must only read keys written
// by their predecessors and only write keys the schema assigns to them.
type Stage interface {
	Name() string
	Run(ctx context.Context, s *state.State) (state.Update, error)
}

// ErrBadTopology is wrapped by every validation failure from Compile.
var ErrBadTopology = errors.New("invalid pipeline topology")

// Graph is a pipeline under construction. Compile validates it into a
// runnable Pipeline.
type Graph struct {
	stages map[string]Stage
	deps   map[string][]string // stage -> direct predecessors
	next   map[string][]string // stage -> direct dependents
	schema state.Schema
}

// New creates an empty graph governed by the given write schema.
func New(schema state.Schema) *Graph {
	return &Graph{
		stages: make(map[string]Stage),
		deps:   make(map[string][]string),
		next:   make(map[string][]string),
		schema: schema,
	}
}

// AddStage registers a stage. Re-adding a name replaces the stage but keeps
// its edges.
func (g *Graph) AddStage(s Stage) {
	g.stages[s.Name()] = s
}

// AddEdge declares that "to" runs only after "from" completes.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: self edge on %q", ErrBadTopology, from)
	}
	if _, ok := g.stages[from]; !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrBadTopology, from)
	}
	if _, ok := g.stages[to]; !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrBadTopology, to)
	}
	g.deps[to] = append(g.deps[to], from)
	g.next[from] = append(g.next[from], to)
	return nil
}

// Compile validates the topology and returns an executable pipeline. It
// fails before any stage runs if the graph has a cycle, if any stage is
// unreachable from the entry, if the terminal is not reachable from every
// stage, or if two concurrently-eligible stages share a write key.
func (g *Graph) Compile(entry, terminal string, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := g.stages[entry]; !ok {
		return nil, fmt.Errorf("%w: entry stage %q not registered", ErrBadTopology, entry)
	}
	if _, ok := g.stages[terminal]; !ok {
		return nil, fmt.Errorf("%w: terminal stage %q not registered", ErrBadTopology, terminal)
	}
	if len(g.deps[entry]) > 0 {
		return nil, fmt.Errorf("%w: entry stage %q has predecessors", ErrBadTopology, entry)
	}
	if len(g.next[terminal]) > 0 {
		return nil, fmt.Errorf("%w: terminal stage %q has dependents", ErrBadTopology, terminal)
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}

	reach := g.reachableFrom(entry)
	for name := range g.stages {
		if !reach[name] {
			return nil, fmt.Errorf("%w: stage %q unreachable from entry %q", ErrBadTopology, name, entry)
		}
	}
	for name := range g.stages {
		if name != terminal && !g.reachableFrom(name)[terminal] {
			return nil, fmt.Errorf("%w: terminal %q unreachable from stage %q", ErrBadTopology, terminal, name)
		}
	}

	if err := g.checkWriteOwnership(); err != nil {
		return nil, err
	}

	return &Pipeline{
		stages: g.stages,
		deps:   copyEdges(g.deps),
		next:   copyEdges(g.next),
		entry:  entry,
		runner: &runner{schema: g.schema, logger: logger},
		logger: logger,
	}, nil
}

// detectCycles runs a DFS with a recursion-stack set, the classic
// three-color walk.
func (g *Graph) detectCycles() error {
	done := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		if onStack[name] {
			return fmt.Errorf("%w: cycle involving stage %q", ErrBadTopology, name)
		}
		onStack[name] = true
		for _, dep := range g.next[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(onStack, name)
		done[name] = true
		return nil
	}

	for name := range g.stages {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) reachableFrom(start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dep := range g.next[name] {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return seen
}

// checkWriteOwnership enforces the load-bearing invariant: every pair of
// stages that can run concurrently (neither an ancestor of the other) must
// write disjoint exclusive key sets.
func (g *Graph) checkWriteOwnership() error {
	descendants := make(map[string]map[string]bool, len(g.stages))
	names := make([]string, 0, len(g.stages))
	for name := range g.stages {
		descendants[name] = g.reachableFrom(name)
		names = append(names, name)
	}
	sort.Strings(names)

	for i, a := range names {
		for _, b := range names[i+1:] {
			if descendants[a][b] || descendants[b][a] {
				continue // ordered, never concurrent
			}
			if err := g.schema.CheckDisjoint([]string{a, b}); err != nil {
				return fmt.Errorf("%w: concurrent %v", ErrBadTopology, err)
			}
		}
	}
	return nil
}

func copyEdges(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
	return dst
}
