package graph

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mikeboe/company-researcher/pkg/state"
)

// Pipeline is a validated graph ready to execute.
type Pipeline struct {
	stages map[string]Stage
	deps   map[string][]string
	next   map[string][]string
	entry  string
	runner *runner
	logger *slog.Logger

	started atomic.Bool
}

// Run executes the pipeline and returns a lazy sequence of state snapshots,
// one per completed stage, ending with the snapshot that carries the final
// report (or a nil report when nothing could be compiled). The sequence is
// finite and single-use.
//
// A stage becomes eligible once all its direct predecessors have completed;
// mutually-independent eligible stages run concurrently. If the consumer
// stops iterating, nothing further is scheduled and already-running stages
// finish against a cancelled context.
func (p *Pipeline) Run(ctx context.Context, st *state.State) iter.Seq[*state.State] {
	return func(yield func(*state.State) bool) {
		if !p.started.CompareAndSwap(false, true) {
			p.logger.Error("Pipeline snapshot sequence is single-use; ignoring restart")
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		pending := make(map[string]int, len(p.stages))
		for name := range p.stages {
			pending[name] = len(p.deps[name])
		}

		// Buffered so in-flight stages can always report completion, even
		// after the consumer walks away.
		completed := make(chan string, len(p.stages))
		group, groupCtx := errgroup.WithContext(runCtx)

		start := func(name string) {
			stage := p.stages[name]
			group.Go(func() error {
				p.runner.run(groupCtx, stage, st)
				completed <- name
				return nil
			})
		}

		// Validation guarantees the entry is the only stage without
		// predecessors.
		start(p.entry)

		remaining := len(p.stages)
		for remaining > 0 {
			name := <-completed
			remaining--

			if !yield(st.Snapshot()) {
				p.logger.Warn("Snapshot consumer stopped, abandoning run", "last_stage", name, "remaining", remaining)
				return
			}

			for _, dependent := range p.next[name] {
				pending[dependent]--
				if pending[dependent] == 0 {
					start(dependent)
				}
			}
		}
		_ = group.Wait()
	}
}
