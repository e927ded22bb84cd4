package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/company-researcher/pkg/observer"
	"github.com/mikeboe/company-researcher/pkg/state"
)

// runner wraps every stage uniformly: a status event before the stage runs,
// schema-checked additive merge after it, and containment of anything that
// goes wrong inside. A stage failure degrades to a narrative entry; it never
// propagates past this boundary.
type runner struct {
	schema state.Schema
	logger *slog.Logger
}

func (r *runner) run(ctx context.Context, stage Stage, st *state.State) {
	observer.Notify(st.Notifier, observer.StatusEvent{
		JobID:   st.JobID,
		Status:  observer.StatusProcessing,
		Message: fmt.Sprintf("Running %s", stage.Name()),
		Payload: map[string]any{"step": stage.Name()},
	})
	r.logger.Info("Stage started", "stage", stage.Name())

	update, err := r.invoke(ctx, stage, st)
	if err != nil {
		r.degrade(stage, st, err)
		return
	}
	if update == nil {
		r.logger.Info("Stage completed", "stage", stage.Name(), "keys", 0)
		return
	}

	if err := r.schema.Validate(stage.Name(), update); err != nil {
		r.degrade(stage, st, err)
		return
	}
	if err := st.Apply(update); err != nil {
		r.degrade(stage, st, err)
		return
	}
	r.logger.Info("Stage completed", "stage", stage.Name(), "keys", len(update))
}

// invoke calls the stage and converts panics into ordinary errors so a bug
// in one stage cannot take down the run.
func (r *runner) invoke(ctx context.Context, stage Stage, st *state.State) (update state.Update, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("stage panicked: %v", p)
		}
	}()
	return stage.Run(ctx, st)
}

func (r *runner) degrade(stage Stage, st *state.State, err error) {
	r.logger.Warn("Stage degraded", "stage", stage.Name(), "error", err)
	st.AppendMessage(fmt.Sprintf("%s failed: %v (continuing with partial results)", stage.Name(), err))
}
