package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/observer"
	"github.com/mikeboe/company-researcher/pkg/state"
)

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Output is the terminal stage: it delivers the completed run. The report
// file write is best-effort; the snapshot the caller receives is the real
// artifact.
type Output struct {
	deps Deps
	// Dir receives the report file; empty means current directory.
	Dir string
}

func NewOutput(deps Deps) *Output {
	return &Output{deps: deps}
}

func (o *Output) Name() string { return StageOutput }

func (o *Output) Run(ctx context.Context, s *state.State) (state.Update, error) {
	logger := o.deps.logger()

	if s.Report == nil {
		observer.Notify(s.Notifier, observer.StatusEvent{
			JobID:   s.JobID,
			Status:  observer.StatusCompleted,
			Message: fmt.Sprintf("Research for %s finished without a report", s.Company),
			Payload: map[string]any{"step": "Output", "report": nil},
		})
		return state.Update{
			state.KeyMessages: []string{"Run finished without a report"},
		}, nil
	}

	name := strings.Trim(unsafeFilenameRe.ReplaceAllString(strings.ToLower(s.Company), "_"), "_")
	if name == "" {
		name = "report"
	}
	path := filepath.Join(o.Dir, fmt.Sprintf("report_%s.md", name))
	if err := os.WriteFile(path, []byte(*s.Report), 0644); err != nil {
		logger.Warn("Failed to save report locally", "path", path, "error", err)
		path = ""
	}

	observer.Notify(s.Notifier, observer.StatusEvent{
		JobID:   s.JobID,
		Status:  observer.StatusCompleted,
		Message: fmt.Sprintf("Research for %s complete", s.Company),
		Payload: map[string]any{"step": "Output", "report": *s.Report},
	})

	msg := "Report delivered"
	if path != "" {
		msg = fmt.Sprintf("Report delivered and saved to %s", path)
	}
	return state.Update{
		state.KeyMessages: []string{msg},
	}, nil
}
