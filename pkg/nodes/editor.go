package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/markdown"
	"github.com/mikeboe/company-researcher/pkg/observer"
	"github.com/mikeboe/company-researcher/pkg/state"
)

// Editor compiles the category briefings into the final report through a
// four-phase state machine: compose, sweep, format enforcement, assembly.
// The first three are generative and streamed; each falls back verbatim to
// its input when the backend fails, so the report can only ever get better.
// Assembly is deterministic: references plus structural normalization.
type Editor struct {
	deps Deps
}

func NewEditor(deps Deps) *Editor {
	return &Editor{deps: deps}
}

func (e *Editor) Name() string { return StageEditor }

// refinePhase is one named state of the refinement machine. Its only
// transitions are forward: to the next phase on success, and to the next
// phase with input unchanged on failure.
type refinePhase struct {
	name    string
	message string
	prompt  func(s *state.State, input string) string
}

var refinePhases = []refinePhase{
	{"compose", "Compiling initial report", composePrompt},
	{"sweep", "Cleaning up and organizing report", sweepPrompt},
	{"format_enforce", "Formatting final report", formatPrompt},
}

func (e *Editor) Run(ctx context.Context, s *state.State) (state.Update, error) {
	logger := e.deps.logger()
	msgs := []string{fmt.Sprintf("Compiling final report for %s", s.Company)}

	briefings := e.collectBriefings(s, &msgs)
	if len(briefings) == 0 {
		// Nothing to refine: explicit absent report, no generative calls.
		logger.Error("No briefings available to compile", "company", s.Company)
		msgs = append(msgs, "No briefing sections available to compile, report not generated")
		return state.Update{
			state.KeyReport:   (*string)(nil),
			state.KeyMessages: msgs,
		}, nil
	}

	text := strings.Join(briefings, "\n\n")
	for _, phase := range refinePhases {
		observer.Notify(s.Notifier, observer.StatusEvent{
			JobID:   s.JobID,
			Status:  observer.StatusProcessing,
			Message: phase.message,
			Payload: map[string]any{"step": "Editor", "substep": phase.name},
		})

		input := text
		text = attempt(logger, "report "+phase.name, input, func() (string, error) {
			return e.generateStreamed(ctx, s, phase.prompt(s, input))
		})
	}

	report := e.assemble(s, text)
	msgs = append(msgs, fmt.Sprintf("Report compilation complete (%d characters)", len(report)))
	logger.Info("Report compiled", "company", s.Company, "length", len(report))

	return state.Update{
		state.KeyReport:   report,
		state.KeyMessages: msgs,
	}, nil
}

func (e *Editor) collectBriefings(s *state.State, msgs *[]string) []string {
	var briefings []string
	for _, cat := range briefingCategories {
		content := s.Briefing(cat.briefing)
		if content == "" {
			e.deps.logger().Warn("Missing briefing", "category", cat.label)
			*msgs = append(*msgs, fmt.Sprintf("No %s briefing available", cat.label))
			continue
		}
		briefings = append(briefings, content)
		*msgs = append(*msgs, fmt.Sprintf("Found %s briefing (%d characters)", cat.label, len(content)))
	}
	return briefings
}

// generateStreamed runs one generative phase, forwarding every chunk to the
// observer as it arrives while the backend accumulates the full result.
func (e *Editor) generateStreamed(ctx context.Context, s *state.State, prompt string) (string, error) {
	return e.deps.Generator.Generate(ctx, prompt, func(chunk string) {
		observer.Notify(s.Notifier, observer.StatusEvent{
			JobID:   s.JobID,
			Status:  observer.StatusReportChunk,
			Message: "Streaming report",
			Payload: map[string]any{"step": "Editor", "chunk": chunk},
		})
	})
}

// assemble is the deterministic final phase: append the reference list and
// normalize the document structure. Pure and idempotent.
func (e *Editor) assemble(s *state.State, text string) string {
	if len(s.References) > 0 && !strings.Contains(text, "## References") {
		lines := []string{"", "## References", ""}
		for _, ref := range s.References {
			lines = append(lines, fmt.Sprintf("* [%s](%s)", ref, ref))
		}
		text += strings.Join(lines, "\n")
	}
	return markdown.Normalize(text, s.Company)
}

func composePrompt(s *state.State, input string) string {
	return fmt.Sprintf(`You are compiling a research report about %s.

Section briefings:
%s

Create a focused report that integrates all sections into a cohesive, non-repetitive narrative. Strictly use this structure:

# %s Research Report

## Company Overview
## Industry Overview
## Financial Overview
## News

Use ### subsections and * bullets. Return clean markdown, no commentary.`, s.Company, input, s.Company)
}

func sweepPrompt(s *state.State, input string) string {
	return fmt.Sprintf(`You are an expert report editor. Current report on %s:

%s

1. Remove redundant or repetitive information
2. Remove sections lacking substantial content
3. Remove any meta-commentary
4. Use * for bullet points
5. Keep all factual content

Return the cleaned report in markdown, no commentary.`, s.Company, input)
}

func formatPrompt(s *state.State, input string) string {
	return fmt.Sprintf(`You are an expert markdown editor. Current report on %s:

%s

Strictly enforce this structure, with no other ## headers and in exactly this order:

# %s Research Report

## Company Overview
## Industry Overview
## Financial Overview
## News

Use ### for subsections, * for bullets, single blank lines between sections, no code blocks. Return the polished report only.`, s.Company, input, s.Company)
}
