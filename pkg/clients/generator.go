package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// LLMGenerator adapts a langchaingo model to the pipeline's Generator
// contract: plain streamed generation plus JSON-mode generation. Prose
// generation (briefings, report phases) can run on a reasoning model while
// JSON generation (sub-query sets) runs on a fast one.
type LLMGenerator struct {
	model llms.Model

	reasoningModel string
	fastModel      string
}

func NewLLMGenerator(model llms.Model) *LLMGenerator {
	return &LLMGenerator{model: model}
}

// WithModels overrides the client's default model per call class: reasoning
// for prose generation, fast for JSON generation. Empty strings keep the
// client default.
func (g *LLMGenerator) WithModels(reasoning, fast string) *LLMGenerator {
	g.reasoningModel = reasoning
	g.fastModel = fast
	return g
}

// Generate produces text for the prompt, forwarding chunks to stream as
// they arrive. The returned string is always the full accumulation, so
// callers can rely on chunks and result matching exactly.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string, stream func(chunk string)) (string, error) {
	var sb strings.Builder
	opts := []llms.CallOption{}
	if g.reasoningModel != "" {
		opts = append(opts, llms.WithModel(g.reasoningModel))
	}
	if stream != nil {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			sb.Write(chunk)
			stream(string(chunk))
			return nil
		}))
	}

	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	// Prefer the accumulated stream: it is exactly what the observer saw.
	if stream != nil && sb.Len() > 0 {
		return sb.String(), nil
	}
	return resp.Choices[0].Content, nil
}

// GenerateJSON produces a response constrained to a JSON object.
func (g *LLMGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithJSONMode()}
	if g.fastModel != "" {
		opts = append(opts, llms.WithModel(g.fastModel))
	}
	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}
