package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel returns canned content and, when chunks are set, replays them
// through the streaming callback first.
type fakeModel struct {
	content   string
	chunks    []string
	err       error
	noChoices bool

	lastOpts llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&m.lastOpts)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.lastOpts.StreamingFunc != nil {
		for _, chunk := range m.chunks {
			if err := m.lastOpts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	if m.noChoices {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.content}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.content, nil
}

func TestGenerateWithoutStream(t *testing.T) {
	g := NewLLMGenerator(&fakeModel{content: "hello"})

	out, err := g.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGenerateStreamedResultMatchesChunks(t *testing.T) {
	model := &fakeModel{content: "ignored when streamed", chunks: []string{"a", "b", "c"}}
	g := NewLLMGenerator(model)

	var seen string
	out, err := g.Generate(context.Background(), "prompt", func(chunk string) {
		seen += chunk
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", out)
	assert.Equal(t, out, seen, "streamed chunks must concatenate to the result")
}

func TestGenerateError(t *testing.T) {
	g := NewLLMGenerator(&fakeModel{err: errors.New("quota exceeded")})

	_, err := g.Generate(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateJSONSetsJSONMode(t *testing.T) {
	model := &fakeModel{content: `{"queries": []}`}
	g := NewLLMGenerator(model)

	out, err := g.GenerateJSON(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"queries": []}`, out)
	assert.True(t, model.lastOpts.JSONMode)
}

func TestWithModelsRoutesCallClasses(t *testing.T) {
	model := &fakeModel{content: "out"}
	g := NewLLMGenerator(model).WithModels("gemini-3-pro-preview", "gemini-3-flash-preview")

	_, err := g.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-preview", model.lastOpts.Model)

	model.lastOpts = llms.CallOptions{}
	_, err = g.GenerateJSON(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash-preview", model.lastOpts.Model)
	assert.True(t, model.lastOpts.JSONMode)
}

func TestWithoutModelsKeepsClientDefault(t *testing.T) {
	model := &fakeModel{content: "out"}
	g := NewLLMGenerator(model)

	_, err := g.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Empty(t, model.lastOpts.Model)
}

func TestGenerateNoChoices(t *testing.T) {
	g := NewLLMGenerator(&fakeModel{noChoices: true})

	_, err := g.Generate(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
