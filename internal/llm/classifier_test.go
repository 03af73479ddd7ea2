package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel implements llms.Model for testing without a provider.
type fakeModel struct {
	response *llms.ContentResponse
	err      error

	gotMessages []llms.MessageContent
	gotCtx      context.Context
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.gotCtx = ctx
	m.gotMessages = messages
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestClassifyReturnsContentAndTokens(t *testing.T) {
	model := &fakeModel{
		response: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{
				Content: `[{"id":0}]`,
				GenerationInfo: map[string]any{
					"PromptTokens":     1200,
					"CompletionTokens": 340,
				},
			}},
		},
	}
	c := NewClassifierWithModel(model, "gpt-4o-mini", 0)

	comp, err := c.Classify(context.Background(), []string{"맛있어요"})
	require.NoError(t, err)
	assert.Equal(t, `[{"id":0}]`, comp.Content)
	assert.Equal(t, 1200, comp.InputTokens)
	assert.Equal(t, 340, comp.OutputTokens)
}

func TestClassifySendsSystemAndUserMessages(t *testing.T) {
	model := &fakeModel{
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "[]"}}},
	}
	c := NewClassifierWithModel(model, "gpt-4o-mini", 0)

	_, err := c.Classify(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, model.gotMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.gotMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.gotMessages[1].Role)

	user := model.gotMessages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, user, `"id":0`)
	assert.Contains(t, user, `"text":"first"`)
	assert.Contains(t, user, `"id":1`)
	assert.Contains(t, user, `"text":"second"`)
}

func TestClassifyAppliesTimeout(t *testing.T) {
	model := &fakeModel{
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "[]"}}},
	}
	c := NewClassifierWithModel(model, "gpt-4o-mini", time.Minute)

	_, err := c.Classify(context.Background(), []string{"x"})
	require.NoError(t, err)

	deadline, ok := model.gotCtx.Deadline()
	require.True(t, ok, "call context must carry the request deadline")
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestClassifyEmptyChoices(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{}}
	c := NewClassifierWithModel(model, "gpt-4o-mini", 0)

	_, err := c.Classify(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response choices")
}

func TestClassifyMissingGenerationInfo(t *testing.T) {
	model := &fakeModel{
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "[]"}}},
	}
	c := NewClassifierWithModel(model, "llama3", 0)

	comp, err := c.Classify(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Zero(t, comp.InputTokens)
	assert.Zero(t, comp.OutputTokens)
}

func TestBuildUserPromptEncodesBatch(t *testing.T) {
	prompt, err := BuildUserPrompt([]string{"깨끗하고 좋아요", `quote " and comma,`})
	require.NoError(t, err)

	// The embedded payload must stay valid JSON whatever the review text.
	start := strings.Index(prompt, "[")
	end := strings.Index(prompt, "\n\n")
	require.True(t, start >= 0 && end > start)

	var items []struct {
		ID   int    `json:"id"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(prompt[start:end]), &items))
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].ID)
	assert.Equal(t, "깨끗하고 좋아요", items[0].Text)
	assert.Equal(t, `quote " and comma,`, items[1].Text)

	assert.Contains(t, prompt, "food_score")
	assert.Contains(t, prompt, "cash_only_flag")
}
