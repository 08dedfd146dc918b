package toupstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
)

func TestBuild_SystemInjectionAndPlainUserTurn(t *testing.T) {
	req := &convo.Request{
		Model:  "claude-sonnet-4-5",
		System: "You are helpful",
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "Hi"}}},
		},
	}

	payload := Build(req, Options{})

	require.Len(t, payload.ConversationState.History, 2)
	require.NotNil(t, payload.ConversationState.History[0].UserInputMessage)
	assert.Equal(t, "You are helpful\n"+chunkingPolicyLiteral, payload.ConversationState.History[0].UserInputMessage.Content)
	require.NotNil(t, payload.ConversationState.History[1].AssistantResponseMessage)
	assert.Equal(t, systemInjectionAck, payload.ConversationState.History[1].AssistantResponseMessage.Content)

	assert.Equal(t, "Hi", payload.ConversationState.CurrentMessage.UserInputMessage.Content)
	assert.NotEmpty(t, payload.ConversationState.ConversationID)
}

func TestBuild_ThinkingHintBudgetPassedThrough(t *testing.T) {
	req := &convo.Request{
		Model:          "gpt-4o",
		ThinkingMode:   true,
		ThinkingBudget: 10000,
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "go"}}},
		},
	}

	payload := Build(req, Options{})

	require.Len(t, payload.ConversationState.History, 2)
	content := payload.ConversationState.History[0].UserInputMessage.Content
	assert.True(t, strings.HasPrefix(content, "<thinking_mode>enabled</thinking_mode><max_thinking_length>10000</max_thinking_length>"))
}

func TestBuild_ThinkingBudgetClampedToMax(t *testing.T) {
	req := &convo.Request{
		ThinkingMode:   true,
		ThinkingBudget: 999999,
		Messages:       []convo.Message{{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "go"}}}},
	}

	payload := Build(req, Options{})

	content := payload.ConversationState.History[0].UserInputMessage.Content
	assert.Contains(t, content, "<max_thinking_length>24576</max_thinking_length>")
}

func TestBuild_ThinkingDefaultBudget(t *testing.T) {
	req := &convo.Request{
		ThinkingMode: true,
		Messages:     []convo.Message{{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "go"}}}},
	}

	payload := Build(req, Options{})

	content := payload.ConversationState.History[0].UserInputMessage.Content
	assert.Contains(t, content, "<max_thinking_length>16000</max_thinking_length>")
}

func TestBuild_SkipsHintWhenSystemAlreadyCarriesOne(t *testing.T) {
	req := &convo.Request{
		System:       "<thinking_mode>adaptive</thinking_mode> go wild",
		ThinkingMode: true,
		Messages:     []convo.Message{{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "go"}}}},
	}

	payload := Build(req, Options{})

	content := payload.ConversationState.History[0].UserInputMessage.Content
	assert.Equal(t, 1, strings.Count(content, "<thinking_mode>"))
}

func TestBuild_AssistantLastMessageBecomesContinue(t *testing.T) {
	req := &convo.Request{
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "hi"}}},
			{Role: convo.RoleAssistant, Content: []convo.ContentPart{convo.Text{Text: "hello"}}},
		},
	}

	payload := Build(req, Options{})

	assert.Equal(t, continueLiteral, payload.ConversationState.CurrentMessage.UserInputMessage.Content)

	var found bool
	for _, h := range payload.ConversationState.History {
		if h.AssistantResponseMessage != nil && h.AssistantResponseMessage.Content == "hello" {
			found = true
		}
	}
	assert.True(t, found, "expected trailing assistant message to be folded into history")
}

func TestBuild_EmptyCurrentContentBecomesContinue(t *testing.T) {
	req := &convo.Request{
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.ToolResult{ToolUseID: "t1", Content: []convo.ContentPart{convo.Text{Text: "42"}}}}},
		},
	}

	payload := Build(req, Options{})

	assert.Equal(t, continueLiteral, payload.ConversationState.CurrentMessage.UserInputMessage.Content)
	require.NotNil(t, payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext)
	require.Len(t, payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.ToolResults, 1)
	assert.Equal(t, "t1", payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.ToolResults[0].ToolUseID)
	assert.Equal(t, "success", payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.ToolResults[0].Status)
}

func TestBuild_AdjacentSameRoleMessagesMerge(t *testing.T) {
	req := &convo.Request{
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.ToolResult{ToolUseID: "t1", Content: []convo.ContentPart{convo.Text{Text: "a"}}}}},
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "and then?"}}},
		},
	}

	payload := Build(req, Options{})

	assert.Equal(t, "and then?", payload.ConversationState.CurrentMessage.UserInputMessage.Content)
	require.NotNil(t, payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext)
	assert.Len(t, payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.ToolResults, 1)
}

func TestBuild_LongToolDescriptionRelocatedToSystemAppendix(t *testing.T) {
	long := strings.Repeat("x", 50)
	req := &convo.Request{
		System: "base",
		Tools: []convo.ToolDef{
			{Name: "search", Description: long, Parameters: map[string]any{}},
		},
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{convo.Text{Text: "hi"}}},
		},
	}

	payload := Build(req, Options{ToolDescriptionMaxLength: 10})

	require.NotNil(t, payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext)
	tools := payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.Tools
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].ToolSpecification.Description, "Full documentation in system prompt")

	systemContent := payload.ConversationState.History[0].UserInputMessage.Content
	assert.Contains(t, systemContent, "# Tool Documentation")
	assert.Contains(t, systemContent, "## Tool: search")
	assert.Contains(t, systemContent, long)
}

func TestBuild_CurrentTurnImageAttached(t *testing.T) {
	req := &convo.Request{
		Messages: []convo.Message{
			{Role: convo.RoleUser, Content: []convo.ContentPart{
				convo.Image{Source: "base64", MediaType: "image/png", Data: "aGVsbG8="},
				convo.Text{Text: "what is this"},
			}},
		},
	}

	payload := Build(req, Options{})

	require.Len(t, payload.ConversationState.CurrentMessage.UserInputMessage.Images, 1)
	assert.Equal(t, "png", payload.ConversationState.CurrentMessage.UserInputMessage.Images[0].Format)
}
