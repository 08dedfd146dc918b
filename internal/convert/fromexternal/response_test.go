package fromexternal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIToAnthropic_TextChoiceTranslated(t *testing.T) {
	raw := []byte(`{
		"id": "chatcmpl-1",
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
	}`)

	resp, err := OpenAIToAnthropic(raw, "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "text", resp.Content[0].Type)
	assert.Equal(t, "hi there", resp.Content[0].Text)
	assert.Equal(t, 5, resp.Usage.InputTokens)
	assert.Equal(t, 2, resp.Usage.OutputTokens)
}

func TestOpenAIToAnthropic_MissingModelFallsBack(t *testing.T) {
	raw := []byte(`{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"x"}}]}`)
	resp, err := OpenAIToAnthropic(raw, "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "fallback-model", resp.Model)
}

func TestOpenAIToAnthropic_ToolCallsBecomeToolUseBlocks(t *testing.T) {
	raw := []byte(`{
		"id": "chatcmpl-2",
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"message": {
				"role": "assistant",
				"tool_calls": [{"id": "t1", "type": "function", "function": {"name": "search", "arguments": "{\"q\":\"go\"}"}}]
			},
			"finish_reason": "tool_calls"
		}]
	}`)

	resp, err := OpenAIToAnthropic(raw, "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "tool_use", resp.Content[0].Type)
	assert.Equal(t, "t1", resp.Content[0].ID)
	assert.Equal(t, "search", resp.Content[0].Name)
	assert.Equal(t, "go", resp.Content[0].Input["q"])
}

func TestOpenAIToAnthropic_NoChoicesIsAnError(t *testing.T) {
	_, err := OpenAIToAnthropic([]byte(`{"id":"c1","choices":[]}`), "fallback-model")
	assert.Error(t, err)
}

func TestAnthropicToOpenAI_TextBlocksConcatenated(t *testing.T) {
	raw := []byte(`{
		"id": "msg_1",
		"model": "claude-sonnet-4-5",
		"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 3, "output_tokens": 4}
	}`)

	resp, err := AnthropicToOpenAI(raw, "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "claude-sonnet-4-5", resp.Model)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello world", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestAnthropicToOpenAI_ToolUseBlockBecomesToolCall(t *testing.T) {
	raw := []byte(`{
		"id": "msg_2",
		"model": "claude-sonnet-4-5",
		"content": [{"type": "tool_use", "id": "t1", "name": "search", "input": {"q": "go"}}],
		"stop_reason": "tool_use"
	}`)

	resp, err := AnthropicToOpenAI(raw, "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	tc := resp.Choices[0].Message.ToolCalls[0]
	assert.Equal(t, "t1", tc.ID)
	assert.Equal(t, "search", tc.Function.Name)
	assert.JSONEq(t, `{"q":"go"}`, tc.Function.Arguments)
}

func TestAnthropicToOpenAI_MaxTokensStopReasonBecomesLength(t *testing.T) {
	raw := []byte(`{"id":"msg_3","content":[{"type":"text","text":"x"}],"stop_reason":"max_tokens"}`)
	resp, err := AnthropicToOpenAI(raw, "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "length", resp.Choices[0].FinishReason)
}
