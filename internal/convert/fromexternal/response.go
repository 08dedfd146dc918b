// Package fromexternal translates a non-streaming response an
// external API account returned back into the wire shape the gateway
// client actually asked for, when the account speaks the other
// format (spec.md §6's delegation path allows an OpenAI-format
// account to serve a Claude-format client and vice versa). Streamed
// cross-format delegation is not attempted here — re-translating a
// live SSE body frame-by-frame would need its own event decoder for
// each external wire shape, which nothing in this tree builds; the
// gateway handler restricts streamed delegation to matching formats
// and only reaches for this package on the non-streaming path.
package fromexternal

import (
	"encoding/json"
	"fmt"

	wireanthropic "github.com/ngoclaw/relaygate/internal/wire/anthropic"
	wireopenai "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// OpenAIToAnthropic decodes an OpenAI ChatCompletionResponse body and
// re-renders it as an Anthropic Messages API response.
func OpenAIToAnthropic(raw []byte, fallbackModel string) (*wireanthropic.Response, error) {
	var resp wireopenai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode external openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("external openai response carries no choices")
	}
	choice := resp.Choices[0]

	model := resp.Model
	if model == "" {
		model = fallbackModel
	}

	var blocks []wireanthropic.ContentBlock
	if choice.Message.Content != "" {
		blocks = append(blocks, wireanthropic.ContentBlock{Type: "text", Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		blocks = append(blocks, wireanthropic.ContentBlock{
			Type: "tool_use", ID: tc.ID, Name: tc.Function.Name, Input: input,
		})
	}

	return &wireanthropic.Response{
		ID:         resp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      model,
		Content:    blocks,
		StopReason: anthropicStopReason(choice.FinishReason),
		Usage: wireanthropic.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// AnthropicToOpenAI decodes an Anthropic Messages API response body
// and re-renders it as an OpenAI ChatCompletionResponse.
func AnthropicToOpenAI(raw []byte, fallbackModel string) (*wireopenai.ChatCompletionResponse, error) {
	var resp wireanthropic.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode external anthropic response: %w", err)
	}

	model := resp.Model
	if model == "" {
		model = fallbackModel
	}

	var text string
	var toolCalls []wireopenai.ToolCall
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			text += b.Text
		case "tool_use":
			args, _ := json.Marshal(b.Input)
			toolCalls = append(toolCalls, wireopenai.ToolCall{
				ID: b.ID, Type: "function",
				Function: wireopenai.ToolCallFunc{Name: b.Name, Arguments: string(args)},
			})
		}
	}

	finishReason := "stop"
	if resp.StopReason == "tool_use" {
		finishReason = "tool_calls"
	} else if resp.StopReason == "max_tokens" {
		finishReason = "length"
	}

	return &wireopenai.ChatCompletionResponse{
		ID:     resp.ID,
		Object: "chat.completion",
		Model:  model,
		Choices: []wireopenai.Choice{{
			Index:        0,
			Message:      wireopenai.RespMsg{Role: "assistant", Content: text, ToolCalls: toolCalls},
			FinishReason: finishReason,
		}},
		Usage: wireopenai.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func anthropicStopReason(openaiFinish string) string {
	switch openaiFinish {
	case "tool_calls":
		return "tool_use"
	case "length":
		return "max_tokens"
	default:
		return "end_turn"
	}
}
