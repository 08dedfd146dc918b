package toexternal

import (
	"encoding/json"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
	wireanthropic "github.com/ngoclaw/relaygate/internal/wire/anthropic"
	wireopenai "github.com/ngoclaw/relaygate/internal/wire/openai"
)

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func openaiToolChoice(tc *convo.ToolChoice) any {
	switch tc.Mode {
	case "required":
		return "required"
	case "none":
		return "none"
	case "tool":
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.Name},
		}
	default:
		return "auto"
	}
}

func anthropicToolChoiceType(mode string) string {
	switch mode {
	case "required":
		return "any"
	case "tool":
		return "tool"
	case "none":
		return "none"
	default:
		return "auto"
	}
}

// openaiMessagesFor renders one normalized message as OpenAI messages.
// A tool_result part becomes its own "tool" role message, since OpenAI
// has no multi-part tool-result shape; everything else folds into a
// single text-or-parts message.
func openaiMessagesFor(m convo.Message) []wireopenai.Message {
	role := string(m.Role)
	var parts []wireopenai.Part
	var toolCalls []wireopenai.ToolCall
	var extra []wireopenai.Message

	for _, p := range m.Content {
		switch v := p.(type) {
		case convo.Text:
			parts = append(parts, wireopenai.Part{Type: "text", Text: v.Text})
		case convo.Thinking:
			// dropped: external accounts have no thinking-block contract.
		case convo.Image:
			url := v.URL
			if v.Source == "base64" {
				url = "data:" + v.MediaType + ";base64," + v.Data
			}
			parts = append(parts, wireopenai.Part{Type: "image_url", ImageURL: &wireopenai.ImageURL{URL: url}})
		case convo.ToolUse:
			args, _ := json.Marshal(v.Input)
			toolCalls = append(toolCalls, wireopenai.ToolCall{
				ID:   v.ID,
				Type: "function",
				Function: wireopenai.ToolCallFunc{
					Name:      v.Name,
					Arguments: string(args),
				},
			})
		case convo.ToolResult:
			extra = append(extra, wireopenai.Message{
				Role:       "tool",
				ToolCallID: v.ToolUseID,
				Content:    rawString(toolResultText(v.Content)),
			})
		}
	}

	var out []wireopenai.Message
	if len(parts) > 0 || len(toolCalls) > 0 {
		msg := wireopenai.Message{Role: role, ToolCalls: toolCalls}
		if len(parts) > 0 {
			b, _ := json.Marshal(parts)
			msg.Content = b
		}
		out = append(out, msg)
	}
	return append(out, extra...)
}

func toolResultText(parts []convo.ContentPart) string {
	var s string
	for _, p := range parts {
		if t, ok := p.(convo.Text); ok {
			s += t.Text
		}
	}
	return s
}

func anthropicMessageFor(m convo.Message) wireanthropic.Message {
	out := wireanthropic.Message{Role: string(m.Role)}
	for _, p := range m.Content {
		switch v := p.(type) {
		case convo.Text:
			out.Content = append(out.Content, wireanthropic.ContentBlock{Type: "text", Text: v.Text})
		case convo.Thinking:
			// dropped: CleanForHostedVariant would prune a signature-less
			// thinking block anyway; simpler not to forward it at all.
		case convo.Image:
			src := &wireanthropic.ImageSource{Type: "url", URL: v.URL}
			if v.Source == "base64" {
				src = &wireanthropic.ImageSource{Type: "base64", MediaType: v.MediaType, Data: v.Data}
			}
			out.Content = append(out.Content, wireanthropic.ContentBlock{Type: "image", Source: src})
		case convo.ToolUse:
			out.Content = append(out.Content, wireanthropic.ContentBlock{Type: "tool_use", ID: v.ID, Name: v.Name, Input: v.Input})
		case convo.ToolResult:
			var blocks []wireanthropic.ContentBlock
			for _, cp := range v.Content {
				if t, ok := cp.(convo.Text); ok {
					blocks = append(blocks, wireanthropic.ContentBlock{Type: "text", Text: t.Text})
				}
			}
			out.Content = append(out.Content, wireanthropic.ContentBlock{
				Type: "tool_result", ToolUseID: v.ToolUseID, ToolContent: blocks, ToolIsError: v.IsError,
			})
		}
	}
	return out
}
