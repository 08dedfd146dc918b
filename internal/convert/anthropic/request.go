// Package anthropic converts between the public Anthropic Messages
// wire shape and the gateway's normalized conversation model, and
// renders Upstream events back out as Anthropic SSE.
package anthropic

import (
	"fmt"
	"strings"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
	"github.com/ngoclaw/relaygate/internal/domain/schema"
	wire "github.com/ngoclaw/relaygate/internal/wire/anthropic"
)

const imageHistoryPlaceholder = "[此消息包含 %d 张图片，已在历史记录中省略]"

// ToNormalized converts an inbound Anthropic request into the gateway's
// wire-neutral request model, per 4.3.1.
func ToNormalized(req *wire.Request) *convo.Request {
	out := &convo.Request{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    systemText(req.System),
		Stop:      req.StopSequences,
		Stream:    req.Stream,
	}
	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}
	if req.TopP != nil {
		out.TopP = req.TopP
	}

	for i, msg := range req.Messages {
		isLast := i == len(req.Messages)-1
		out.Messages = append(out.Messages, convertMessage(msg, !isLast)...)
	}

	for _, t := range req.Tools {
		if strings.HasPrefix(t.Type, "web_search") {
			continue
		}
		out.Tools = append(out.Tools, convo.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema.NormalizeAny(t.InputSchema),
		})
	}

	if req.ToolChoice != nil {
		out.ToolChoice = convertToolChoice(req.ToolChoice)
	}

	if req.Thinking != nil {
		out.ThinkingMode = req.Thinking.Type == "enabled" || req.Thinking.Type == "adaptive"
		out.ThinkingBudget = req.Thinking.BudgetTokens
	}

	return out
}

func systemText(s wire.System) string {
	if s.Text != "" {
		return s.Text
	}
	var sb strings.Builder
	for _, b := range s.Blocks {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

func convertToolChoice(tc *wire.ToolChoice) *convo.ToolChoice {
	switch tc.Type {
	case "auto":
		return &convo.ToolChoice{Mode: "auto"}
	case "any":
		return &convo.ToolChoice{Mode: "required"}
	case "tool":
		return &convo.ToolChoice{Mode: "tool", Name: tc.Name}
	case "none":
		return &convo.ToolChoice{Mode: "none"}
	default:
		return &convo.ToolChoice{Mode: "auto"}
	}
}

// convertMessage expands one wire message into zero or more normalized
// messages. Most wire messages map 1:1; a message mixing tool_result
// blocks with sibling user text still produces a single normalized
// "user" message so the sibling text is never dropped, per 4.3.1.
func convertMessage(m wire.Message, historical bool) []convo.Message {
	role := convo.Role(m.Role)
	if role != convo.RoleUser && role != convo.RoleAssistant {
		role = convo.RoleUser
	}

	var parts []convo.ContentPart
	imageCount := 0
	for _, b := range m.Content {
		switch b.Type {
		case "text":
			parts = append(parts, convo.Text{Text: b.Text})

		case "image":
			imageCount++
			if historical {
				continue // placeholder appended once, below
			}
			parts = append(parts, imageFromBlock(b))

		case "tool_use":
			parts = append(parts, convo.ToolUse{ID: b.ID, Name: b.Name, Input: b.Input})

		case "tool_result":
			parts = append(parts, convo.ToolResult{
				ToolUseID: b.ToolUseID,
				Content:   convertToolResultContent(b),
				IsError:   b.ToolIsError,
			})

		case "thinking":
			// Re-wrapped as text so the downstream thinking-tag parser
			// re-detects it uniformly across all three wire formats.
			parts = append(parts, convo.Text{
				Text: fmt.Sprintf("<thinking>%s</thinking>", b.Thinking),
			})
		}
	}

	if historical && imageCount > 0 {
		parts = append(parts, convo.Text{Text: fmt.Sprintf(imageHistoryPlaceholder, imageCount)})
	}

	if len(parts) == 0 {
		return nil
	}
	return []convo.Message{{Role: role, Content: parts}}
}

func imageFromBlock(b wire.ContentBlock) convo.Image {
	if b.Source == nil {
		return convo.Image{}
	}
	switch b.Source.Type {
	case "url":
		return convo.Image{Source: "url", URL: b.Source.URL}
	default:
		return convo.Image{Source: "base64", MediaType: b.Source.MediaType, Data: b.Source.Data}
	}
}

func convertToolResultContent(b wire.ContentBlock) []convo.ContentPart {
	if len(b.ToolContent) == 0 {
		if b.Content != "" {
			return []convo.ContentPart{convo.Text{Text: b.Content}}
		}
		return nil
	}
	out := make([]convo.ContentPart, 0, len(b.ToolContent))
	for _, c := range b.ToolContent {
		switch c.Type {
		case "image":
			out = append(out, imageFromBlock(c))
		default:
			out = append(out, convo.Text{Text: c.Text})
		}
	}
	return out
}
