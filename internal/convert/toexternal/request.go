// Package toexternal renders the gateway's normalized conversation
// model back into a wire request shape, for the external-API-account
// delegation path (spec.md §6): the inbound request may have arrived
// in one wire shape while the account the allocator picked only
// speaks the other, so the normalized form is the only common ground
// between them. Thinking segments are dropped rather than forwarded —
// an external account is, by definition, not Upstream, and has no
// matching notion of a thinking-hint budget.
package toexternal

import (
	"github.com/ngoclaw/relaygate/internal/domain/convo"
	wireanthropic "github.com/ngoclaw/relaygate/internal/wire/anthropic"
	wireopenai "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// BuildOpenAI renders req as an OpenAI Chat Completions request.
func BuildOpenAI(req *convo.Request) *wireopenai.ChatCompletionRequest {
	out := &wireopenai.ChatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
	}
	if req.System != "" {
		out.Messages = append(out.Messages, wireopenai.Message{
			Role:    "system",
			Content: rawString(req.System),
		})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openaiMessagesFor(m)...)
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireopenai.Tool{
			Type: "function",
			Function: wireopenai.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.ToolChoice != nil {
		out.ToolChoice = openaiToolChoice(req.ToolChoice)
	}
	if len(req.Stop) > 0 {
		out.Stop = req.Stop
	}
	return out
}

// BuildAnthropic renders req as an Anthropic Messages request.
func BuildAnthropic(req *convo.Request) *wireanthropic.Request {
	out := &wireanthropic.Request{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		System:        wireanthropic.System{Text: req.System},
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, anthropicMessageFor(m))
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireanthropic.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	if req.ToolChoice != nil {
		out.ToolChoice = &wireanthropic.ToolChoice{Type: anthropicToolChoiceType(req.ToolChoice.Mode), Name: req.ToolChoice.Name}
	}
	return out
}
