// Package openai converts between the public OpenAI Chat Completions
// wire shape and the gateway's normalized conversation model, and
// renders Upstream events back out as OpenAI SSE.
package openai

import (
	"encoding/json"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
	"github.com/ngoclaw/relaygate/internal/domain/schema"
	wire "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// ToNormalized converts an inbound OpenAI request into the gateway's
// wire-neutral request model, per 4.3.2. OpenAI's shape is already
// close to normalized: the only real work is lifting "tool" role
// messages into tool_result parts on a synthetic user message, and
// flattening string-or-list content.
func ToNormalized(req *wire.ChatCompletionRequest) *convo.Request {
	out := &convo.Request{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Stop:      req.StopSequences(),
		Stream:    req.Stream,
	}
	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}
	if req.TopP != nil {
		out.TopP = req.TopP
	}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			out.System = appendSystem(out.System, textOf(msg))
			continue
		}
		out.Messages = append(out.Messages, convertMessage(msg)...)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, convo.ToolDef{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  schema.NormalizeAny(t.Function.Parameters),
		})
	}

	mode, name := req.ToolChoiceMode()
	out.ToolChoice = &convo.ToolChoice{Mode: mode, Name: name}

	return out
}

func appendSystem(existing, add string) string {
	if existing == "" {
		return add
	}
	if add == "" {
		return existing
	}
	return existing + "\n" + add
}

func textOf(msg wire.Message) string {
	var sb []byte
	for _, p := range msg.Parts() {
		if p.Type == "text" || p.Type == "" {
			sb = append(sb, p.Text...)
		}
	}
	return string(sb)
}

func convertMessage(msg wire.Message) []convo.Message {
	if msg.Role == "tool" {
		return []convo.Message{{
			Role: convo.RoleUser,
			Content: []convo.ContentPart{convo.ToolResult{
				ToolUseID: msg.ToolCallID,
				Content:   []convo.ContentPart{convo.Text{Text: textOf(msg)}},
			}},
		}}
	}

	role := convo.Role(msg.Role)
	if role != convo.RoleUser && role != convo.RoleAssistant {
		role = convo.RoleUser
	}

	var parts []convo.ContentPart
	for _, p := range msg.Parts() {
		switch p.Type {
		case "text", "":
			if p.Text != "" {
				parts = append(parts, convo.Text{Text: p.Text})
			}
		case "image_url":
			if p.ImageURL != nil {
				parts = append(parts, imageFromURL(p.ImageURL.URL))
			}
		}
	}

	for _, tc := range msg.ToolCalls {
		var input map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		}
		parts = append(parts, convo.ToolUse{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	if len(parts) == 0 {
		return nil
	}
	return []convo.Message{{Role: role, Content: parts}}
}

// imageFromURL recognizes OpenAI's data: URL image inlining convention
// in addition to plain remote URLs.
func imageFromURL(url string) convo.Image {
	const dataPrefix = "data:"
	if len(url) > len(dataPrefix) && url[:len(dataPrefix)] == dataPrefix {
		mediaType, data, ok := parseDataURL(url)
		if ok {
			return convo.Image{Source: "base64", MediaType: mediaType, Data: data}
		}
	}
	return convo.Image{Source: "url", URL: url}
}

// parseDataURL splits "data:<mediatype>;base64,<data>" into its parts.
func parseDataURL(url string) (mediaType, data string, ok bool) {
	const prefix = "data:"
	rest := url[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ',' {
			header := rest[:i]
			data = rest[i+1:]
			const b64Suffix = ";base64"
			if len(header) >= len(b64Suffix) && header[len(header)-len(b64Suffix):] == b64Suffix {
				mediaType = header[:len(header)-len(b64Suffix)]
				return mediaType, data, true
			}
			return header, data, true
		}
	}
	return "", "", false
}
