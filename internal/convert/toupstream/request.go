// Package toupstream renders the gateway's normalized conversation
// model into Upstream's generateAssistantResponse request payload, per
// the nine construction rules in the format-converter design: adjacent
// same-role merging, tool-role folding, system-prompt injection,
// thinking-hint injection, last-message handling, image attachment,
// tool-definition attachment (with long-description relocation), and
// tool-result attachment.
package toupstream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
	wire "github.com/ngoclaw/relaygate/internal/wire/upstreamreq"
)

// Thinking-hint budget bounds (see Open Questions: the source disagreed
// on a default between 16 000 and 200 000; this converter uses 16 000
// for hint generation, matching the literal example in the test
// scenarios, and a separate, larger bound governs token-counting
// elsewhere).
const (
	defaultThinkingBudget = 16_000
	maxThinkingBudget     = 24_576
)

const chunkingPolicyLiteral = "When a tool result exceeds the available context, it will be delivered in sequential chunks; treat each chunk as a continuation of the same result and wait for all chunks before responding, without mentioning this chunking process to the user."

const continueLiteral = "Continue"

const systemInjectionAck = "I will follow these instructions."

// Options configures request construction with gateway-wide settings
// that aren't part of the normalized request itself.
type Options struct {
	ProfileArn               string
	ToolDescriptionMaxLength int
}

const defaultToolDescriptionMaxLength = 2000

// Build renders a normalized request into an Upstream payload.
func Build(req *convo.Request, opts Options) *wire.Payload {
	if opts.ToolDescriptionMaxLength <= 0 {
		opts.ToolDescriptionMaxLength = defaultToolDescriptionMaxLength
	}

	messages := mergeAdjacentSameRole(req.Messages)

	system := req.System
	relocatedDocs, tools := buildTools(req.Tools, opts.ToolDescriptionMaxLength)
	if relocatedDocs != "" {
		system = appendToolDocs(system, relocatedDocs)
	}

	history := buildSystemInjectionHistory(system, req.ThinkingMode, req.ThinkingBudget)

	current, trailingHistory := splitCurrent(messages)
	history = append(history, trailingHistory...)

	content, images, toolResults := renderCurrentMessage(current)
	if strings.TrimSpace(content) == "" {
		content = continueLiteral
	}

	payload := &wire.Payload{
		ConversationState: wire.ConversationState{
			ChatTriggerType: "MANUAL",
			ConversationID:  uuid.NewString(),
			CurrentMessage: wire.CurrentMessage{
				UserInputMessage: wire.UserInputMessage{
					Content: content,
					ModelID: req.Model,
					Origin:  "AI_EDITOR",
					Images:  images,
				},
			},
			History: history,
		},
		ProfileArn: opts.ProfileArn,
	}

	ctx := &wire.UserInputMessageContext{}
	if len(tools) > 0 {
		ctx.Tools = tools
	}
	if len(toolResults) > 0 {
		ctx.ToolResults = toolResults
	}
	if len(ctx.Tools) > 0 || len(ctx.ToolResults) > 0 {
		payload.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext = ctx
	}

	return payload
}

// mergeAdjacentSameRole concatenates consecutive messages sharing a
// role: text content joins with "\n", tool_use/tool_result/thinking
// parts are unioned in order. Upstream rejects consecutive same-role
// turns outright, and this is also how a run of synthesized
// single-tool-result "user" messages (one per originating tool-role
// message) gets folded into one multi-result turn.
func mergeAdjacentSameRole(messages []convo.Message) []convo.Message {
	hasText := func(parts []convo.ContentPart) bool {
		for _, p := range parts {
			if _, ok := p.(convo.Text); ok {
				return true
			}
		}
		return false
	}
	var out []convo.Message
	for _, m := range messages {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			if hasText(out[n-1].Content) && hasText(m.Content) {
				out[n-1].Content = append(out[n-1].Content, convo.Text{Text: "\n"})
			}
			out[n-1].Content = append(out[n-1].Content, m.Content...)
			continue
		}
		out = append(out, convo.Message{Role: m.Role, Content: append([]convo.ContentPart(nil), m.Content...)})
	}
	return out
}

// buildSystemInjectionHistory produces the synthetic user/assistant
// pair that carries system text and the thinking hint, since Upstream
// has no dedicated system field.
func buildSystemInjectionHistory(system string, thinkingMode bool, thinkingBudget int) []wire.HistoryItem {
	hint := thinkingHint(system, thinkingMode, thinkingBudget)

	var sb strings.Builder
	if hint != "" {
		sb.WriteString(hint)
		sb.WriteString("\n")
	}
	if system != "" {
		sb.WriteString(system)
		sb.WriteString("\n")
		sb.WriteString(chunkingPolicyLiteral)
	}

	userContent := strings.TrimRight(sb.String(), "\n")
	if userContent == "" {
		return nil
	}

	return []wire.HistoryItem{
		{UserInputMessage: &wire.HistoryUserMessage{Content: userContent}},
		{AssistantResponseMessage: &wire.HistoryAssistantMessage{Content: systemInjectionAck}},
	}
}

// thinkingHint renders the enabled-mode <thinking_mode> hint with a
// <max_thinking_length> budget (defaultThinkingBudget when unset,
// capped at maxThinkingBudget), or "" if thinking is disabled or the
// caller's system text already carries its own hint. It has no
// adaptive/effort form: an adaptive-thinking request gets this same
// enabled hint.
func thinkingHint(system string, enabled bool, budget int) string {
	if !enabled {
		return ""
	}
	if strings.Contains(system, "<thinking_mode>") {
		return ""
	}
	if budget <= 0 {
		budget = defaultThinkingBudget
	}
	if budget > maxThinkingBudget {
		budget = maxThinkingBudget
	}
	return fmt.Sprintf("<thinking_mode>enabled</thinking_mode><max_thinking_length>%d</max_thinking_length>", budget)
}

func appendToolDocs(system, docs string) string {
	if system == "" {
		return "# Tool Documentation\n" + docs
	}
	return system + "\n\n# Tool Documentation\n" + docs
}

// splitCurrent pulls the last message off the slice to become
// currentMessage, per rule 5. If it is an assistant message it is
// appended to history instead, and the caller gets an empty current
// message (which Build then replaces with "Continue").
func splitCurrent(messages []convo.Message) (current *convo.Message, trailingHistory []wire.HistoryItem) {
	if len(messages) == 0 {
		return nil, nil
	}
	last := messages[len(messages)-1]
	rest := messages[:len(messages)-1]

	trailingHistory = renderHistory(rest)

	if last.Role == convo.RoleAssistant {
		trailingHistory = append(trailingHistory, wire.HistoryItem{
			AssistantResponseMessage: &wire.HistoryAssistantMessage{Content: contentText(last.Content)},
		})
		return nil, trailingHistory
	}
	return &last, trailingHistory
}

func renderHistory(messages []convo.Message) []wire.HistoryItem {
	out := make([]wire.HistoryItem, 0, len(messages))
	for _, m := range messages {
		text := contentText(m.Content)
		if m.Role == convo.RoleAssistant {
			out = append(out, wire.HistoryItem{AssistantResponseMessage: &wire.HistoryAssistantMessage{Content: text}})
		} else {
			out = append(out, wire.HistoryItem{UserInputMessage: &wire.HistoryUserMessage{Content: text}})
		}
	}
	return out
}

// contentText flattens a message's parts into the plain text Upstream
// history entries carry. Tool calls are rendered in the same
// bracket-wrapped JSON shape the event-stream parser's fallback path
// detects, keeping the representation consistent across the gateway.
func contentText(parts []convo.ContentPart) string {
	var sb strings.Builder
	for _, p := range parts {
		switch v := p.(type) {
		case convo.Text:
			sb.WriteString(v.Text)
		case convo.Thinking:
			sb.WriteString(fmt.Sprintf("<thinking>%s</thinking>", v.Text))
		case convo.ToolUse:
			raw, _ := json.Marshal(map[string]any{"name": v.Name, "input": v.Input})
			sb.WriteString(fmt.Sprintf("[%s]", raw))
		case convo.ToolResult:
			sb.WriteString(contentText(v.Content))
		}
	}
	return sb.String()
}

// renderCurrentMessage splits the current message's parts into its
// plain text content, attached images, and structured tool results
// (rules 6 and 8). A nil current message (the prior turn was an
// assistant message moved entirely into history) yields all zero
// values, which Build then turns into the literal "Continue".
func renderCurrentMessage(current *convo.Message) (content string, images []wire.Image, results []wire.ToolResult) {
	if current == nil {
		return "", nil, nil
	}

	var sb strings.Builder
	for _, p := range current.Content {
		switch v := p.(type) {
		case convo.Text:
			sb.WriteString(v.Text)
		case convo.Thinking:
			sb.WriteString(fmt.Sprintf("<thinking>%s</thinking>", v.Text))
		case convo.Image:
			if img, ok := renderImage(v); ok {
				images = append(images, img)
			}
		case convo.ToolUse:
			raw, _ := json.Marshal(map[string]any{"name": v.Name, "input": v.Input})
			sb.WriteString(fmt.Sprintf("[%s]", raw))
		case convo.ToolResult:
			results = append(results, wire.ToolResult{
				Content:   []wire.ToolResultContent{{Text: contentText(v.Content)}},
				Status:    resultStatus(v.IsError),
				ToolUseID: v.ToolUseID,
			})
		}
	}
	return sb.String(), images, results
}

func resultStatus(isError bool) string {
	if isError {
		return "error"
	}
	return "success"
}

// renderImage encodes an inline image for Upstream's images[] field.
// Only already-embedded (base64) sources can be attached without a
// network fetch; a URL-sourced image on the current turn is silently
// dropped by the caller rather than fetched here, keeping this
// converter free of I/O.
func renderImage(img convo.Image) (wire.Image, bool) {
	if img.Source != "base64" || img.Data == "" {
		return wire.Image{}, false
	}
	format := strings.TrimPrefix(img.MediaType, "image/")
	if format == "" {
		format = "png"
	}
	// Re-encode through base64.StdEncoding to normalize a URL-safe or
	// unpadded source alphabet some clients send.
	raw, err := decodeFlexibleBase64(img.Data)
	if err != nil {
		return wire.Image{}, false
	}
	return wire.Image{
		Format: format,
		Source: wire.ImageSource{Bytes: base64.StdEncoding.EncodeToString(raw)},
	}, true
}

func decodeFlexibleBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// buildTools converts normalized tool definitions into Upstream's
// ToolEntry shape, relocating any description past the configured
// length limit into a system-prompt appendix per rule 7. Returns the
// appendix text (empty if nothing was relocated) alongside the tools.
func buildTools(tools []convo.ToolDef, maxLen int) (relocatedDocs string, entries []wire.ToolEntry) {
	var docs strings.Builder
	for _, t := range tools {
		desc := t.Description
		if len(desc) > maxLen {
			docs.WriteString(fmt.Sprintf("## Tool: %s\n%s\n\n", t.Name, t.Description))
			desc = fmt.Sprintf("[Full documentation in system prompt under '## Tool: %s']", t.Name)
		}
		entries = append(entries, wire.ToolEntry{
			ToolSpecification: wire.ToolSpecification{
				Name:        t.Name,
				Description: desc,
				InputSchema: wire.InputSchema{JSON: t.Parameters},
			},
		})
	}
	return strings.TrimRight(docs.String(), "\n"), entries
}
