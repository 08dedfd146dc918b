package openai

import (
	"strings"

	"github.com/ngoclaw/relaygate/internal/domain/streamparse"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	wire "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// pendingTool accumulates one tool call's arguments as Upstream streams
// them, so the assembled tool_calls chunk can carry the whole JSON
// string OpenAI clients expect in one delta.
type pendingTool struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

// Translator turns a sequence of Upstream events into OpenAI
// chat.completion.chunk SSE frames, per 4.3.5. Unlike the Anthropic
// direction, OpenAI has no notion of a thinking block in its wire
// shape, so thinking segments are folded back into ordinary content
// text (wrapped in the same <thinking> tags a client that does
// understand them can re-detect).
type Translator struct {
	id    string
	model string

	thinking *streamparse.ThinkingParser

	roleSent bool
	tools    []*pendingTool
	byID     map[string]*pendingTool

	outputText strings.Builder
}

// NewTranslator returns a translator for one streamed response.
func NewTranslator(id, model string) *Translator {
	return &Translator{
		id:       id,
		model:    model,
		thinking: streamparse.NewThinkingParser(),
		byID:     map[string]*pendingTool{},
	}
}

// Handle consumes one Upstream event and returns zero or more rendered
// SSE frames.
func (t *Translator) Handle(ev upstream.Event) []string {
	switch ev.Kind {
	case upstream.EventContentDelta:
		return t.handleSegments(t.thinking.Push(ev.Text))

	case upstream.EventToolUseStart:
		pt := &pendingTool{index: len(t.tools), id: ev.ToolUseID, name: ev.ToolName}
		t.tools = append(t.tools, pt)
		t.byID[ev.ToolUseID] = pt
		return nil

	case upstream.EventToolUseDelta:
		if pt, ok := t.byID[ev.ToolUseID]; ok {
			pt.args.WriteString(ev.ToolInputDelta)
		}
		return nil

	case upstream.EventToolUseStop:
		return nil

	case upstream.EventContextUsage, upstream.EventMetering:
		return nil

	case upstream.EventException:
		// OpenAI's streaming shape has no mid-stream error event (4.5.1);
		// the caller is expected to end the stream and surface the
		// exception through its own error path instead.
		return nil

	default:
		return nil
	}
}

func (t *Translator) handleSegments(segments []streamparse.Segment) []string {
	var frames []string
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		text := seg.Text
		if seg.Kind == streamparse.SegmentThinking {
			text = "<thinking>" + seg.Text + "</thinking>"
		}
		t.outputText.WriteString(text)

		delta := wire.StreamDelta{Content: text}
		if !t.roleSent {
			delta.Role = "assistant"
			t.roleSent = true
		}
		frames = append(frames, wire.RenderChunk(wire.StreamChunk{
			ID:      t.id,
			Object:  "chat.completion.chunk",
			Model:   t.model,
			Choices: []wire.StreamChoice{{Index: 0, Delta: delta}},
		}))
	}
	return frames
}

// Finalize flushes any remaining thinking-tag buffer, emits the
// assembled tool_calls chunk (if any tools were called), the final
// chunk carrying finish_reason and usage, and the terminal [DONE]
// frame.
func (t *Translator) Finalize(finishReason string, usage wire.Usage) []string {
	frames := t.handleSegments(t.thinking.Flush())

	if len(t.tools) > 0 {
		deltaTools := make([]wire.DeltaTool, len(t.tools))
		for i, pt := range t.tools {
			deltaTools[i] = wire.DeltaTool{
				Index: pt.index,
				ID:    pt.id,
				Type:  "function",
				Function: wire.DeltaFunc{
					Name:      pt.name,
					Arguments: pt.args.String(),
				},
			}
		}
		delta := wire.StreamDelta{ToolCalls: deltaTools}
		if !t.roleSent {
			delta.Role = "assistant"
			t.roleSent = true
		}
		frames = append(frames, wire.RenderChunk(wire.StreamChunk{
			ID:      t.id,
			Object:  "chat.completion.chunk",
			Model:   t.model,
			Choices: []wire.StreamChoice{{Index: 0, Delta: delta}},
		}))
	}

	reason := finishReason
	frames = append(frames, wire.RenderChunk(wire.StreamChunk{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Model:   t.model,
		Choices: []wire.StreamChoice{{Index: 0, Delta: wire.StreamDelta{}, FinishReason: &reason}},
		Usage:   &usage,
	}))

	frames = append(frames, wire.DoneFrame)
	return frames
}

// OutputText returns all content emitted so far, for local token
// counting (§4.4).
func (t *Translator) OutputText() string {
	return t.outputText.String()
}

// HasToolCalls reports whether any tool call was observed, letting the
// caller pick "tool_calls" vs "stop" as the finish reason.
func (t *Translator) HasToolCalls() bool {
	return len(t.tools) > 0
}
