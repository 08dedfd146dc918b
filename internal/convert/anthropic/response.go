package anthropic

import (
	"strings"

	"github.com/ngoclaw/relaygate/internal/domain/streamparse"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	wire "github.com/ngoclaw/relaygate/internal/wire/anthropic"
)

// Anthropic's stop_reason vocabulary for message_delta, per 4.3.6. The
// last one has no equivalent in convo.StopReason since it only ever
// arises from an Upstream exception, never from the normalized model.
const (
	StopEndTurn                   = "end_turn"
	StopToolUse                   = "tool_use"
	StopMaxTokens                 = "max_tokens"
	StopModelContextWindowExceeded = "model_context_window_exceeded"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
	blockTool
)

// Translator turns a sequence of Upstream events into ordered Anthropic
// SSE frames, tracking the single currently-open content block (text,
// thinking, or tool_use) and the thinking-tag parser that splits raw
// content deltas into text/thinking segments.
type Translator struct {
	thinking *streamparse.ThinkingParser

	nextIndex int
	current   blockKind
	toolIndex int
	toolID    string

	contextUsagePercentage float64
	haveContextUsage       bool
	metering               map[string]any

	outputText strings.Builder
}

// NewTranslator returns a translator with no block open.
func NewTranslator() *Translator {
	return &Translator{thinking: streamparse.NewThinkingParser()}
}

// StartMessage renders the message_start frame that must precede any
// content-block events. inputTokens is the best estimate available at
// call time (§4.4): local-only in the standard path, accurate in the
// buffered path.
func (t *Translator) StartMessage(id, model string, inputTokens int) string {
	return wire.SSEEvent{
		Name: "message_start",
		Payload: wire.MessageStartPayload{
			Type: "message_start",
			Message: wire.MessageStartInner{
				ID:      id,
				Type:    "message",
				Role:    "assistant",
				Model:   model,
				Content: []wire.ContentBlock{},
				Usage:   wire.Usage{InputTokens: inputTokens},
			},
		},
	}.Render()
}

// Handle consumes one Upstream event and returns zero or more rendered
// SSE frames, in order.
func (t *Translator) Handle(ev upstream.Event) []string {
	switch ev.Kind {
	case upstream.EventContentDelta:
		return t.handleSegments(t.thinking.Push(ev.Text))

	case upstream.EventToolUseStart:
		var frames []string
		frames = append(frames, t.closeCurrent()...)
		idx := t.openBlock(blockTool)
		t.toolIndex = idx
		t.toolID = ev.ToolUseID
		frames = append(frames, wire.SSEEvent{
			Name: "content_block_start",
			Payload: wire.ContentBlockStartPayload{
				Type:  "content_block_start",
				Index: idx,
				ContentBlock: wire.ContentBlock{
					Type:  "tool_use",
					ID:    ev.ToolUseID,
					Name:  ev.ToolName,
					Input: map[string]any{},
				},
			},
		}.Render())
		return frames

	case upstream.EventToolUseDelta:
		if t.current != blockTool || ev.ToolUseID != t.toolID {
			return nil
		}
		return []string{wire.SSEEvent{
			Name: "content_block_delta",
			Payload: wire.ContentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: t.toolIndex,
				Delta: wire.ContentBlockDelta{Type: "input_json_delta", PartialJSON: ev.ToolInputDelta},
			},
		}.Render()}

	case upstream.EventToolUseStop:
		if t.current != blockTool || ev.ToolUseID != t.toolID {
			return nil
		}
		return t.closeCurrent()

	case upstream.EventContextUsage:
		t.contextUsagePercentage = ev.ContextUsagePercentage
		t.haveContextUsage = true
		return nil

	case upstream.EventMetering:
		t.metering = ev.Metering
		return nil

	case upstream.EventException:
		return []string{wire.SSEEvent{
			Name: "error",
			Payload: wire.ErrorBody{
				Type:  "error",
				Error: wire.ErrorInfo{Type: wire.ErrTypeAPIError, Message: ev.ExceptionMessage},
			},
		}.Render()}

	default:
		return nil
	}
}

// handleSegments opens/closes text and thinking blocks as the
// thinking-tag parser's segment kind changes, emitting deltas in
// between. Interleaved segments each get their own block per 4.3.6.
func (t *Translator) handleSegments(segments []streamparse.Segment) []string {
	var frames []string
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		wantKind := blockText
		if seg.Kind == streamparse.SegmentThinking {
			wantKind = blockThinking
		}
		if t.current != wantKind {
			frames = append(frames, t.closeCurrent()...)
			idx := t.openBlock(wantKind)
			blockType := "text"
			if wantKind == blockThinking {
				blockType = "thinking"
			}
			frames = append(frames, wire.SSEEvent{
				Name: "content_block_start",
				Payload: wire.ContentBlockStartPayload{
					Type:         "content_block_start",
					Index:        idx,
					ContentBlock: wire.ContentBlock{Type: blockType},
				},
			}.Render())
		}

		t.outputText.WriteString(seg.Text)

		delta := wire.ContentBlockDelta{Type: "text_delta", Text: seg.Text}
		if wantKind == blockThinking {
			delta = wire.ContentBlockDelta{Type: "thinking_delta", Thinking: seg.Text}
		}
		frames = append(frames, wire.SSEEvent{
			Name: "content_block_delta",
			Payload: wire.ContentBlockDeltaPayload{Type: "content_block_delta", Index: t.lastIndex(), Delta: delta},
		}.Render())
	}
	return frames
}

func (t *Translator) openBlock(kind blockKind) int {
	idx := t.nextIndex
	t.nextIndex++
	t.current = kind
	return idx
}

func (t *Translator) lastIndex() int {
	return t.nextIndex - 1
}

func (t *Translator) closeCurrent() []string {
	if t.current == blockNone {
		return nil
	}
	idx := t.lastIndex()
	t.current = blockNone
	return []string{wire.SSEEvent{
		Name:    "content_block_stop",
		Payload: wire.ContentBlockStopPayload{Type: "content_block_stop", Index: idx},
	}.Render()}
}

// Finalize flushes the thinking-tag parser's trailing buffer, closes
// any still-open block, and renders message_delta + message_stop.
func (t *Translator) Finalize(stopReason string, outputTokens int) []string {
	var frames []string
	frames = append(frames, t.handleSegments(t.thinking.Flush())...)
	frames = append(frames, t.closeCurrent()...)
	frames = append(frames, wire.SSEEvent{
		Name: "message_delta",
		Payload: wire.MessageDeltaPayload{
			Type:  "message_delta",
			Delta: wire.MessageDeltaInner{StopReason: stopReason},
			Usage: wire.MessageDeltaUsage{OutputTokens: outputTokens},
		},
	}.Render())
	frames = append(frames, wire.SSEEvent{
		Name:    "message_stop",
		Payload: wire.MessageStopPayload{Type: "message_stop"},
	}.Render())
	return frames
}

// Ping renders the buffered-streaming keepalive frame.
func Ping() string {
	return wire.SSEEvent{Name: "ping", Payload: wire.PingPayload{Type: "ping"}}.Render()
}

// OutputText returns all text and thinking content emitted so far,
// for local token counting (§4.4).
func (t *Translator) OutputText() string {
	return t.outputText.String()
}

// ContextUsagePercentage returns Upstream's most recent context-usage
// estimate and whether one was ever reported.
func (t *Translator) ContextUsagePercentage() (float64, bool) {
	return t.contextUsagePercentage, t.haveContextUsage
}

// Metering returns the last metering payload Upstream reported, if any.
func (t *Translator) Metering() map[string]any {
	return t.metering
}
