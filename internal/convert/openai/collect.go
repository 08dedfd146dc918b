package openai

import (
	"encoding/json"
	"strings"

	"github.com/ngoclaw/relaygate/internal/domain/streamparse"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	wire "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// Collector accumulates Upstream events into a single assembled
// ChatCompletionResponse message, for the non-streaming path (§4.5.3).
type Collector struct {
	thinking *streamparse.ThinkingParser

	content strings.Builder
	tools   []*pendingTool
	byID    map[string]*pendingTool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{thinking: streamparse.NewThinkingParser(), byID: map[string]*pendingTool{}}
}

// Handle folds one Upstream event into the accumulated message.
func (c *Collector) Handle(ev upstream.Event) {
	switch ev.Kind {
	case upstream.EventContentDelta:
		c.appendSegments(c.thinking.Push(ev.Text))

	case upstream.EventToolUseStart:
		pt := &pendingTool{index: len(c.tools), id: ev.ToolUseID, name: ev.ToolName}
		c.tools = append(c.tools, pt)
		c.byID[ev.ToolUseID] = pt

	case upstream.EventToolUseDelta:
		if pt, ok := c.byID[ev.ToolUseID]; ok {
			pt.args.WriteString(ev.ToolInputDelta)
		}
	}
}

func (c *Collector) appendSegments(segments []streamparse.Segment) {
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if seg.Kind == streamparse.SegmentThinking {
			c.content.WriteString("<thinking>" + seg.Text + "</thinking>")
			continue
		}
		c.content.WriteString(seg.Text)
	}
}

// Finalize flushes the thinking-tag parser and returns the assembled
// message plus whether any tool call was observed.
func (c *Collector) Finalize() (msg wire.RespMsg, hasToolCalls bool) {
	c.appendSegments(c.thinking.Flush())

	msg = wire.RespMsg{Role: "assistant", Content: c.content.String()}
	if len(c.tools) == 0 {
		return msg, false
	}

	msg.ToolCalls = make([]wire.ToolCall, len(c.tools))
	for i, pt := range c.tools {
		args := pt.args.String()
		// Validate the assembled arguments decode as JSON; if Upstream's
		// fragments didn't reassemble cleanly, fall back to "{}" rather
		// than hand the client a malformed arguments string.
		var probe map[string]any
		if json.Unmarshal([]byte(args), &probe) != nil {
			args = "{}"
		}
		msg.ToolCalls[i] = wire.ToolCall{
			ID:       pt.id,
			Type:     "function",
			Function: wire.ToolCallFunc{Name: pt.name, Arguments: args},
		}
	}
	return msg, true
}

// OutputText returns the raw accumulated content (including re-wrapped
// thinking tags) for local token counting.
func (c *Collector) OutputText() string {
	return c.content.String()
}
