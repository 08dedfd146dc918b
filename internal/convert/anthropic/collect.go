package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/ngoclaw/relaygate/internal/domain/streamparse"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	wire "github.com/ngoclaw/relaygate/internal/wire/anthropic"
)

// Collector accumulates Upstream events into a single assembled
// Anthropic Response, for the non-streaming path (§4.5.3). It shares
// the same block-transition rules as Translator but builds a content
// slice instead of emitting SSE frames.
type Collector struct {
	thinking *streamparse.ThinkingParser

	blocks  []wire.ContentBlock
	current blockKind

	pendingToolID   string
	pendingToolArgs strings.Builder

	outputText strings.Builder
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{thinking: streamparse.NewThinkingParser()}
}

// Handle folds one Upstream event into the accumulated content.
func (c *Collector) Handle(ev upstream.Event) {
	switch ev.Kind {
	case upstream.EventContentDelta:
		c.appendSegments(c.thinking.Push(ev.Text))

	case upstream.EventToolUseStart:
		c.closeCurrent()
		c.blocks = append(c.blocks, wire.ContentBlock{Type: "tool_use", ID: ev.ToolUseID, Name: ev.ToolName})
		c.current = blockTool
		c.pendingToolID = ev.ToolUseID
		c.pendingToolArgs.Reset()

	case upstream.EventToolUseDelta:
		if c.current == blockTool && ev.ToolUseID == c.pendingToolID {
			c.pendingToolArgs.WriteString(ev.ToolInputDelta)
		}

	case upstream.EventToolUseStop:
		if c.current == blockTool && ev.ToolUseID == c.pendingToolID {
			c.blocks[len(c.blocks)-1].Input = parseToolArgs(c.pendingToolArgs.String())
			c.current = blockNone
		}
	}
}

func (c *Collector) appendSegments(segments []streamparse.Segment) {
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		wantKind := blockText
		if seg.Kind == streamparse.SegmentThinking {
			wantKind = blockThinking
		}
		c.outputText.WriteString(seg.Text)

		if c.current == wantKind && len(c.blocks) > 0 {
			last := &c.blocks[len(c.blocks)-1]
			if wantKind == blockThinking {
				last.Thinking += seg.Text
			} else {
				last.Text += seg.Text
			}
			continue
		}
		c.closeCurrent()
		if wantKind == blockThinking {
			c.blocks = append(c.blocks, wire.ContentBlock{Type: "thinking", Thinking: seg.Text})
		} else {
			c.blocks = append(c.blocks, wire.ContentBlock{Type: "text", Text: seg.Text})
		}
		c.current = wantKind
	}
}

func (c *Collector) closeCurrent() {
	c.current = blockNone
}

// Finalize flushes the thinking-tag parser and returns the assembled
// content blocks.
func (c *Collector) Finalize() []wire.ContentBlock {
	c.appendSegments(c.thinking.Flush())
	return c.blocks
}

// OutputText returns all text/thinking content accumulated, for local
// token counting.
func (c *Collector) OutputText() string {
	return c.outputText.String()
}

func parseToolArgs(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}
