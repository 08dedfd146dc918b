package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
)

func TestCollector_TextAndToolUse(t *testing.T) {
	c := NewCollector()
	c.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "Hello "})
	c.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "world"})
	c.Handle(upstream.Event{Kind: upstream.EventToolUseStart, ToolUseID: "t1", ToolName: "search"})
	c.Handle(upstream.Event{Kind: upstream.EventToolUseDelta, ToolUseID: "t1", ToolInputDelta: `{"q":"go"}`})
	c.Handle(upstream.Event{Kind: upstream.EventToolUseStop, ToolUseID: "t1"})

	blocks := c.Finalize()
	require.Len(t, blocks, 2)
	assert.Equal(t, "text", blocks[0].Type)
	assert.Equal(t, "Hello world", blocks[0].Text)
	assert.Equal(t, "tool_use", blocks[1].Type)
	assert.Equal(t, "search", blocks[1].Name)
	assert.Equal(t, "go", blocks[1].Input["q"])
}

func TestCollector_ThinkingSeparateBlock(t *testing.T) {
	c := NewCollector()
	c.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "<thinking>mull</thinking>done"})

	blocks := c.Finalize()
	require.Len(t, blocks, 2)
	assert.Equal(t, "thinking", blocks[0].Type)
	assert.Equal(t, "mull", blocks[0].Thinking)
	assert.Equal(t, "text", blocks[1].Type)
	assert.Equal(t, "done", blocks[1].Text)
}
