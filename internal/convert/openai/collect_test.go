package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
)

func TestCollector_PlainText(t *testing.T) {
	c := NewCollector()
	c.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "hi there"})

	msg, hasTools := c.Finalize()
	assert.False(t, hasTools)
	assert.Equal(t, "hi there", msg.Content)
	assert.Equal(t, "assistant", msg.Role)
}

func TestCollector_ToolCallAssembled(t *testing.T) {
	c := NewCollector()
	c.Handle(upstream.Event{Kind: upstream.EventToolUseStart, ToolUseID: "t1", ToolName: "search"})
	c.Handle(upstream.Event{Kind: upstream.EventToolUseDelta, ToolUseID: "t1", ToolInputDelta: `{"q":"go"}`})

	msg, hasTools := c.Finalize()
	require.True(t, hasTools)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "search", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"q":"go"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestCollector_MalformedArgumentsFallBackToEmptyObject(t *testing.T) {
	c := NewCollector()
	c.Handle(upstream.Event{Kind: upstream.EventToolUseStart, ToolUseID: "t1", ToolName: "search"})
	c.Handle(upstream.Event{Kind: upstream.EventToolUseDelta, ToolUseID: "t1", ToolInputDelta: `not json`})

	msg, _ := c.Finalize()
	assert.Equal(t, "{}", msg.ToolCalls[0].Function.Arguments)
}
