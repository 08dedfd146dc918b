package anthropic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
)

func TestTranslator_TextThenToolUse(t *testing.T) {
	tr := NewTranslator()

	start := tr.StartMessage("msg_1", "claude-sonnet-4-5", 42)
	assert.Contains(t, start, `"type":"message_start"`)
	assert.Contains(t, start, `"input_tokens":42`)

	var frames []string
	frames = append(frames, tr.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "Hello"})...)
	frames = append(frames, tr.Handle(upstream.Event{Kind: upstream.EventToolUseStart, ToolUseID: "tool_1", ToolName: "search"})...)
	frames = append(frames, tr.Handle(upstream.Event{Kind: upstream.EventToolUseDelta, ToolUseID: "tool_1", ToolInputDelta: `{"q":"go"}`})...)
	frames = append(frames, tr.Handle(upstream.Event{Kind: upstream.EventToolUseStop, ToolUseID: "tool_1"})...)
	frames = append(frames, tr.Finalize(StopToolUse, 7)...)

	joined := strings.Join(frames, "")
	assert.Contains(t, joined, `"type":"content_block_start"`)
	assert.Contains(t, joined, `"type":"text"`)
	assert.Contains(t, joined, `"text":"Hello"`)
	assert.Contains(t, joined, `"type":"tool_use"`)
	assert.Contains(t, joined, `"name":"search"`)
	assert.Contains(t, joined, `"partial_json":"{\"q\":\"go\"}"`)
	assert.Contains(t, joined, `"stop_reason":"tool_use"`)
	assert.Contains(t, joined, `"output_tokens":7`)
	assert.Contains(t, joined, "message_stop")

	// indices strictly increasing: text block = 0, tool block = 1
	assert.True(t, strings.Index(joined, `"index":0`) < strings.Index(joined, `"index":1`))
}

func TestTranslator_ThinkingAndTextInterleave(t *testing.T) {
	tr := NewTranslator()

	frames := tr.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "<thinking>pondering</thinking>answer"})
	frames = append(frames, tr.Finalize(StopEndTurn, 3)...)

	joined := strings.Join(frames, "")
	assert.Contains(t, joined, `"type":"thinking"`)
	assert.Contains(t, joined, `"thinking":"pondering"`)
	assert.Contains(t, joined, `"type":"text"`)
	assert.Contains(t, joined, `"text":"answer"`)
}

func TestTranslator_ContextUsageRecorded(t *testing.T) {
	tr := NewTranslator()
	tr.Handle(upstream.Event{Kind: upstream.EventContextUsage, ContextUsagePercentage: 12.5})

	pct, ok := tr.ContextUsagePercentage()
	assert.True(t, ok)
	assert.Equal(t, 12.5, pct)
}

func TestTranslator_Exception(t *testing.T) {
	tr := NewTranslator()
	frames := tr.Handle(upstream.Event{Kind: upstream.EventException, ExceptionMessage: "boom"})
	assert.Len(t, frames, 1)
	assert.Contains(t, frames[0], "event: error")
	assert.Contains(t, frames[0], "boom")
}
