package openai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	wire "github.com/ngoclaw/relaygate/internal/wire/openai"
)

func TestTranslator_FirstChunkSetsRole(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gpt-4o")

	frames := tr.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "Hi"})
	assert.Len(t, frames, 1)
	assert.Contains(t, frames[0], `"role":"assistant"`)
	assert.Contains(t, frames[0], `"content":"Hi"`)

	frames = tr.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: " there"})
	assert.NotContains(t, frames[0], `"role"`)
}

func TestTranslator_ToolCallsAssembledAtFinalize(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gpt-4o")
	tr.Handle(upstream.Event{Kind: upstream.EventToolUseStart, ToolUseID: "t1", ToolName: "search"})
	tr.Handle(upstream.Event{Kind: upstream.EventToolUseDelta, ToolUseID: "t1", ToolInputDelta: `{"q":`})
	tr.Handle(upstream.Event{Kind: upstream.EventToolUseDelta, ToolUseID: "t1", ToolInputDelta: `"go"}`})

	assert.True(t, tr.HasToolCalls())

	frames := tr.Finalize("tool_calls", wire.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12})
	joined := strings.Join(frames, "")
	assert.Contains(t, joined, `"arguments":"{\"q\":\"go\"}"`)
	assert.Contains(t, joined, `"finish_reason":"tool_calls"`)
	assert.Contains(t, joined, `"total_tokens":12`)
	assert.Equal(t, wire.DoneFrame, frames[len(frames)-1])
}

func TestTranslator_ThinkingFoldedBackIntoContentText(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gpt-4o")
	frames := tr.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "<thinking>hmm</thinking>ok"})
	joined := strings.Join(frames, "")
	assert.Contains(t, joined, `<thinking>hmm</thinking>`)
	assert.Contains(t, joined, "ok")
}

func TestTranslator_FinalizeWithoutToolCallsSkipsToolChunk(t *testing.T) {
	tr := NewTranslator("chatcmpl-1", "gpt-4o")
	tr.Handle(upstream.Event{Kind: upstream.EventContentDelta, Text: "hi"})
	frames := tr.Finalize("stop", wire.Usage{})
	// Handle already returned the content chunk, so only the final
	// chunk and [DONE] remain.
	assert.Len(t, frames, 2)
}
