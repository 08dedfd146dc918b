package customapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanForHostedVariant_DropsThinkingBlockWithoutSignature(t *testing.T) {
	raw := map[string]any{
		"messages": []any{
			map[string]any{
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "thinking", "text": "hmm"},
					map[string]any{"type": "text", "text": "ok"},
				},
			},
		},
	}

	cleaned := CleanForHostedVariant(raw)

	messages := cleaned["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0].(map[string]any)["type"])
}

func TestCleanForHostedVariant_KeepsThinkingBlockWithSignature(t *testing.T) {
	raw := map[string]any{
		"messages": []any{
			map[string]any{
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "thinking", "text": "hmm", "signature": "sig-1"},
				},
			},
		},
	}

	cleaned := CleanForHostedVariant(raw)

	content := cleaned["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "thinking", content[0].(map[string]any)["type"])
}

func TestCleanForHostedVariant_NonMessageShapeReturnedUnchanged(t *testing.T) {
	raw := map[string]any{"model": "claude-sonnet-4-5"}
	cleaned := CleanForHostedVariant(raw)
	assert.Equal(t, raw, cleaned)
}
