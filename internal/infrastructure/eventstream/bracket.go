package eventstream

import (
	"encoding/json"
	"regexp"

	"github.com/google/uuid"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
)

// bracketToolCallRe matches Upstream's textual fallback shape for a
// tool call that arrived inline in ordinary content instead of through
// the toolUseId-keyed frames: a single JSON object with "name" and
// "input"/"arguments" keys, wrapped in square brackets on its own.
//
// e.g. `[{"name":"search","input":{"query":"weather"}}]`
var bracketToolCallRe = regexp.MustCompile(`\[\s*\{\s*"name"\s*:\s*"([^"]+)"\s*,\s*"(?:input|arguments)"\s*:\s*(\{.*?\})\s*\}\s*\]`)

// ExtractBracketToolCalls scans the fully concatenated response content
// for the bracket-wrapped inline tool-call fallback and returns the
// tool calls it finds, each with a fresh UUID as its id. It takes whole
// content rather than chunks, since the pattern may straddle chunk
// boundaries arbitrarily. No collector or stream translator in this
// module calls it, so tool calls in this shape stay in the response
// text.
func ExtractBracketToolCalls(content string) []convo.ToolUse {
	matches := bracketToolCallRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]convo.ToolUse, 0, len(matches))
	for _, m := range matches {
		name, rawInput := m[1], m[2]
		var input map[string]any
		if err := json.Unmarshal([]byte(rawInput), &input); err != nil {
			continue
		}
		out = append(out, convo.ToolUse{
			ID:    uuid.NewString(),
			Name:  name,
			Input: input,
		})
	}
	return out
}

// DeduplicateToolCalls removes tool calls sharing an id (or, for calls
// with an empty id, a name), keeping the first occurrence. No response
// path in this module calls it.
func DeduplicateToolCalls(calls []convo.ToolUse) []convo.ToolUse {
	seen := make(map[string]bool, len(calls))
	out := make([]convo.ToolUse, 0, len(calls))
	for _, c := range calls {
		key := c.ID
		if key == "" {
			key = c.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
