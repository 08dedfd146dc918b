// Package tokenizer provides local token counting used whenever
// Upstream's own context_usage accounting is unavailable: to estimate
// request size before dispatch, and as the fallback for a streaming
// response's input_tokens when no context_usage event ever arrived.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
)

// encodingName is a BPE vocabulary that is a close-enough proxy for the
// upstream model family; exact token-for-token parity with Upstream's
// own tokenizer isn't attainable from outside, only a reasonable
// local estimate.
const encodingName = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(encodingName)
	})
	return enc, encErr
}

// Count returns the local token estimate for a string. If the BPE
// encoder can't be loaded it falls back to a conservative
// characters-per-token heuristic rather than failing the request.
func Count(text string) int {
	if text == "" {
		return 0
	}
	e, err := encoding()
	if err != nil {
		return len([]rune(text))/4 + 1
	}
	return len(e.Encode(text, nil, nil))
}

// Options tunes CountRequest for the wire format the caller is
// estimating tokens for.
type Options struct {
	// ClaudeCorrection applies a small upward correction factor that
	// compensates for Claude-family requests tokenizing slightly
	// denser than the cl100k_base proxy vocabulary suggests. Only the
	// Anthropic-native request path sets this; OpenAI-native requests
	// leave it false.
	ClaudeCorrection bool
}

const claudeCorrectionFactor = 1.05

// CountRequest estimates the total input tokens a normalized request
// will consume: every message's text content plus every tool
// definition's name/description/schema.
func CountRequest(req *convo.Request, opts Options) int {
	total := 0
	if req.System != "" {
		total += Count(req.System)
	}
	for _, msg := range req.Messages {
		total += countParts(msg.Content)
	}
	for _, tool := range req.Tools {
		total += Count(tool.Name) + Count(tool.Description) + countSchema(tool.Parameters)
	}

	if opts.ClaudeCorrection {
		total = int(float64(total) * claudeCorrectionFactor)
	}
	return total
}

func countParts(parts []convo.ContentPart) int {
	total := 0
	for _, p := range parts {
		switch v := p.(type) {
		case convo.Text:
			total += Count(v.Text)
		case convo.Thinking:
			total += Count(v.Text)
		case convo.ToolUse:
			total += Count(v.Name) + countSchema(v.Input)
		case convo.ToolResult:
			total += countParts(v.Content)
		case convo.Image:
			// A fixed per-image budget stands in for the real
			// vision-tokenizer cost, which depends on resolution we
			// don't decode here.
			total += 85
		}
	}
	return total
}

func countSchema(m map[string]any) int {
	if len(m) == 0 {
		return 0
	}
	total := 0
	for k, v := range m {
		total += Count(k)
		switch vv := v.(type) {
		case string:
			total += Count(vv)
		case map[string]any:
			total += countSchema(vv)
		case []any:
			for _, item := range vv {
				if s, ok := item.(string); ok {
					total += Count(s)
				} else if m2, ok := item.(map[string]any); ok {
					total += countSchema(m2)
				}
			}
		}
	}
	return total
}

// FromContextUsage derives input_tokens from Upstream's reported
// context_usage_percentage against a model's known max input window,
// per the context_usage-preferred rule in token accounting.
func FromContextUsage(percentage float64, modelMaxInput int) int {
	return int(percentage / 100 * float64(modelMaxInput))
}
