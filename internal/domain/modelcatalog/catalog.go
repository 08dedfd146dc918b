// Package modelcatalog holds static per-model facts the gateway needs
// outside of any single request: context-window size (for deriving
// input_tokens from context_usage_percentage) and Pro+ tier membership.
package modelcatalog

import "strings"

// defaultMaxInput is used for any model not present in maxInputTokens.
const defaultMaxInput = 200_000

var maxInputTokens = map[string]int{
	"claude-opus-4":        200_000,
	"claude-opus-4-1":      200_000,
	"claude-sonnet-4":      200_000,
	"claude-sonnet-4-5":    200_000,
	"claude-sonnet-4-6":    200_000,
	"claude-3-7-sonnet":    200_000,
	"claude-3-5-sonnet":    200_000,
	"claude-3-5-haiku":     200_000,
	"claude-3-haiku":       200_000,
}

// proPlusModels are exact, case-sensitive model identifiers (including
// internal ids) that always require a Pro+-eligible credential,
// independent of the name-based heuristic below.
var proPlusModels = map[string]struct{}{
	"claude-opus-4":   {},
	"claude-opus-4-1": {},
}

// MaxInputTokens returns the known context window for a model, or a
// conservative default if the model isn't in the table.
func MaxInputTokens(model string) int {
	if n, ok := maxInputTokens[model]; ok {
		return n
	}
	return defaultMaxInput
}

// RequiresProPlus reports whether model can only be served by a
// credential flagged opus_enabled. Exact-match against the table,
// "opus" anywhere in the name, or the sonnet-4-6/4.6 special case —
// Upstream ships a Sonnet generation that Pro+-gates alongside Opus.
func RequiresProPlus(model string) bool {
	if model == "" {
		return false
	}
	if _, ok := proPlusModels[model]; ok {
		return true
	}
	lower := strings.ToLower(model)
	if strings.Contains(lower, "opus") {
		return true
	}
	if strings.Contains(lower, "sonnet") && (strings.Contains(lower, "4-6") || strings.Contains(lower, "4.6")) {
		return true
	}
	return false
}
