package customapi

// CleanForHostedVariant prunes request fields that certain hosted
// Anthropic-compatible variants (Azure among them) reject outright.
// The only pruning rule retrieved from the original source is the
// call site in custom_api/handler.go ("if provider == azure: clean
// request"); the function body itself (_clean_claude_request_for_azure)
// was not present in the retrieved sources, so the rule implemented
// here follows spec.md §6's description directly: a `thinking` content
// block without a `signature` is not valid replay input for those
// variants and is dropped rather than forwarded.
func CleanForHostedVariant(raw map[string]any) map[string]any {
	messages, ok := raw["messages"].([]any)
	if !ok {
		return raw
	}
	for _, m := range messages {
		msg, ok := m.(map[string]any)
		if !ok {
			continue
		}
		content, ok := msg["content"].([]any)
		if !ok {
			continue
		}
		cleaned := content[:0]
		for _, block := range content {
			b, ok := block.(map[string]any)
			if !ok {
				cleaned = append(cleaned, block)
				continue
			}
			if b["type"] == "thinking" {
				if sig, _ := b["signature"].(string); sig == "" {
					continue
				}
			}
			cleaned = append(cleaned, block)
		}
		msg["content"] = cleaned
	}
	return raw
}
