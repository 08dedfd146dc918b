package openai

import "encoding/json"

// Parts decodes Content as either a plain string (one text part) or a
// list of typed parts, per the OpenAI content-can-be-either-shape rule.
func (m Message) Parts() []Part {
	if len(m.Content) == 0 {
		return nil
	}
	var str string
	if err := json.Unmarshal(m.Content, &str); err == nil {
		if str == "" {
			return nil
		}
		return []Part{{Type: "text", Text: str}}
	}
	var parts []Part
	if err := json.Unmarshal(m.Content, &parts); err == nil {
		return parts
	}
	return nil
}

// StopSequences normalizes the request's "stop" field, which may be a
// single string or a list of strings.
func (r ChatCompletionRequest) StopSequences() []string {
	switch v := r.Stop.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ToolChoiceMode normalizes the request's "tool_choice" field, which
// may be the strings "auto"/"none"/"required" or an object naming a
// specific function.
func (r ChatCompletionRequest) ToolChoiceMode() (mode, name string) {
	switch v := r.ToolChoice.(type) {
	case string:
		switch v {
		case "required":
			return "required", ""
		case "none":
			return "none", ""
		default:
			return "auto", ""
		}
	case map[string]any:
		if fn, ok := v["function"].(map[string]any); ok {
			if n, ok := fn["name"].(string); ok {
				return "tool", n
			}
		}
		return "auto", ""
	default:
		return "auto", ""
	}
}
