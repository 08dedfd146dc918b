// Package schema normalizes client-supplied JSON Schema tool parameter
// definitions into a shape Upstream accepts. Some clients send schemas
// with null where a string or array is expected; Upstream rejects those
// outright.
package schema

// Normalize repairs a tool's input schema per the four coercion rules:
// type defaults to "object", properties defaults to {}, required is
// filtered to string items only, and additionalProperties is coerced to
// true unless it is already a bool or a nested schema object. Any input
// that isn't a JSON object at the top level is replaced wholesale.
func Normalize(in map[string]any) map[string]any {
	if in == nil {
		return defaultSchema()
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	if t, ok := out["type"].(string); !ok || t == "" {
		out["type"] = "object"
	}

	if _, ok := out["properties"].(map[string]any); !ok {
		out["properties"] = map[string]any{}
	}

	out["required"] = normalizeRequired(out["required"])

	switch out["additionalProperties"].(type) {
	case bool:
		// already valid
	case map[string]any:
		// a nested schema constraining additional properties is valid as-is
	default:
		out["additionalProperties"] = true
	}

	return out
}

// normalizeRequired coerces an arbitrary "required" value into a list
// containing only string entries.
func normalizeRequired(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func defaultSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             []string{},
		"additionalProperties": true,
	}
}

// IsObjectSchema reports whether a decoded JSON value is itself a
// schema object (vs. null, a string, a bool, etc). Callers use this to
// decide between Normalize (repair in place) and wholesale replacement.
func IsObjectSchema(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// NormalizeAny accepts a raw decoded JSON value for a tool's parameters
// field — which, per 4.3.4, is sometimes not an object at all — and
// always returns a valid schema object.
func NormalizeAny(v any) map[string]any {
	m, ok := IsObjectSchema(v)
	if !ok {
		return defaultSchema()
	}
	return Normalize(m)
}
