package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Defaults(t *testing.T) {
	out := Normalize(map[string]any{})
	assert.Equal(t, "object", out["type"])
	assert.Equal(t, map[string]any{}, out["properties"])
	assert.Equal(t, []string{}, out["required"])
	assert.Equal(t, true, out["additionalProperties"])
}

func TestNormalize_FiltersNonStringRequired(t *testing.T) {
	out := Normalize(map[string]any{
		"required": []any{"a", 1, "b", nil, true},
	})
	assert.Equal(t, []string{"a", "b"}, out["required"])
}

func TestNormalize_PreservesValidAdditionalPropertiesSchema(t *testing.T) {
	nested := map[string]any{"type": "string"}
	out := Normalize(map[string]any{"additionalProperties": nested})
	assert.Equal(t, nested, out["additionalProperties"])
}

func TestNormalize_PreservesExplicitFalse(t *testing.T) {
	out := Normalize(map[string]any{"additionalProperties": false})
	assert.Equal(t, false, out["additionalProperties"])
}

func TestNormalizeAny_NonObjectReplacedWholesale(t *testing.T) {
	out := NormalizeAny(nil)
	assert.Equal(t, "object", out["type"])
	assert.Equal(t, []string{}, out["required"])

	out = NormalizeAny("not a schema")
	assert.Equal(t, "object", out["type"])
}

func TestNormalize_KeepsExistingProperties(t *testing.T) {
	props := map[string]any{"foo": map[string]any{"type": "string"}}
	out := Normalize(map[string]any{"type": "object", "properties": props})
	assert.Equal(t, props, out["properties"])
}
