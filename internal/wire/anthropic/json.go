package anthropic

import "encoding/json"

// UnmarshalJSON accepts either a plain string or a list of text blocks
// for the top-level "system" field.
func (s *System) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Text = str
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	s.Blocks = blocks
	return nil
}

// MarshalJSON round-trips System back to whichever shape it holds.
func (s System) MarshalJSON() ([]byte, error) {
	if len(s.Blocks) > 0 {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

// UnmarshalJSON accepts a message whose "content" field is either a
// plain string (wrapped as a single text block) or a list of blocks.
func (m *Message) UnmarshalJSON(data []byte) error {
	var shape struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	m.Role = shape.Role

	var str string
	if err := json.Unmarshal(shape.Content, &str); err == nil {
		m.Content = []ContentBlock{{Type: "text", Text: str}}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(shape.Content, &blocks); err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

// MarshalJSON emits a message's content as a block list.
func (m Message) MarshalJSON() ([]byte, error) {
	shape := struct {
		Role    string         `json:"role"`
		Content []ContentBlock `json:"content"`
	}{Role: m.Role, Content: m.Content}
	return json.Marshal(shape)
}

// UnmarshalJSON handles tool_result's "content" field, which may be a
// plain string or a list of content blocks (ordinarily text,
// occasionally image).
func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias ContentBlock
	var shape struct {
		alias
		ContentRaw json.RawMessage `json:"content,omitempty"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	*c = ContentBlock(shape.alias)

	if len(shape.ContentRaw) == 0 {
		return nil
	}

	var str string
	if err := json.Unmarshal(shape.ContentRaw, &str); err == nil {
		c.ToolContent = []ContentBlock{{Type: "text", Text: str}}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(shape.ContentRaw, &blocks); err != nil {
		return err
	}
	c.ToolContent = blocks
	return nil
}

// MarshalJSON emits tool_result content as a block list when present,
// otherwise falls back to the plain fields already on the struct.
func (c ContentBlock) MarshalJSON() ([]byte, error) {
	type alias ContentBlock
	shape := struct {
		alias
		Content []ContentBlock `json:"content,omitempty"`
	}{alias: alias(c)}
	if c.Type == "tool_result" {
		shape.Content = c.ToolContent
	}
	return json.Marshal(shape)
}
