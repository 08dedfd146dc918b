package anthropic

import (
	"encoding/json"
	"fmt"
)

// SSEEvent pairs an Anthropic event name with its JSON payload and
// renders itself in the "event: NAME\ndata: JSON\n\n" shape Anthropic's
// Messages streaming API uses.
type SSEEvent struct {
	Name    string
	Payload any
}

func (e SSEEvent) Render() string {
	raw, _ := json.Marshal(e.Payload)
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Name, raw)
}

// MessageStartPayload is the message_start event body.
type MessageStartPayload struct {
	Type    string            `json:"type"`
	Message MessageStartInner `json:"message"`
}

type MessageStartInner struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Role         string          `json:"role"`
	Model        string          `json:"model"`
	Content      []ContentBlock  `json:"content"`
	StopReason   *string         `json:"stop_reason"`
	StopSequence *string         `json:"stop_sequence"`
	Usage        Usage           `json:"usage"`
}

// ContentBlockStartPayload is the content_block_start event body.
type ContentBlockStartPayload struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlockDeltaPayload is the content_block_delta event body.
type ContentBlockDeltaPayload struct {
	Type  string           `json:"type"`
	Index int              `json:"index"`
	Delta ContentBlockDelta `json:"delta"`
}

// ContentBlockDelta is the inner delta of a content_block_delta event;
// exactly one of the fields is populated depending on the block kind.
type ContentBlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// ContentBlockStopPayload is the content_block_stop event body.
type ContentBlockStopPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaPayload is the message_delta event body.
type MessageDeltaPayload struct {
	Type  string             `json:"type"`
	Delta MessageDeltaInner  `json:"delta"`
	Usage MessageDeltaUsage  `json:"usage"`
}

type MessageDeltaInner struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

type MessageDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

// MessageStopPayload is the message_stop event body.
type MessageStopPayload struct {
	Type string `json:"type"`
}

// PingPayload is the ping keepalive event body.
type PingPayload struct {
	Type string `json:"type"`
}
