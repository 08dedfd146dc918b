// Package eventstream decodes Upstream's AWS-style binary framed event
// stream into typed domain events. Framing and payload-unwrap follow
// the same two-step shape AWS Bedrock responses use: each frame is an
// eventstream.Message whose Payload is a small JSON envelope carrying
// a base64 "bytes" field, which itself decodes to the actual event
// JSON.
package eventstream

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	awseventstream "github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
)

// toolCallAccumulator assembles one tool call's fragmented input JSON
// as it streams in across possibly many frames.
type toolCallAccumulator struct {
	id       string
	name     string
	index    int
	input    bytes.Buffer
	started  bool
}

// Parser is a stateful, single-consumer decoder: Feed appends bytes to
// an internal buffer, decodes every complete frame it can find, and
// returns the typed events produced. Bytes belonging to a frame that
// hasn't fully arrived yet stay buffered for the next Feed call.
type Parser struct {
	buf    bytes.Buffer
	logger *zap.Logger

	nextIndex   int
	toolsByID   map[string]*toolCallAccumulator
	closedTools map[string]bool
}

// New returns a fresh Parser. logger may be nil.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		logger:      logger,
		toolsByID:   make(map[string]*toolCallAccumulator),
		closedTools: make(map[string]bool),
	}
}

// Feed appends raw upstream bytes and returns every event that could
// be fully decoded from the buffer so far.
func (p *Parser) Feed(chunk []byte) []upstream.Event {
	p.buf.Write(chunk)

	raw := p.buf.Bytes()
	r := bytes.NewReader(raw)
	dec := awseventstream.NewDecoder()

	var events []upstream.Event
	var consumed int64

	for {
		msg, err := dec.Decode(r, nil)
		if err != nil {
			// Incomplete frame at the tail — keep unread bytes buffered.
			break
		}
		consumed = int64(len(raw)) - int64(r.Len())

		payload, ok := p.unwrapPayload(msg.Payload)
		if !ok {
			continue
		}
		events = append(events, p.decodeEvent(payload)...)
	}

	if consumed > 0 {
		remaining := append([]byte(nil), raw[consumed:]...)
		p.buf.Reset()
		p.buf.Write(remaining)
	}

	return events
}

// unwrapPayload pulls the base64 "bytes" envelope field out of a
// decoded frame's payload and base64-decodes it into the actual event
// JSON. A frame that fails to unwrap is dropped with a warning, per
// the malformed-frame tolerance the parser is required to have.
func (p *Parser) unwrapPayload(raw []byte) ([]byte, bool) {
	var envelope struct {
		Bytes string `json:"bytes"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Bytes == "" {
		p.logger.Warn("dropping malformed upstream frame", zap.Error(err))
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(envelope.Bytes)
	if err != nil {
		p.logger.Warn("dropping unbase64able upstream frame", zap.Error(err))
		return nil, false
	}
	return decoded, true
}

// decodeEvent maps a decoded frame's JSON onto the typed Event union
// by key presence, per the field table the parser is built from.
func (p *Parser) decodeEvent(payload []byte) []upstream.Event {
	var out []upstream.Event

	if v := gjson.GetBytes(payload, "content"); v.Exists() {
		out = append(out, upstream.Event{
			Kind: upstream.EventContentDelta,
			Text: v.String(),
		})
	}

	if v := gjson.GetBytes(payload, "exceptionType"); v.Exists() {
		out = append(out, upstream.Event{
			Kind:             upstream.EventException,
			ExceptionType:    v.String(),
			ExceptionMessage: gjson.GetBytes(payload, "message").String(),
		})
	}

	if v := gjson.GetBytes(payload, "contextUsagePercentage"); v.Exists() {
		out = append(out, upstream.Event{
			Kind:                   upstream.EventContextUsage,
			ContextUsagePercentage: v.Float(),
		})
	}

	if v := gjson.GetBytes(payload, "usage"); v.Exists() && v.IsObject() {
		m, ok := v.Value().(map[string]any)
		if ok {
			out = append(out, upstream.Event{Kind: upstream.EventMetering, Metering: m})
		}
	}
	if v := gjson.GetBytes(payload, "metering"); v.Exists() && v.IsObject() {
		m, ok := v.Value().(map[string]any)
		if ok {
			out = append(out, upstream.Event{Kind: upstream.EventMetering, Metering: m})
		}
	}

	if toolID := gjson.GetBytes(payload, "toolUseId"); toolID.Exists() {
		out = append(out, p.decodeToolFragment(toolID.String(), payload)...)
	}

	return out
}

func (p *Parser) decodeToolFragment(toolID string, payload []byte) []upstream.Event {
	acc, ok := p.toolsByID[toolID]
	if !ok {
		acc = &toolCallAccumulator{id: toolID, index: p.nextIndex}
		p.nextIndex++
		p.toolsByID[toolID] = acc
	}

	var out []upstream.Event

	if name := gjson.GetBytes(payload, "name"); name.Exists() && !acc.started {
		acc.name = name.String()
		acc.started = true
		out = append(out, upstream.Event{
			Kind:      upstream.EventToolUseStart,
			Index:     acc.index,
			ToolUseID: acc.id,
			ToolName:  acc.name,
		})
	}

	if input := gjson.GetBytes(payload, "input"); input.Exists() {
		frag := input.String()
		acc.input.WriteString(frag)
		out = append(out, upstream.Event{
			Kind:           upstream.EventToolUseDelta,
			Index:          acc.index,
			ToolUseID:      acc.id,
			ToolInputDelta: frag,
		})
	}

	if stop := gjson.GetBytes(payload, "stop"); stop.Exists() && stop.Bool() && !p.closedTools[toolID] {
		p.closedTools[toolID] = true
		out = append(out, upstream.Event{
			Kind:      upstream.EventToolUseStop,
			Index:     acc.index,
			ToolUseID: acc.id,
		})
	}

	return out
}

// Finalize emits tool_use_stop for any tool call the frames never
// explicitly closed — the upstream event stream marks closure
// inconsistently, so end-of-stream is the authoritative close signal.
func (p *Parser) Finalize() []upstream.Event {
	var out []upstream.Event
	for id, acc := range p.toolsByID {
		if !p.closedTools[id] {
			p.closedTools[id] = true
			out = append(out, upstream.Event{Kind: upstream.EventToolUseStop, Index: acc.index, ToolUseID: id})
		}
	}
	return out
}
