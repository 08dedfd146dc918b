package eventstream

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"

	awseventstream "github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/relaygate/internal/domain/convo"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
)

// encodeFrame builds one AWS-style event-stream frame wrapping the
// given event JSON in the {"bytes": "<base64>"} envelope, matching
// what the real Upstream connection sends.
func encodeFrame(t *testing.T, eventJSON string) []byte {
	t.Helper()
	b64 := base64.StdEncoding.EncodeToString([]byte(eventJSON))
	envelope, err := json.Marshal(map[string]string{"bytes": b64})
	require.NoError(t, err)

	msg := awseventstream.Message{
		Headers: awseventstream.Headers{},
		Payload: envelope,
	}
	var buf bytes.Buffer
	enc := awseventstream.NewEncoder()
	require.NoError(t, enc.Encode(&buf, msg))
	return buf.Bytes()
}

func TestParser_ContentDelta(t *testing.T) {
	p := New(nil)
	frame := encodeFrame(t, `{"content":"hello"}`)
	events := p.Feed(frame)
	require.Len(t, events, 1)
	assert.Equal(t, upstream.EventContentDelta, events[0].Kind)
	assert.Equal(t, "hello", events[0].Text)
}

func TestParser_ContextUsage(t *testing.T) {
	p := New(nil)
	frame := encodeFrame(t, `{"contextUsagePercentage":10.5}`)
	events := p.Feed(frame)
	require.Len(t, events, 1)
	assert.Equal(t, upstream.EventContextUsage, events[0].Kind)
	assert.InDelta(t, 10.5, events[0].ContextUsagePercentage, 0.001)
}

func TestParser_Exception(t *testing.T) {
	p := New(nil)
	frame := encodeFrame(t, `{"exceptionType":"MONTHLY_REQUEST_COUNT_REACHED","message":"quota exceeded"}`)
	events := p.Feed(frame)
	require.Len(t, events, 1)
	assert.Equal(t, upstream.EventException, events[0].Kind)
	assert.Equal(t, "MONTHLY_REQUEST_COUNT_REACHED", events[0].ExceptionType)
}

func TestParser_ToolCallLifecycle(t *testing.T) {
	p := New(nil)
	var events []upstream.Event
	events = append(events, p.Feed(encodeFrame(t, `{"toolUseId":"t1","name":"search"}`))...)
	events = append(events, p.Feed(encodeFrame(t, `{"toolUseId":"t1","input":"{\"query\":"}`))...)
	events = append(events, p.Feed(encodeFrame(t, `{"toolUseId":"t1","input":"\"weather\"}"}`))...)
	events = append(events, p.Feed(encodeFrame(t, `{"toolUseId":"t1","stop":true}`))...)

	require.Len(t, events, 4)
	assert.Equal(t, upstream.EventToolUseStart, events[0].Kind)
	assert.Equal(t, "search", events[0].ToolName)
	assert.Equal(t, upstream.EventToolUseDelta, events[1].Kind)
	assert.Equal(t, upstream.EventToolUseDelta, events[2].Kind)
	assert.Equal(t, upstream.EventToolUseStop, events[3].Kind)
	assert.Equal(t, 0, events[3].Index)
}

func TestParser_SplitAcrossFeedCalls(t *testing.T) {
	p := New(nil)
	frame := encodeFrame(t, `{"content":"split"}`)
	mid := len(frame) / 2

	events := p.Feed(frame[:mid])
	assert.Empty(t, events)

	events = p.Feed(frame[mid:])
	require.Len(t, events, 1)
	assert.Equal(t, "split", events[0].Text)
}

func TestParser_MalformedFrameDropped(t *testing.T) {
	p := New(nil)
	envelope, _ := json.Marshal(map[string]string{"bytes": "not-valid-base64!!"})
	msg := awseventstream.Message{Headers: awseventstream.Headers{}, Payload: envelope}
	var buf bytes.Buffer
	enc := awseventstream.NewEncoder()
	require.NoError(t, enc.Encode(&buf, msg))

	events := p.Feed(buf.Bytes())
	assert.Empty(t, events)
}

func TestParser_Finalize_ClosesUnclosedToolCalls(t *testing.T) {
	p := New(nil)
	p.Feed(encodeFrame(t, `{"toolUseId":"t1","name":"search"}`))
	events := p.Finalize()
	require.Len(t, events, 1)
	assert.Equal(t, upstream.EventToolUseStop, events[0].Kind)
}

func TestExtractBracketToolCalls(t *testing.T) {
	content := `some text [{"name":"search","input":{"query":"weather"}}] trailing`
	calls := ExtractBracketToolCalls(content)
	require.Len(t, calls, 1)
	assert.Equal(t, "search", calls[0].Name)
	assert.Equal(t, "weather", calls[0].Input["query"])
}

func TestDeduplicateToolCalls(t *testing.T) {
	in := []convo.ToolUse{
		{ID: "a", Name: "x"},
		{ID: "a", Name: "x"},
		{ID: "b", Name: "y"},
	}
	out := DeduplicateToolCalls(in)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}
