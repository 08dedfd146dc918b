package streamengine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"sync/atomic"
	"testing"
	"time"

	awseventstream "github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	"github.com/ngoclaw/relaygate/internal/infrastructure/eventstream"
)

func encodeFrame(t *testing.T, eventJSON string) []byte {
	t.Helper()
	envelope, err := json.Marshal(map[string]string{"bytes": base64.StdEncoding.EncodeToString([]byte(eventJSON))})
	require.NoError(t, err)

	var buf bytes.Buffer
	msg := awseventstream.Message{Headers: awseventstream.Headers{}, Payload: envelope}
	require.NoError(t, awseventstream.NewEncoder().Encode(&buf, msg))
	return buf.Bytes()
}

type closerWrapper struct{ io.Reader }

func (closerWrapper) Close() error { return nil }

func TestEngine_Run_DecodesUntilEOF(t *testing.T) {
	frame := encodeFrame(t, `{"content":"hi"}`)
	body := closerWrapper{bytes.NewReader(frame)}

	e := New(Config{StreamReadTimeout: time.Second, MaxConsecutiveTimeouts: 3}, zap.NewNop())

	var got []upstream.Event
	err := e.Run(context.Background(), body, eventstream.New(zap.NewNop()), func(ev upstream.Event) {
		got = append(got, ev)
	}, 1.0)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, upstream.EventContentDelta, got[0].Kind)
	assert.Equal(t, "hi", got[0].Text)
}

// stallingReader blocks for `stall` before returning EOF, letting tests
// exercise the read-timeout tolerance path deterministically.
type stallingReader struct {
	stalls  int32
	stall   time.Duration
	reads   int32
	maxStalls int32
}

func (r *stallingReader) Read(p []byte) (int, error) {
	n := atomic.AddInt32(&r.reads, 1)
	if n <= r.maxStalls {
		time.Sleep(r.stall)
	}
	return 0, io.EOF
}

func (r *stallingReader) Close() error { return nil }

func TestEngine_Run_TreatsStreamDeadAfterTooManyConsecutiveTimeouts(t *testing.T) {
	r := &stallingReader{stall: 30 * time.Millisecond, maxStalls: 3}
	e := New(Config{StreamReadTimeout: 5 * time.Millisecond, MaxConsecutiveTimeouts: 2}, zap.NewNop())

	err := e.Run(context.Background(), r, eventstream.New(zap.NewNop()), func(upstream.Event) {}, 1.0)
	assert.Error(t, err)
}

func TestEngine_Run_ToleratesTimeoutsUnderThreshold(t *testing.T) {
	r := &stallingReader{stall: 15 * time.Millisecond, maxStalls: 1}
	e := New(Config{StreamReadTimeout: 5 * time.Millisecond, MaxConsecutiveTimeouts: 3}, zap.NewNop())

	err := e.Run(context.Background(), r, eventstream.New(zap.NewNop()), func(upstream.Event) {}, 1.0)
	assert.NoError(t, err)
}
