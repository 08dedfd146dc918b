package streamengine

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	convertanthropic "github.com/ngoclaw/relaygate/internal/convert/anthropic"
	"github.com/ngoclaw/relaygate/internal/infrastructure/eventstream"
)

type delayedEOFReader struct {
	delay time.Duration
	once  sync.Once
}

func (r *delayedEOFReader) Read(p []byte) (int, error) {
	r.once.Do(func() { time.Sleep(r.delay) })
	return 0, io.EOF
}

func (r *delayedEOFReader) Close() error { return nil }

func TestRunBuffered_EmitsPingsThenCorrectedMessageStart(t *testing.T) {
	body := &delayedEOFReader{delay: 35 * time.Millisecond}
	e := New(Config{StreamReadTimeout: time.Second, MaxConsecutiveTimeouts: 3, PingInterval: 10 * time.Millisecond}, zap.NewNop())

	translator := convertanthropic.NewTranslator()
	var frames []string
	write := func(f string) error {
		frames = append(frames, f)
		return nil
	}

	err := e.RunBuffered(context.Background(), body, eventstream.New(zap.NewNop()), translator, 1.0, write,
		func(tr *convertanthropic.Translator) (string, string, int, string, int) {
			return "msg_1", "claude-sonnet-4-5", 5, convertanthropic.StopEndTurn, 0
		})

	require.NoError(t, err)

	joined := strings.Join(frames, "")
	assert.Contains(t, joined, "event: ping")
	assert.Contains(t, joined, `"type":"message_start"`)
	assert.Contains(t, joined, `"input_tokens":5`)
	assert.Contains(t, joined, "message_stop")

	// The corrected message_start must come after every ping.
	lastPing := strings.LastIndex(joined, "event: ping")
	msgStart := strings.Index(joined, `"type":"message_start"`)
	assert.True(t, lastPing < msgStart)
}
