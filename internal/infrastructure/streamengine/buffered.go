package streamengine

import (
	"context"
	"io"
	"time"

	convertanthropic "github.com/ngoclaw/relaygate/internal/convert/anthropic"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	"github.com/ngoclaw/relaygate/internal/infrastructure/eventstream"
)

// RunBuffered drives Run to completion while buffering every SSE frame
// the translator produces, emitting only `ping` keepalives to w in the
// meantime (§4.5.2). Once Upstream finishes, finalize is called to get
// the accurate input-token count and stop reason (it typically reads
// translator.ContextUsagePercentage() and falls back to local
// tokenization), then the corrected message_start, the buffered
// frames, and the message_delta/message_stop trailer are written in
// order. finalize runs before any buffered frame is written, matching
// the "consume everything, then answer" contract buffered mode exists
// for.
func (e *Engine) RunBuffered(
	ctx context.Context,
	body io.ReadCloser,
	parser *eventstream.Parser,
	translator *convertanthropic.Translator,
	timeoutMultiplier float64,
	w func(frame string) error,
	finalize func(tr *convertanthropic.Translator) (messageID, model string, inputTokens int, stopReason string, outputTokens int),
) error {
	var buffered []string
	emit := func(ev upstream.Event) {
		buffered = append(buffered, translator.Handle(ev)...)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- e.Run(ctx, body, parser, emit, timeoutMultiplier)
	}()

	ticker := time.NewTicker(e.cfg.PingInterval)
	defer ticker.Stop()

	var err error
loop:
	for {
		select {
		case err = <-runErr:
			break loop
		case <-ticker.C:
			if werr := w(convertanthropic.Ping()); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return err
	}

	messageID, model, inputTokens, stopReason, outputTokens := finalize(translator)
	if werr := w(translator.StartMessage(messageID, model, inputTokens)); werr != nil {
		return werr
	}
	for _, frame := range buffered {
		if werr := w(frame); werr != nil {
			return werr
		}
	}
	for _, frame := range translator.Finalize(stopReason, outputTokens) {
		if werr := w(frame); werr != nil {
			return werr
		}
	}
	return nil
}
