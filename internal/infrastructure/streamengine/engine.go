// Package streamengine drives the byte-level read loop against an open
// Upstream response body: first-token retry, adaptive inter-chunk
// timeouts with bounded tolerance, and handing decoded frames off to
// whichever format translator the caller is using. It knows nothing
// about OpenAI or Anthropic shapes — only about bytes, timeouts, and
// the event-stream parser.
package streamengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	"github.com/ngoclaw/relaygate/internal/infrastructure/eventstream"
)

// Config holds the timeout/retry knobs from §5 of the streaming design.
type Config struct {
	FirstTokenTimeout      time.Duration
	FirstTokenMaxRetries   int
	StreamReadTimeout      time.Duration
	MaxConsecutiveTimeouts int
	PingInterval           time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FirstTokenTimeout:      60 * time.Second,
		FirstTokenMaxRetries:   2,
		StreamReadTimeout:      30 * time.Second,
		MaxConsecutiveTimeouts: 3,
		PingInterval:           25 * time.Second,
	}
}

// Engine runs the read loop for one request.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New returns an Engine configured with cfg.
func New(cfg Config, logger *zap.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// OpenFunc issues (or re-issues) the upstream HTTP call and returns its
// response body.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// ErrFirstTokenTimeout is returned when every retry in Open exhausts
// FirstTokenTimeout without a byte arriving; callers map this to a 504.
var ErrFirstTokenTimeout = errors.New("streamengine: first token timeout exhausted")

// Open calls open, waits up to FirstTokenTimeout for the first byte,
// and retries the whole call (closing the dead body first) up to
// FirstTokenMaxRetries times. Only this first-token phase is retried;
// once a byte has arrived, failures are the caller's to handle via Run.
func (e *Engine) Open(ctx context.Context, open OpenFunc) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.FirstTokenMaxRetries; attempt++ {
		body, err := open(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		peek := make([]byte, 4096)
		n, rerr := readWithTimeout(ctx, body, peek, e.cfg.FirstTokenTimeout)
		if n == 0 && rerr != nil && rerr != io.EOF {
			body.Close()
			lastErr = rerr
			e.logger.Warn("first-token timeout, retrying", zap.Int("attempt", attempt), zap.Error(rerr))
			continue
		}

		return &prefixReadCloser{prefix: peek[:n], eof: rerr == io.EOF, rc: body}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFirstTokenTimeout, lastErr)
}

// Run consumes body until EOF, feeding every chunk through parser and
// invoking emit for every decoded Upstream event. timeoutMultiplier
// scales StreamReadTimeout for slower or Pro+-tier models. Run closes
// body on every exit path.
func (e *Engine) Run(ctx context.Context, body io.ReadCloser, parser *eventstream.Parser, emit func(upstream.Event), timeoutMultiplier float64) error {
	defer body.Close()

	if timeoutMultiplier <= 0 {
		timeoutMultiplier = 1
	}
	timeout := time.Duration(float64(e.cfg.StreamReadTimeout) * timeoutMultiplier)

	buf := make([]byte, 32*1024)
	consecutiveTimeouts := 0

	for {
		n, err := readWithTimeout(ctx, body, buf, timeout)
		if n > 0 {
			consecutiveTimeouts = 0
			for _, ev := range parser.Feed(buf[:n]) {
				emit(ev)
			}
		}

		if err == nil {
			continue
		}
		if err == io.EOF {
			for _, ev := range parser.Finalize() {
				emit(ev)
			}
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			consecutiveTimeouts++
			if consecutiveTimeouts > e.cfg.MaxConsecutiveTimeouts {
				return fmt.Errorf("streamengine: stream dead after %d consecutive read timeouts", consecutiveTimeouts)
			}
			e.logger.Warn("stream read timeout, tolerating", zap.Int("consecutive", consecutiveTimeouts))
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

type chunkResult struct {
	n   int
	err error
}

// readWithTimeout reads once from r, bounding the wait with timeout.
// io.Reader has no per-call deadline of its own, so the read runs in a
// goroutine and the caller races it against a timer; a timed-out read
// leaves that goroutine running until r eventually unblocks or closes,
// which is the accepted cost of bounding an otherwise un-cancelable
// blocking Read.
func readWithTimeout(ctx context.Context, r io.Reader, buf []byte, timeout time.Duration) (int, error) {
	resultCh := make(chan chunkResult, 1)
	go func() {
		n, err := r.Read(buf)
		resultCh <- chunkResult{n, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.n, res.err
	case <-timer.C:
		return 0, context.DeadlineExceeded
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// prefixReadCloser replays a peeked prefix before resuming reads from
// the wrapped ReadCloser.
type prefixReadCloser struct {
	prefix []byte
	eof    bool
	rc     io.ReadCloser
}

func (p *prefixReadCloser) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		if len(p.prefix) == 0 && p.eof {
			return n, io.EOF
		}
		return n, nil
	}
	if p.eof {
		return 0, io.EOF
	}
	return p.rc.Read(b)
}

func (p *prefixReadCloser) Close() error {
	return p.rc.Close()
}
