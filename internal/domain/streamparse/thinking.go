// Package streamparse detects <thinking>...</thinking> tags inside text
// arriving in arbitrarily sized chunks, without ever assuming a tag
// starts or ends on a chunk boundary.
package streamparse

import "strings"

const (
	thinkingStartTag = "<thinking>"
	thinkingEndTag   = "</thinking>"
)

// SegmentKind discriminates the two kinds of output a ThinkingParser emits.
type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentThinking SegmentKind = "thinking"
)

// Segment is one contiguous run of same-kind content extracted from the
// input stream.
type Segment struct {
	Kind SegmentKind
	Text string
}

// ThinkingParser incrementally splits a stream of text chunks into text
// and thinking segments, buffering across chunk boundaries so a tag
// split mid-token is never misdetected.
//
// Mirrors the push/parse/flush shape of the Python tag parser this is
// ported from: feed chunks in with Push, drain fully-resolved segments
// after each call, and call Flush once at end of stream to emit
// whatever remains in the buffer (even if it looks like a truncated
// tag — a truncated tag at end of stream is just text).
type ThinkingParser struct {
	buf      strings.Builder
	thinking bool
}

// NewThinkingParser returns a parser starting in plain-text mode.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Push appends a chunk and returns every segment the parser can now
// resolve with certainty. Content that might still be a partial tag is
// held back until a following Push or Flush disambiguates it.
func (p *ThinkingParser) Push(chunk string) []Segment {
	p.buf.WriteString(chunk)
	return p.parseBuffer(false)
}

// Flush emits everything left in the buffer, treating any partial tag
// suffix as ordinary content of the current mode.
func (p *ThinkingParser) Flush() []Segment {
	return p.parseBuffer(true)
}

// Reset returns the parser to its initial state, discarding any
// buffered content.
func (p *ThinkingParser) Reset() {
	p.buf.Reset()
	p.thinking = false
}

func (p *ThinkingParser) parseBuffer(final bool) []Segment {
	var out []Segment
	for {
		buf := p.buf.String()
		if buf == "" {
			return out
		}

		tag := thinkingStartTag
		if p.thinking {
			tag = thinkingEndTag
		}

		idx := strings.Index(buf, tag)
		if idx >= 0 {
			before := buf[:idx]
			if before != "" {
				out = append(out, p.segment(before))
			}
			p.buf.Reset()
			p.buf.WriteString(buf[idx+len(tag):])
			p.thinking = !p.thinking
			continue
		}

		// No full tag present. If the buffer's tail could be the
		// start of the tag we're looking for, hold it back in case
		// the next chunk completes it — unless this is the final
		// flush, in which case there is no "next chunk" and the
		// partial suffix is just content.
		if !final {
			if cut := partialTagSuffixLen(buf, tag); cut > 0 {
				emit := buf[:len(buf)-cut]
				if emit != "" {
					out = append(out, p.segment(emit))
				}
				p.buf.Reset()
				p.buf.WriteString(buf[len(buf)-cut:])
				return out
			}
		}

		out = append(out, p.segment(buf))
		p.buf.Reset()
		return out
	}
}

func (p *ThinkingParser) segment(text string) Segment {
	kind := SegmentText
	if p.thinking {
		kind = SegmentThinking
	}
	return Segment{Kind: kind, Text: text}
}

// partialTagSuffixLen returns the length of the longest proper suffix
// of buf that is also a proper prefix of tag — i.e. how many trailing
// bytes of buf might be the start of tag split across a chunk boundary.
func partialTagSuffixLen(buf, tag string) int {
	max := len(tag) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(buf, tag[:n]) {
			return n
		}
	}
	return 0
}
