package streamparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(p *ThinkingParser, chunks ...string) []Segment {
	var out []Segment
	for _, c := range chunks {
		out = append(out, p.Push(c)...)
	}
	out = append(out, p.Flush()...)
	return out
}

func TestThinkingParser_PlainText(t *testing.T) {
	segs := collect(NewThinkingParser(), "hello world")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "hello world", segs[0].Text)
}

func TestThinkingParser_WholeTagInOneChunk(t *testing.T) {
	segs := collect(NewThinkingParser(), "before<thinking>inner</thinking>after")
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{SegmentText, "before"}, segs[0])
	assert.Equal(t, Segment{SegmentThinking, "inner"}, segs[1])
	assert.Equal(t, Segment{SegmentText, "after"}, segs[2])
}

func TestThinkingParser_TagSplitAcrossChunks(t *testing.T) {
	segs := collect(NewThinkingParser(), "before<think", "ing>inner</thi", "nking>after")
	require.Len(t, segs, 3)
	assert.Equal(t, "before", segs[0].Text)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "inner", segs[1].Text)
	assert.Equal(t, SegmentThinking, segs[1].Kind)
	assert.Equal(t, "after", segs[2].Text)
}

func TestThinkingParser_PartialSuffixHeldBack(t *testing.T) {
	p := NewThinkingParser()
	segs := p.Push("hello <think")
	// "<think" is a prefix of "<thinking>" so it must be withheld.
	require.Len(t, segs, 1)
	assert.Equal(t, "hello ", segs[0].Text)

	segs = p.Push("ing>world</thinking>")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentThinking, segs[0].Kind)
	assert.Equal(t, "world", segs[0].Text)
}

func TestThinkingParser_TruncatedTagAtFlush(t *testing.T) {
	p := NewThinkingParser()
	p.Push("hello <think")
	segs := p.Flush()
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "<think", segs[0].Text)
}

func TestThinkingParser_MultipleThinkingBlocks(t *testing.T) {
	segs := collect(NewThinkingParser(),
		"<thinking>a</thinking>mid<thinking>b</thinking>tail")
	require.Len(t, segs, 4)
	kinds := make([]SegmentKind, len(segs))
	for i, s := range segs {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []SegmentKind{
		SegmentThinking, SegmentText, SegmentThinking, SegmentText,
	}, kinds[:4])
}

func TestThinkingParser_Reset(t *testing.T) {
	p := NewThinkingParser()
	p.Push("<thinking>partial")
	p.Reset()
	segs := collect(p, "plain text")
	require.Len(t, segs, 1)
	assert.Equal(t, "plain text", segs[0].Text)
}
