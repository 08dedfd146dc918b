// Package upstream defines the normalized event shape the event-stream
// decoder produces and every streaming converter consumes.
package upstream

// EventKind discriminates the concrete payload carried by an Event.
type EventKind string

const (
	EventMessageStart    EventKind = "message_start"
	EventContentStart    EventKind = "content_start"
	EventContentDelta    EventKind = "content_delta"
	EventContentStop     EventKind = "content_stop"
	EventToolUseStart    EventKind = "tool_use_start"
	EventToolUseDelta    EventKind = "tool_use_delta"
	EventToolUseStop     EventKind = "tool_use_stop"
	EventContextUsage    EventKind = "context_usage"
	EventMetering        EventKind = "metering"
	EventMessageStop     EventKind = "message_stop"
	EventException       EventKind = "exception"
)

// Event is one decoded frame off the Upstream event-stream connection,
// already unwrapped from its outer {"bytes": "<base64 JSON>"} envelope
// and its AWS event-stream headers.
type Event struct {
	Kind EventKind

	// Index identifies which content block this event belongs to, for
	// Content*/ToolUse* kinds.
	Index int

	// Text carries incremental text for EventContentDelta.
	Text string

	// ToolUseID/ToolName/ToolInputDelta carry EventToolUseStart/Delta.
	ToolUseID       string
	ToolName        string
	ToolInputDelta  string

	// ContextUsagePercentage is Upstream's running estimate of how much
	// of the model's context window the conversation-so-far consumes,
	// set on EventContextUsage.
	ContextUsagePercentage float64

	// Metering carries raw per-request billing/usage counters Upstream
	// reports out of band from the content stream.
	Metering map[string]any

	// ExceptionType/ExceptionMessage carry EventException, Upstream's
	// equivalent of a mid-stream error frame.
	ExceptionType    string
	ExceptionMessage string
}
