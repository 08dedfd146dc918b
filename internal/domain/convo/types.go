// Package convo holds the wire-neutral conversation model every format
// converter reads from and writes to. It sits between the three external
// wire shapes (OpenAI, Anthropic, Upstream) so none of them has to know
// about the other two.
package convo

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartKind discriminates the concrete type behind a ContentPart.
type PartKind string

const (
	PartText       PartKind = "text"
	PartImage      PartKind = "image"
	PartToolUse    PartKind = "tool_use"
	PartToolResult PartKind = "tool_result"
	PartThinking   PartKind = "thinking"
)

// ContentPart is a discriminated union over the five content shapes the
// three wire formats can carry inside a single message. Using an
// interface with one concrete type per shape instead of
// map[string]interface{} gives each shape a typed struct that
// converters switch on by type. Go does not check those type switches
// for exhaustiveness: a converter with no case for a concrete type
// skips parts of that type.
type ContentPart interface {
	Kind() PartKind
}

// Text is a plain text segment.
type Text struct {
	Text string
}

func (Text) Kind() PartKind { return PartText }

// Image is an inline image reference, either a remote URL or base64 data.
type Image struct {
	// Source is either "url" or "base64".
	Source string
	URL    string
	// MediaType is the MIME type, required when Source == "base64".
	MediaType string
	// Data is the base64-encoded payload when Source == "base64".
	Data string
}

func (Image) Kind() PartKind { return PartImage }

// ToolUse is a model-issued tool/function call.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUse) Kind() PartKind { return PartToolUse }

// ToolResult carries a tool's output back to the model.
type ToolResult struct {
	ToolUseID string
	// Content holds one or more parts; ordinarily Text, occasionally Image.
	Content []ContentPart
	IsError bool
}

func (ToolResult) Kind() PartKind { return PartToolResult }

// Thinking is a model reasoning segment, kept distinct from Text so
// converters can choose whether a given wire format surfaces it.
type Thinking struct {
	Text string
	// Signature is an opaque provenance token some hosted variants
	// require before they'll accept a thinking block back on a
	// follow-up turn. Empty when the upstream never issued one.
	Signature string
}

func (Thinking) Kind() PartKind { return PartThinking }

// Message is one turn of the conversation, role-tagged, holding an
// ordered list of content parts.
type Message struct {
	Role    Role
	Content []ContentPart
}

// ToolDef describes a tool/function the model may call.
type ToolDef struct {
	Name        string
	Description string
	// Parameters is a normalized JSON Schema object (see package schema).
	Parameters map[string]any
}

// ToolChoice constrains which tool (if any) the model must call.
type ToolChoice struct {
	// Mode is one of "auto", "required", "none", "tool".
	Mode string
	// Name is set when Mode == "tool".
	Name string
}

// Request is the normalized form of an incoming chat/messages request,
// independent of which public wire format it arrived in.
type Request struct {
	Model         string
	System        string
	Messages      []Message
	Tools         []ToolDef
	ToolChoice    *ToolChoice
	MaxTokens     int
	Temperature   *float64
	TopP          *float64
	Stop          []string
	Stream        bool
	ThinkingMode  bool
	ThinkingBudget int
	// Metadata carries caller-identifying fields (user id, request id)
	// threaded through to logging/metrics without affecting translation.
	Metadata map[string]string
}

// StopReason is the wire-neutral terminal reason a response ended.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopStopSequence StopReason = "stop_sequence"
)

// Usage is the normalized token accounting for one exchange.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the normalized, fully assembled (non-streaming) reply.
type Response struct {
	Model      string
	Content    []ContentPart
	StopReason StopReason
	Usage      Usage
}
