// Package anthropic holds the public Anthropic Messages API wire
// shapes the gateway's /v1/messages and /cc/v1/messages endpoints
// accept and emit. Field shapes follow the teacher's own Anthropic
// client types, widened to carry every block kind the spec requires
// (image sources, list-shaped tool_result content, thinking
// signatures, tool_choice, stop_sequences).
package anthropic

// Request is an inbound Anthropic Messages API request.
type Request struct {
	Model         string          `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	System        System          `json:"system,omitempty"`
	Messages      []Message       `json:"messages"`
	Tools         []Tool          `json:"tools,omitempty"`
	ToolChoice    *ToolChoice     `json:"tool_choice,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Thinking      *ThinkingConfig `json:"thinking,omitempty"`
}

// System is either a plain string or a list of text blocks; custom
// unmarshalling lives in json.go.
type System struct {
	Text   string
	Blocks []ContentBlock
}

// ThinkingConfig mirrors Anthropic's extended-thinking request field.
type ThinkingConfig struct {
	Type         string `json:"type"` // enabled | disabled | adaptive
	BudgetTokens int    `json:"budget_tokens,omitempty"`
	Effort       string `json:"effort,omitempty"`
}

// Message is one turn; Content is either a plain string or a list of
// ContentBlock, handled by custom unmarshalling.
type Message struct {
	Role    string    `json:"role"`
	Content []ContentBlock
	// IsHistorical is not set or read anywhere in this module; it is
	// never decoded from or encoded to JSON.
	IsHistorical bool `json:"-"`
}

// ContentBlock is Anthropic's polymorphic content element.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID     string         `json:"tool_use_id,omitempty"`
	ToolContent   []ContentBlock `json:"-"` // normalized list form
	ToolIsError   bool           `json:"is_error,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ImageSource is an Anthropic image content source: either base64 or a URL.
type ImageSource struct {
	Type      string `json:"type"` // base64 | url
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Tool is an Anthropic tool definition.
type Tool struct {
	Type        string         `json:"type,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolChoice constrains tool-use.
type ToolChoice struct {
	Type string `json:"type"` // auto | any | tool | none
	Name string `json:"name,omitempty"`
}

// Response is a fully assembled (non-streaming) Messages API response.
type Response struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Usage reports token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrorBody is the Anthropic {type:"error",...} shape used for both
// pre-stream HTTP error bodies and mid-stream `event: error` frames.
type ErrorBody struct {
	Type  string    `json:"type"`
	Error ErrorInfo `json:"error"`
}

// ErrorInfo is the nested error object inside ErrorBody.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	ErrTypeInvalidRequest  = "invalid_request_error"
	ErrTypeAuthentication  = "authentication_error"
	ErrTypePermission      = "permission_error"
	ErrTypeRateLimit       = "rate_limit_error"
	ErrTypeAPIError        = "api_error"
	ErrTypeOverloaded      = "overloaded_error"
)
