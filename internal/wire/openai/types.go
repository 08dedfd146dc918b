// Package openai holds the public OpenAI Chat Completions wire shapes
// the gateway's /v1/chat/completions endpoint accepts and emits.
package openai

import "encoding/json"

// ChatCompletionRequest is an inbound OpenAI-shaped request.
type ChatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Tools       []Tool     `json:"tools,omitempty"`
	ToolChoice  any        `json:"tool_choice,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	TopP        *float64   `json:"top_p,omitempty"`
	Stop        any        `json:"stop,omitempty"`
	Stream      bool       `json:"stream,omitempty"`
}

// Message is one OpenAI chat message. Content is either a plain string
// or a list of parts; ToolCalls is set on assistant messages issuing
// calls; ToolCallID/Name identify a "tool" role message's result.
type Message struct {
	Role       string     `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Part is one element of a list-shaped message content.
type Part struct {
	Type     string    `json:"type"` // text | image_url
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image reference, either a real URL or a data: URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ToolCall is a model-issued function call.
type ToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Function ToolCallFunc  `json:"function"`
}

// ToolCallFunc is the function payload of a ToolCall.
type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is an OpenAI tool/function definition.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function payload of a Tool.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatCompletionResponse is a fully assembled (non-streaming) response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is one completion choice. The gateway always emits exactly one.
type Choice struct {
	Index        int     `json:"index"`
	Message      RespMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// RespMsg is the assistant message inside a non-streaming Choice.
type RespMsg struct {
	Role      string     `json:"role"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Usage reports token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one `chat.completion.chunk` SSE frame.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// StreamChoice is one choice within a StreamChunk.
type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        StreamDelta  `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

// StreamDelta is the incremental content of a StreamChoice.
type StreamDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []DeltaTool `json:"tool_calls,omitempty"`
}

// DeltaTool is an incremental tool_call entry within a streamed delta.
type DeltaTool struct {
	Index    int          `json:"index"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function DeltaFunc    `json:"function"`
}

// DeltaFunc is the incremental function payload within a DeltaTool.
type DeltaFunc struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ErrorBody is the OpenAI {error:{...}} shape.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo is the nested error object inside ErrorBody.
type ErrorInfo struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Code    *string `json:"code,omitempty"`
}
