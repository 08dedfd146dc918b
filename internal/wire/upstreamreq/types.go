// Package upstreamreq holds the JSON shape of a request body posted to
// Upstream's generateAssistantResponse endpoint.
package upstreamreq

// Payload is the full request body.
type Payload struct {
	ConversationState ConversationState `json:"conversationState"`
	ProfileArn        string            `json:"profileArn,omitempty"`
}

// ConversationState wraps the current turn plus prior history.
type ConversationState struct {
	ChatTriggerType string        `json:"chatTriggerType"`
	ConversationID  string        `json:"conversationId"`
	CurrentMessage  CurrentMessage `json:"currentMessage"`
	History         []HistoryItem `json:"history,omitempty"`
}

// CurrentMessage wraps the active turn being sent for completion.
type CurrentMessage struct {
	UserInputMessage UserInputMessage `json:"userInputMessage"`
}

// UserInputMessage is the active turn's payload.
type UserInputMessage struct {
	Content                string                   `json:"content"`
	ModelID                string                   `json:"modelId"`
	Origin                 string                   `json:"origin"`
	Images                 []Image                  `json:"images,omitempty"`
	UserInputMessageContext *UserInputMessageContext `json:"userInputMessageContext,omitempty"`
}

// Image is one inline image attachment.
type Image struct {
	Format string      `json:"format"`
	Source ImageSource `json:"source"`
}

// ImageSource carries the raw bytes of an Image.
type ImageSource struct {
	Bytes string `json:"bytes"`
}

// UserInputMessageContext carries tool definitions and tool results
// for the current turn.
type UserInputMessageContext struct {
	Tools       []ToolEntry  `json:"tools,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// ToolEntry wraps one tool specification.
type ToolEntry struct {
	ToolSpecification ToolSpecification `json:"toolSpecification"`
}

// ToolSpecification is the upstream tool-definition shape.
type ToolSpecification struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema wraps a tool's JSON Schema under the "json" key upstream expects.
type InputSchema struct {
	JSON map[string]any `json:"json"`
}

// ToolResult is one tool result attached to the current user turn.
type ToolResult struct {
	Content   []ToolResultContent `json:"content"`
	Status    string              `json:"status"`
	ToolUseID string              `json:"toolUseId"`
}

// ToolResultContent is one content item of a ToolResult.
type ToolResultContent struct {
	Text string `json:"text"`
}

// HistoryItem is one prior turn: exactly one of UserInputMessage or
// AssistantResponseMessage is set.
type HistoryItem struct {
	UserInputMessage      *HistoryUserMessage      `json:"userInputMessage,omitempty"`
	AssistantResponseMessage *HistoryAssistantMessage `json:"assistantResponseMessage,omitempty"`
}

// HistoryUserMessage is a historical user turn.
type HistoryUserMessage struct {
	Content string `json:"content"`
}

// HistoryAssistantMessage is a historical assistant turn.
type HistoryAssistantMessage struct {
	Content string `json:"content"`
}
