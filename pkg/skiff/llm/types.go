// Package llm defines the conversation wire types and the chat-completion
// client used by the agent runtime. The wire format is OpenAI-compatible:
// any endpoint speaking /chat/completions works as a provider.
package llm

import "encoding/json"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// InlineData carries base64-encoded binary content (images, audio, PDF)
// produced by tools that read non-text files.
type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ContentPart is one element of a multimodal message body.
// Exactly one of Text or InlineData is set.
type ContentPart struct {
	Type       string      `json:"type"` // "text" or "inline_data"
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// InlinePart builds an inline-data content part.
func InlinePart(mimeType, data string) ContentPart {
	return ContentPart{Type: "inline_data", InlineData: &InlineData{MIMEType: mimeType, Data: data}}
}

// Message is a single conversation entry in the OpenAI chat shape.
// Content is either a string (text-only) or []ContentPart (multimodal).
// Assistant messages may carry ToolCalls; tool messages answer exactly one
// of them via ToolCallID and Name.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"` // string or []ContentPart
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Text returns the textual content of the message: the string itself, or
// the concatenation of the text parts of a multimodal body.
func (m Message) Text() string {
	switch c := m.Content.(type) {
	case string:
		return c
	case []ContentPart:
		var out string
		for _, p := range c {
			if p.Type == "text" {
				out += p.Text
			}
		}
		return out
	}
	return ""
}

// SystemMessage builds a system message.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// UserMessage builds a plain-text user message.
func UserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// AssistantMessage builds an assistant message with optional tool calls.
func AssistantMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage builds the result message answering one tool call.
func ToolMessage(callID, name string, content any) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// ToolDefinition describes a callable tool in the chat-completions schema.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function exposed to the model.
// Parameters is a raw JSON Schema object.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response is the parsed outcome of one chat completion.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
	ModelUsed    string
}

// Usage holds token accounting from the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage sample.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
