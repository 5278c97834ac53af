// Package llm provides shared data models for the Gemini backends.
package llm

import "github.com/richinex/gemway/metadata"

// Role identifies the author of a chat message.
type Role string

// Supported message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// ChatOptions tunes a single chat or stream call.
// Zero values mean "not set": Model falls back to the adapter default and
// generation parameters are left to the backend.
type ChatOptions struct {
	Model           string
	Temperature     *float32
	MaxOutputTokens int32
	TopP            *float32
	TopK            *int32
	StopSequences   []string
	// Metadata is copied into the response metadata's Extra field.
	Metadata map[string]any
}

// EmbeddingsOptions tunes a single embeddings call.
type EmbeddingsOptions struct {
	Model    string
	Metadata map[string]any
}

// ChatResponse is the result of a chat call. Text is never empty.
type ChatResponse struct {
	Text     string          `json:"text"`
	Metadata metadata.Record `json:"metadata"`
}

// EmbeddingsResponse holds one vector per input, in input order.
type EmbeddingsResponse struct {
	Model      string          `json:"model"`
	Embeddings [][]float32     `json:"embeddings"`
	Metadata   metadata.Record `json:"metadata"`
}

// StreamEvent is an out-of-band notification emitted while streaming.
type StreamEvent struct {
	Type string
	Data any
}

// Stream event types.
const (
	// EventStart carries the unfinished metadata.Record. It is emitted
	// before the backend request is made.
	EventStart = "start"
	// EventFinishReason carries the backend's finish reason string.
	EventFinishReason = "finish_reason"
)

// StreamCallbacks receives streaming notifications. Every field is
// optional; a nil callback drops that notification.
type StreamCallbacks struct {
	OnToken func(token string)
	OnDone  func(finalText string, meta metadata.Record)
	OnError func(err error)
	OnEvent func(event StreamEvent)
}

func (c StreamCallbacks) token(t string) {
	if c.OnToken != nil {
		c.OnToken(t)
	}
}

func (c StreamCallbacks) done(text string, meta metadata.Record) {
	if c.OnDone != nil {
		c.OnDone(text, meta)
	}
}

func (c StreamCallbacks) fail(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c StreamCallbacks) event(ev StreamEvent) {
	if c.OnEvent != nil {
		c.OnEvent(ev)
	}
}
