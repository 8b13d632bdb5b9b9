package testutil

import (
	"time"

	"github.com/hupe1980/meshstate/message"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().AI("hello").Route("planner", "critic").Meta("k", 1).Build()
//
// Chain only the parts you need; the default is an empty human message.
type MessageBuilder struct {
	msg message.Message
}

// NewMessageBuilder creates a builder with a fixed timestamp so built
// messages compare equal across runs.
func NewMessageBuilder() *MessageBuilder {
	m := message.New(message.TypeHuman, "")
	m.Timestamp = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &MessageBuilder{msg: m}
}

// Human sets type human and the content (chainable).
func (b *MessageBuilder) Human(content string) *MessageBuilder {
	return b.typed(message.TypeHuman, content)
}

// AI sets type ai and the content (chainable).
func (b *MessageBuilder) AI(content string) *MessageBuilder {
	return b.typed(message.TypeAI, content)
}

// System sets type system and the content (chainable).
func (b *MessageBuilder) System(content string) *MessageBuilder {
	return b.typed(message.TypeSystem, content)
}

// Tool sets type tool with the call id, tool name and output (chainable).
func (b *MessageBuilder) Tool(callID, name, output string) *MessageBuilder {
	b.typed(message.TypeTool, output)
	b.msg.ToolCallID = callID
	b.msg.ToolName = name
	b.msg.ToolOutput = output
	return b
}

func (b *MessageBuilder) typed(t message.Type, content string) *MessageBuilder {
	b.msg.Type = t
	b.msg.Content = content
	return b
}

// Route sets sender and recipient (chainable).
func (b *MessageBuilder) Route(from, to string) *MessageBuilder {
	b.msg.FromAgent = from
	b.msg.ToAgent = to
	return b
}

// Conversation sets the conversation id (chainable).
func (b *MessageBuilder) Conversation(id string) *MessageBuilder {
	b.msg.ConversationID = id
	return b
}

// At overrides the timestamp (chainable).
func (b *MessageBuilder) At(ts time.Time) *MessageBuilder {
	b.msg.Timestamp = ts.UTC()
	return b
}

// Meta sets a metadata entry (chainable).
func (b *MessageBuilder) Meta(key string, val any) *MessageBuilder {
	b.msg.Metadata[key] = val
	return b
}

// Kwarg sets an additional_kwargs entry (chainable).
func (b *MessageBuilder) Kwarg(key string, val any) *MessageBuilder {
	b.msg.AdditionalKwargs[key] = val
	return b
}

// Build returns an independent copy of the message.
func (b *MessageBuilder) Build() message.Message { return b.msg.Clone() }

// BuildMap returns the record form of the message.
func (b *MessageBuilder) BuildMap() map[string]any { return b.msg.ToMap() }
