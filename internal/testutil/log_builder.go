package testutil

import (
	"github.com/hupe1980/meshstate/conversation"
	"github.com/hupe1980/meshstate/message"
)

type entry struct {
	raw      any
	from, to string
}

// LogBuilder helps construct conversation logs with fluent chaining for tests.
// Example:
//
//	log := NewLogBuilder().Say("A", "B", "hi").Say("B", "", "done").Build()
type LogBuilder struct {
	optFns  []func(o *conversation.Options)
	entries []entry
}

// NewLogBuilder creates a builder for an empty log.
func NewLogBuilder(optFns ...func(o *conversation.Options)) *LogBuilder {
	return &LogBuilder{optFns: optFns}
}

// Say appends an AI text reply routed from -> to (chainable).
func (b *LogBuilder) Say(from, to, text string) *LogBuilder {
	return b.Add(from, to, message.AIMessage{Content: text})
}

// Add appends an arbitrary raw reply routed from -> to (chainable).
func (b *LogBuilder) Add(from, to string, raw any) *LogBuilder {
	b.entries = append(b.entries, entry{raw: raw, from: from, to: to})
	return b
}

// Build returns a *conversation.Log with the entries appended in order.
func (b *LogBuilder) Build() *conversation.Log {
	l := conversation.NewLog(b.optFns...)
	for _, e := range b.entries {
		l.AddMessage(e.raw, e.from, e.to)
	}
	return l
}
