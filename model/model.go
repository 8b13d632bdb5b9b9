package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/meshstate/message"
)

// ErrNoMessages is returned when a model is invoked with an empty message list.
var ErrNoMessages = errors.New("no messages provided")

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model produces a raw reply for a conversation.
type Model interface {
	Invoke(ctx context.Context, msgs []message.Message) (any, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Func adapts an ordinary function to a Model.
type Func func(ctx context.Context, msgs []message.Message) (any, error)

// Invoke implements Model.
func (f Func) Invoke(ctx context.Context, msgs []message.Message) (any, error) {
	return f(ctx, msgs)
}

// Info implements Model.
func (Func) Info() Info { return Info{Name: "func", Provider: "local"} }

// MockModel is a lightweight in-memory Model useful for tests and examples.
// It is safe for concurrent use.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     [][]message.Message
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a query. The
// query is matched against the content of the last human message.
func (m *MockModel) AddResponse(query, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[query] = response
}

// SetError makes every subsequent Invoke fail with err (nil restores replies).
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns copies of the message lists received so far.
func (m *MockModel) Calls() [][]message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]message.Message, len(m.calls))
	for i, c := range m.calls {
		out[i] = cloneAll(c)
	}
	return out
}

// Invoke implements Model. It replies with a message.AIMessage.
func (m *MockModel) Invoke(ctx context.Context, msgs []message.Message) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cloneAll(msgs))
	if m.err != nil {
		return nil, m.err
	}

	query := lastHuman(msgs)
	full, ok := m.responses[query]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", query)
	}
	return message.AIMessage{
		Content:          full,
		AdditionalKwargs: map[string]any{"model": m.info.Name},
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func lastHuman(msgs []message.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == message.TypeHuman {
			return msgs[i].Content
		}
	}
	return msgs[len(msgs)-1].Content
}

func cloneAll(msgs []message.Message) []message.Message {
	out := make([]message.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
