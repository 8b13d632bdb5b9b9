package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstate/message"
)

func TestMockModel(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("what is 2+2?", "4")

	msgs := []message.Message{
		message.New(message.TypeSystem, "You are a calculator."),
		message.New(message.TypeHuman, "what is 2+2?"),
	}

	reply, err := m.Invoke(context.Background(), msgs)
	require.NoError(t, err)

	ai, ok := reply.(message.AIMessage)
	require.True(t, ok)
	assert.Equal(t, "4", ai.Content)
	assert.Equal(t, "test-model", ai.AdditionalKwargs["model"])
	assert.Equal(t, Info{Name: "test-model", Provider: "mock"}, m.Info())

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "what is 2+2?", calls[0][1].Content)
}

func TestMockModelDefaultReply(t *testing.T) {
	m := NewMockModel("test-model")

	reply, err := m.Invoke(context.Background(), []message.Message{message.New(message.TypeHuman, "hello")})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", reply.(message.AIMessage).Content)
}

func TestMockModelErrors(t *testing.T) {
	m := NewMockModel("test-model")

	_, err := m.Invoke(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoMessages)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Invoke(ctx, []message.Message{message.New(message.TypeHuman, "x")})
	require.ErrorIs(t, err, context.Canceled)

	boom := errors.New("boom")
	m.SetError(boom)
	_, err = m.Invoke(context.Background(), []message.Message{message.New(message.TypeHuman, "x")})
	require.ErrorIs(t, err, boom)
}

func TestFunc(t *testing.T) {
	var f Model = Func(func(_ context.Context, msgs []message.Message) (any, error) {
		return len(msgs), nil
	})

	reply, err := f.Invoke(context.Background(), make([]message.Message, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, reply)
	assert.Equal(t, "local", f.Info().Provider)
}
