package unit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestIDFromContext(WithRequestID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := RequestIDFromContext(WithRequestID(context.Background(), "r1"))
	assert.True(t, ok)
	assert.Equal(t, "r1", id)

	ctx, generated := ensureRequestID(context.Background())
	assert.NotEmpty(t, generated)
	again, _ := RequestIDFromContext(ctx)
	assert.Equal(t, generated, again)
}
