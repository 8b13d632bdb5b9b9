package observe

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstate/logging"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(OpSet, "alice", OutcomeOK)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, OpSet, e.Operation)
	assert.Equal(t, "alice", e.Actor)
	assert.Equal(t, OutcomeOK, e.Outcome)
	assert.Equal(t, "UTC", e.Timestamp.Location().String())
	assert.NotEqual(t, e.ID, NewEvent(OpSet, "alice", OutcomeOK).ID)
}

func TestEventWithDoesNotAlias(t *testing.T) {
	base := NewEvent(OpSetScope, "bob", OutcomeOK).With("scope", "bob")
	derived := base.With("keys", 2)

	assert.Len(t, base.Attributes, 1)
	assert.Len(t, derived.Attributes, 2)
	assert.Equal(t, "bob", derived.Attributes["scope"])
}

func TestMulti(t *testing.T) {
	t.Run("fans out in order", func(t *testing.T) {
		var order []string
		a := SinkFunc(func(Event) { order = append(order, "a") })
		b := SinkFunc(func(Event) { order = append(order, "b") })

		Multi(a, nil, b).Emit(NewEvent(OpSet, "", OutcomeOK))

		assert.Equal(t, []string{"a", "b"}, order)
	})

	t.Run("empty is nop", func(t *testing.T) {
		assert.IsType(t, NopSink{}, Multi())
		assert.IsType(t, NopSink{}, Multi(nil, nil))
	})

	t.Run("single sink is returned as is", func(t *testing.T) {
		r := &recorder{}
		assert.Same(t, r, Multi(r).(*recorder))
	})
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, NopSink{}, OrNop(nil))
	r := &recorder{}
	assert.Same(t, r, OrNop(r).(*recorder))
}

func TestAsyncSinkDeliversOnClose(t *testing.T) {
	r := &recorder{}
	s := NewAsyncSink(r, func(o *AsyncOptions) { o.BufferSize = 64 })

	for i := 0; i < 10; i++ {
		s.Emit(NewEvent(OpAddMessage, "alice", OutcomeOK))
	}
	require.NoError(t, s.Close())

	assert.Len(t, r.all(), 10)
	assert.Zero(t, s.Dropped())
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	blocking := SinkFunc(func(Event) {
		once.Do(func() { close(started) })
		<-release
	})

	var dropped []Event
	var mu sync.Mutex
	s := NewAsyncSink(blocking, func(o *AsyncOptions) {
		o.BufferSize = 1
		o.OnDrop = func(e Event) {
			mu.Lock()
			dropped = append(dropped, e)
			mu.Unlock()
		}
	})

	s.Emit(NewEvent(OpSet, "", OutcomeOK))
	<-started // worker holds the first event

	s.Emit(NewEvent(OpSet, "", OutcomeOK)) // fills the buffer
	s.Emit(NewEvent(OpUpdate, "", OutcomeOK))
	s.Emit(NewEvent(OpUpdate, "", OutcomeOK))

	assert.Equal(t, uint64(2), s.Dropped())

	close(release)
	require.NoError(t, s.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dropped, 2)
	assert.Equal(t, OpUpdate, dropped[0].Operation)
}

func TestAsyncSinkEmitAfterClose(t *testing.T) {
	s := NewAsyncSink(nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s.Emit(NewEvent(OpSet, "", OutcomeOK))
	assert.Equal(t, uint64(1), s.Dropped())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelDebug,
		Format: "json",
		Output: &buf,
	})

	sink := NewLogSink(logger)
	sink.Emit(NewEvent(OpAddMessage, "alice", OutcomeDegraded).With("turn", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, slog.LevelWarn.String(), rec["level"])
	assert.Equal(t, "add_message", rec["operation"])
	assert.Equal(t, "alice", rec["actor"])
	assert.Equal(t, "degraded", rec["outcome"])
	assert.EqualValues(t, 3, rec["turn"])
}

func TestLogSinkNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewLogSink(nil).Emit(NewEvent(OpSet, "", OutcomeOK))
	})
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsSink(reg, "meshstate")
	require.NoError(t, err)

	m.Emit(NewEvent(OpAddMessage, "alice", OutcomeOK))
	m.Emit(NewEvent(OpAddMessage, "alice", OutcomeOK))
	m.Emit(NewEvent(OpAddMessage, "alice", OutcomeDegraded))
	m.ObserveDrop(NewEvent(OpSet, "", OutcomeOK))

	assert.InDelta(t, 2, testutil.ToFloat64(m.events.WithLabelValues("add_message", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.events.WithLabelValues("add_message", "degraded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dropped.WithLabelValues("set")), 0)

	again, err := NewMetricsSink(reg, "meshstate")
	require.NoError(t, err)
	again.Emit(NewEvent(OpAddMessage, "alice", OutcomeOK))
	assert.InDelta(t, 3, testutil.ToFloat64(m.events.WithLabelValues("add_message", "ok")), 0)
}
