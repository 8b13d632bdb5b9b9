package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstate/observe"
)

func TestNewDeepCopiesSeed(t *testing.T) {
	nested := map[string]any{"topic": "pricing"}
	seed := map[string]any{
		"shared": nested,
		"tags":   []any{"a", map[string]any{"b": 1}},
	}

	c := New(seed)
	nested["topic"] = "mutated"
	seed["tags"].([]any)[1].(map[string]any)["b"] = 2
	seed["extra"] = true

	assert.Equal(t, "pricing", c.Scope("shared")["topic"])
	assert.Equal(t, 1, c.Get("tags", nil).([]any)[1].(map[string]any)["b"])
	assert.False(t, c.Has("extra"))
}

func TestNewDeepCopiesTypedContainers(t *testing.T) {
	tags := []int{1, 2}
	labels := map[string]string{"k": "v"}
	limit := 10
	seed := map[string]any{
		"tags":   tags,
		"labels": labels,
		"limit":  &limit,
		"nested": map[string]map[string]int{"scores": {"a": 1}},
	}

	c := New(seed)
	tags[0] = 99
	labels["k"] = "mutated"
	limit = 0
	seed["nested"].(map[string]map[string]int)["scores"]["a"] = 2

	assert.Equal(t, []int{1, 2}, c.Get("tags", nil))
	assert.Equal(t, map[string]string{"k": "v"}, c.Get("labels", nil))
	assert.Equal(t, 10, *c.Get("limit", nil).(*int))
	assert.Equal(t, 1, c.Get("nested", nil).(map[string]map[string]int)["scores"]["a"])
}

func TestNewNilSeed(t *testing.T) {
	c := New(nil)
	assert.Equal(t, 0, c.Len())
	assert.NotNil(t, c.ToMap())
}

func TestGet(t *testing.T) {
	c := New(map[string]any{"present": 1, "nil": nil})

	assert.Equal(t, 1, c.Get("present", 0))
	assert.Nil(t, c.Get("nil", "default"))
	assert.Equal(t, "default", c.Get("missing", "default"))
	assert.Equal(t, 2, c.Len())
}

func TestSetAndUpdateChain(t *testing.T) {
	c := New(nil).
		Set("a", 1).
		Set("a", 2).
		Update(map[string]any{"b": 3, "a": 4})

	assert.Equal(t, 4, c.Get("a", nil))
	assert.Equal(t, 3, c.Get("b", nil))
}

func TestGetScope(t *testing.T) {
	tests := []struct {
		name  string
		seed  map[string]any
		scope string
		def   map[string]any
		want  any
	}{
		{
			name:  "map scope is copied",
			seed:  map[string]any{"s": map[string]any{"k": "v"}},
			scope: "s",
			want:  map[string]any{"k": "v"},
		},
		{
			name:  "non-map value passes through",
			seed:  map[string]any{"s": "plain"},
			scope: "s",
			want:  "plain",
		},
		{
			name:  "absent scope yields default",
			seed:  map[string]any{},
			scope: "s",
			def:   map[string]any{"fallback": true},
			want:  map[string]any{"fallback": true},
		},
		{
			name:  "absent scope with nil default",
			seed:  map[string]any{},
			scope: "s",
			want:  map[string]any(nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.seed)
			assert.Equal(t, tt.want, c.GetScope(tt.scope, tt.def))
		})
	}
}

func TestGetScopeSnapshotIsolation(t *testing.T) {
	c := New(nil).SetScope("shared", map[string]any{"k": "v"})

	snap := c.GetScope("shared", nil).(map[string]any)
	snap["k"] = "changed"
	snap["new"] = 1

	assert.Equal(t, map[string]any{"k": "v"}, c.GetScope("shared", nil))
}

func TestGetScopeNonMapIsSameValue(t *testing.T) {
	list := []string{"x"}
	c := New(nil).Set("s", list)

	got := c.GetScope("s", nil).([]string)
	got[0] = "y"

	assert.Equal(t, "y", list[0])
}

func TestSetScopeStoresShallowCopy(t *testing.T) {
	inner := map[string]any{"deep": 1}
	value := map[string]any{"k": "v", "inner": inner}

	c := New(nil).SetScope("s", value)
	value["k"] = "changed"
	inner["deep"] = 2

	got := c.Scope("s")
	assert.Equal(t, "v", got["k"])
	// only the top level is copied
	assert.Equal(t, 2, got["inner"].(map[string]any)["deep"])
}

func TestSetScopeNil(t *testing.T) {
	c := New(nil).SetScope("s", nil)
	assert.Equal(t, map[string]any{}, c.GetScope("s", nil))
}

func TestScopeHelper(t *testing.T) {
	c := New(map[string]any{"plain": 1})
	assert.Equal(t, map[string]any{}, c.Scope("plain"))
	assert.Equal(t, map[string]any{}, c.Scope("missing"))
}

func TestCopyIsIndependent(t *testing.T) {
	c := New(map[string]any{"shared": map[string]any{"list": []any{1, 2}}})
	cp := c.Copy()

	cp.Scope("shared")["list"].([]any)[0] = 99
	cp.Set("only_copy", true)

	assert.Equal(t, 1, c.Scope("shared")["list"].([]any)[0])
	assert.False(t, c.Has("only_copy"))
	assert.True(t, cp.Has("only_copy"))
}

func TestCopyIsIndependentForTypedContainers(t *testing.T) {
	c := New(map[string]any{
		"tags":   []int{1, 2},
		"labels": map[string]string{"k": "v"},
	})
	cp := c.Copy()

	cp.Get("tags", nil).([]int)[0] = 99
	cp.Get("labels", nil).(map[string]string)["k"] = "via-copy"

	assert.Equal(t, []int{1, 2}, c.Get("tags", nil))
	assert.Equal(t, map[string]string{"k": "v"}, c.Get("labels", nil))
}

func TestToMapIsShallow(t *testing.T) {
	c := New(map[string]any{"a": 1})
	m := c.ToMap()
	m["b"] = 2

	assert.False(t, c.Has("b"))
}

func TestEvents(t *testing.T) {
	var events []observe.Event
	sink := observe.SinkFunc(func(e observe.Event) { events = append(events, e) })

	c := New(nil, func(o *Options) {
		o.Sink = sink
		o.Actor = "researcher"
	})
	c.Set("a", 1).Update(map[string]any{"b": 2}).SetScope("researcher", map[string]any{"x": 1})
	_ = c.Get("a", nil)
	_ = c.GetScope("researcher", nil)

	require.Len(t, events, 3)
	assert.Equal(t, observe.OpSet, events[0].Operation)
	assert.Equal(t, "a", events[0].Attributes["key"])
	assert.Equal(t, observe.OpUpdate, events[1].Operation)
	assert.Equal(t, observe.OpSetScope, events[2].Operation)
	assert.Equal(t, "researcher", events[2].Attributes["scope"])
	for _, e := range events {
		assert.Equal(t, "researcher", e.Actor)
		assert.Equal(t, observe.OutcomeOK, e.Outcome)
	}

	// copies keep reporting to the same sink
	c.Copy().Set("c", 3)
	assert.Len(t, events, 4)
}
