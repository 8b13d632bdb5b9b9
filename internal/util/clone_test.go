package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepCopyMap(t *testing.T) {
	orig := map[string]any{
		"scope": map[string]any{"k": "v"},
		"list":  []any{map[string]any{"n": 1}},
		"names": []string{"a"},
		"rows":  []map[string]any{{"x": 1}},
	}

	cp := DeepCopyMap(orig)
	assert.Equal(t, orig, cp)

	cp["scope"].(map[string]any)["k"] = "changed"
	cp["list"].([]any)[0].(map[string]any)["n"] = 2
	cp["names"].([]string)[0] = "b"
	cp["rows"].([]map[string]any)[0]["x"] = 2

	assert.Equal(t, "v", orig["scope"].(map[string]any)["k"])
	assert.Equal(t, 1, orig["list"].([]any)[0].(map[string]any)["n"])
	assert.Equal(t, "a", orig["names"].([]string)[0])
	assert.Equal(t, 1, orig["rows"].([]map[string]any)[0]["x"])
}

func TestDeepCopyMap_Nil(t *testing.T) {
	assert.Nil(t, DeepCopyMap(nil))
	assert.Nil(t, ShallowCopyMap(nil))
}

func TestShallowCopyMap(t *testing.T) {
	inner := map[string]any{"k": "v"}
	orig := map[string]any{"inner": inner, "n": 1}

	cp := ShallowCopyMap(orig)
	cp["n"] = 2
	cp["inner"].(map[string]any)["k"] = "shared"

	assert.Equal(t, 1, orig["n"])
	assert.Equal(t, "shared", inner["k"])
}

type reply struct {
	ID     string
	secret string
	Tags   []string
}

func TestDeepCopy_TypedContainers(t *testing.T) {
	ints := []int{1, 2}
	floats := [2]float64{1.5, 2.5}
	strs := map[string]string{"k": "v"}
	nested := map[string][]int{"a": {1}}

	cp := DeepCopy(map[string]any{"ints": ints, "floats": floats, "strs": strs, "nested": nested}).(map[string]any)
	ints[0] = 99
	strs["k"] = "mutated"
	nested["a"][0] = 99

	assert.Equal(t, []int{1, 2}, cp["ints"])
	assert.Equal(t, [2]float64{1.5, 2.5}, cp["floats"])
	assert.Equal(t, map[string]string{"k": "v"}, cp["strs"])
	assert.Equal(t, map[string][]int{"a": {1}}, cp["nested"])
}

func TestDeepCopy_Pointers(t *testing.T) {
	n := 1
	m := map[string]any{"a": &n, "b": &n}

	cp := DeepCopyMap(m)
	n = 2

	a := cp["a"].(*int)
	assert.Equal(t, 1, *a)
	assert.Same(t, a, cp["b"].(*int))
}

func TestDeepCopy_Cycle(t *testing.T) {
	m := map[string]any{"name": "root"}
	m["self"] = m

	cp := DeepCopyMap(m)
	cp["name"] = "copy"

	assert.Equal(t, "root", m["name"])
	assert.Equal(t, "copy", cp["self"].(map[string]any)["name"])
}

func TestDeepCopy_StructsAreOpaque(t *testing.T) {
	r := reply{ID: "msg_1", secret: "raw", Tags: []string{"x"}}

	cp := DeepCopy(r).(reply)
	assert.Equal(t, "raw", cp.secret)

	pcp := DeepCopy(&r).(*reply)
	assert.NotSame(t, &r, pcp)
	assert.Equal(t, "raw", pcp.secret)
}

func TestStringKeyedMap(t *testing.T) {
	type label string
	src := map[label]int{"a": 1}

	m, ok := StringKeyedMap(src)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, m)

	m, ok = StringKeyedMap(map[string][]int{"xs": {1}})
	require.True(t, ok)
	assert.Equal(t, map[string]any{"xs": []int{1}}, m)

	_, ok = StringKeyedMap(map[int]string{1: "a"})
	assert.False(t, ok)
	_, ok = StringKeyedMap("not a map")
	assert.False(t, ok)
}
