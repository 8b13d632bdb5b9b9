package state

import (
	"testing"

	"pgregory.net/rapid"
)

func genScope() *rapid.Generator[map[string]any] {
	return rapid.Custom(func(t *rapid.T) map[string]any {
		keys := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,6}`), 0, 5, rapid.ID[string]).Draw(t, "keys")
		m := make(map[string]any, len(keys))
		for _, k := range keys {
			m[k] = rapid.OneOf(
				rapid.Map(rapid.Int(), func(i int) any { return i }),
				rapid.Map(rapid.String(), func(s string) any { return s }),
				rapid.Just[any](map[string]any{"nested": []any{"x"}}),
			).Draw(t, k)
		}
		return m
	})
}

func TestPropertyScopeSnapshotIsolation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		scope := genScope().Draw(t, "scope")
		c := New(nil).SetScope("s", scope)

		snap := c.Scope("s")
		before := len(snap)
		snap["__mutated__"] = true
		for k := range snap {
			if k != "__mutated__" {
				delete(snap, k)
			}
		}

		got := c.Scope("s")
		if len(got) != before {
			t.Fatalf("stored scope changed size: %d != %d", len(got), before)
		}
		if _, ok := got["__mutated__"]; ok {
			t.Fatalf("mutation leaked into stored scope")
		}
	})
}

func TestPropertyCopyIndependence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		scope := genScope().Draw(t, "scope")
		c := New(map[string]any{"s": scope})
		cp := c.Copy()

		for k, v := range cp.Scope("s") {
			if m, ok := v.(map[string]any); ok {
				m["nested"].([]any)[0] = "y"
			}
			cp.Set(k, "overwritten")
		}

		for k, v := range c.Scope("s") {
			if m, ok := v.(map[string]any); ok && m["nested"].([]any)[0] != "x" {
				t.Fatalf("nested value of %q leaked from copy", k)
			}
		}
		if c.Len() != 1 {
			t.Fatalf("copy writes leaked into original: %d keys", c.Len())
		}
	})
}
