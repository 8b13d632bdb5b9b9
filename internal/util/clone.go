package util

import "reflect"

// DeepCopy returns a copy of v that shares no mutable container with it.
// Maps, slices, arrays and pointers of any type are copied recursively, and
// shared or cyclic maps and pointers are copied once. Struct values (SDK
// replies, time.Time) are opaque: they are copied by assignment, so their
// unexported state survives but containers reachable through their fields are
// shared. Channels and funcs are shared.
func DeepCopy(v any) any {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case string, bool, int, int64, float64:
		return t
	}
	c := copier{seen: make(map[seenKey]reflect.Value)}
	return c.copy(reflect.ValueOf(v)).Interface()
}

// DeepCopyMap is DeepCopy specialised for string-keyed maps. A nil map stays nil.
func DeepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := DeepCopy(m).(map[string]any)
	return out
}

// ShallowCopyMap copies the top level of m only.
func ShallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StringKeyedMap converts any map whose key kind is string into a
// map[string]any holding deep copies of the values.
func StringKeyedMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return DeepCopyMap(m), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	if rv.IsNil() {
		return nil, true
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = DeepCopy(iter.Value().Interface())
	}
	return out, true
}

type seenKey struct {
	typ reflect.Type
	ptr uintptr
}

type copier struct {
	seen map[seenKey]reflect.Value
}

func (c *copier) copy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(c.copy(v.Elem()))
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		key := seenKey{v.Type(), v.Pointer()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.copy(iter.Value()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		if isScalar(v.Type().Elem().Kind()) {
			reflect.Copy(out, v)
			return out
		}
		for i := range v.Len() {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		key := seenKey{v.Type(), v.Pointer()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.New(v.Type().Elem())
		c.seen[key] = out
		out.Elem().Set(c.copy(v.Elem()))
		return out

	default:
		return v
	}
}

func isScalar(k reflect.Kind) bool {
	return (k >= reflect.Bool && k <= reflect.Complex128) || k == reflect.String
}
