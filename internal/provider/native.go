package provider

import (
	"maps"
	"slices"
)

// Native works on the shapes produced by encoding/json and goccy/go-yaml when
// decoding into any: map[string]any, []any and scalars.
type Native struct{}

var (
	_ Provider         = Native{}
	_ LineagePreserver = Native{}
)

func (Native) IsMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func (Native) IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// Keys are sorted so that wildcard and deep-scan order is deterministic.
func (Native) Keys(m any) []string {
	obj, ok := m.(map[string]any)
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(obj))
}

func (Native) Property(m any, key string) any {
	obj, ok := m.(map[string]any)
	if !ok {
		return Undefined
	}
	v, exists := obj[key]
	if !exists {
		return Undefined
	}
	return v
}

func (Native) SetProperty(m any, key string, v any) any {
	obj, ok := m.(map[string]any)
	if !ok {
		return m
	}
	if obj == nil {
		obj = make(map[string]any)
	}
	obj[key] = v
	return obj
}

func (Native) RemoveProperty(c any, key any) any {
	switch container := c.(type) {
	case map[string]any:
		if k, ok := key.(string); ok {
			delete(container, k)
		}
		return container
	case []any:
		i, ok := key.(int)
		if !ok || i < 0 || i >= len(container) {
			return container
		}
		return slices.Delete(container, i, i+1)
	}
	return c
}

func (Native) Index(a any, i int) any {
	arr, ok := a.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Undefined
	}
	return arr[i]
}

// SetIndex grows the array with nils when i is past the end.
func (Native) SetIndex(a any, i int, v any) any {
	arr, ok := a.([]any)
	if !ok || i < 0 {
		return a
	}
	if i < len(arr) {
		arr[i] = v
		return arr
	}
	for len(arr) < i {
		arr = append(arr, nil)
	}
	return append(arr, v)
}

func (Native) Len(c any) int {
	switch container := c.(type) {
	case map[string]any:
		return len(container)
	case []any:
		return len(container)
	}
	return 0
}

func (Native) NewMap() any {
	return make(map[string]any)
}

func (Native) NewArray() any {
	return make([]any, 0)
}

// Copy deep-copies maps and arrays; scalars are immutable and returned as is.
func (n Native) Copy(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, child := range value {
			out[k] = n.Copy(child)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, child := range value {
			out[i] = n.Copy(child)
		}
		return out
	}
	return v
}

func (Native) PreservesLineage() bool { return true }
