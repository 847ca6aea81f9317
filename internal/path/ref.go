package path

import (
	"cmp"
	"slices"

	"github.com/jacoelho/jpq/internal/provider"
)

type refKind uint8

const (
	refNoop refKind = iota
	refRoot
	refProperty
	refMultiProperty
	refIndex
)

// Ref points at a location in the source document so it can be updated
// after evaluation. References resolve their container through the parent
// reference at operation time, and write containers that were re-allocated
// back up the chain.
type Ref struct {
	kind   refKind
	p      provider.Provider
	parent *Ref
	holder *any
	key    string
	keys   []string
	index  int
}

// NoRef is used by read-only evaluations.
var NoRef = &Ref{kind: refNoop}

// RootRef points at the document stored in holder.
func RootRef(p provider.Provider, holder *any) *Ref {
	return &Ref{kind: refRoot, p: p, holder: holder}
}

func (r *Ref) propertyRef(key string) *Ref {
	if r.kind == refNoop {
		return NoRef
	}
	return &Ref{kind: refProperty, p: r.p, parent: r, key: key}
}

func (r *Ref) multiPropertyRef(keys []string) *Ref {
	if r.kind == refNoop {
		return NoRef
	}
	return &Ref{kind: refMultiProperty, p: r.p, parent: r, keys: keys}
}

func (r *Ref) indexRef(i int) *Ref {
	if r.kind == refNoop {
		return NoRef
	}
	return &Ref{kind: refIndex, p: r.p, parent: r, index: i}
}

// Get returns the current value at the location, or provider.Undefined.
func (r *Ref) Get() any {
	switch r.kind {
	case refRoot:
		return *r.holder
	case refProperty:
		return r.p.Property(r.parent.Get(), r.key)
	case refMultiProperty:
		container := r.parent.Get()
		merged := r.p.NewMap()
		for _, k := range r.keys {
			if v := r.p.Property(container, k); !provider.IsUndefined(v) {
				merged = r.p.SetProperty(merged, k, v)
			}
		}
		return merged
	case refIndex:
		return r.p.Index(r.parent.Get(), r.index)
	}
	return provider.Undefined
}

// Set replaces the value at the location.
func (r *Ref) Set(v any) error {
	switch r.kind {
	case refNoop:
		return nil
	case refRoot:
		*r.holder = v
		return nil
	case refProperty:
		return r.setProperties([]string{r.key}, func(any) any { return v })
	case refMultiProperty:
		return r.setProperties(r.keys, func(any) any { return v })
	case refIndex:
		container := r.parent.Get()
		if !r.p.IsArray(container) {
			return invalidModification("index %d: parent is not an array", r.index)
		}
		return r.parent.Set(r.p.SetIndex(container, r.index, v))
	}
	return nil
}

func (r *Ref) setProperties(keys []string, fn func(any) any) error {
	container := r.parent.Get()
	if !r.p.IsMap(container) {
		return invalidModification("property %v: parent is not an object", keys)
	}
	for _, k := range keys {
		current := r.p.Property(container, k)
		if r.kind == refMultiProperty && provider.IsUndefined(current) {
			continue
		}
		container = r.p.SetProperty(container, k, fn(current))
	}
	return r.parent.Set(container)
}

// Convert replaces the value at the location with fn applied to it.
func (r *Ref) Convert(fn func(any) any) error {
	switch r.kind {
	case refNoop:
		return nil
	case refProperty:
		return r.setProperties([]string{r.key}, fn)
	case refMultiProperty:
		return r.setProperties(r.keys, fn)
	}
	return r.Set(fn(r.Get()))
}

// Delete removes the location from its parent container.
func (r *Ref) Delete() error {
	switch r.kind {
	case refNoop:
		return nil
	case refRoot:
		return invalidModification("the root document cannot be deleted")
	case refProperty, refMultiProperty:
		container := r.parent.Get()
		if !r.p.IsMap(container) {
			return invalidModification("delete: parent is not an object")
		}
		keys := r.keys
		if r.kind == refProperty {
			keys = []string{r.key}
		}
		for _, k := range keys {
			container = r.p.RemoveProperty(container, k)
		}
		return r.parent.Set(container)
	case refIndex:
		container := r.parent.Get()
		if !r.p.IsArray(container) {
			return invalidModification("delete index %d: parent is not an array", r.index)
		}
		return r.parent.Set(r.p.RemoveProperty(container, r.index))
	}
	return nil
}

// Add appends v to the array at the location.
func (r *Ref) Add(v any) error {
	if r.kind == refNoop {
		return nil
	}
	if r.kind == refMultiProperty {
		return invalidModification("add is not supported on multi-property locations")
	}
	target := r.Get()
	if !r.p.IsArray(target) {
		return invalidModification("can only add to an array")
	}
	return r.Set(r.p.SetIndex(target, r.p.Len(target), v))
}

// Put sets key on the object at the location.
func (r *Ref) Put(key string, v any) error {
	if r.kind == refNoop {
		return nil
	}
	if r.kind == refMultiProperty {
		return invalidModification("put is not supported on multi-property locations")
	}
	target := r.Get()
	if !r.p.IsMap(target) {
		return invalidModification("can only put %q into an object", key)
	}
	return r.Set(r.p.SetProperty(target, key, v))
}

// RenameKey moves the value of oldKey to newKey on the object at the location.
func (r *Ref) RenameKey(oldKey, newKey string) error {
	if r.kind == refNoop {
		return nil
	}
	if r.kind == refMultiProperty {
		return invalidModification("rename is not supported on multi-property locations")
	}
	target := r.Get()
	if !r.p.IsMap(target) {
		return invalidModification("can only rename keys of an object")
	}
	v := r.p.Property(target, oldKey)
	if provider.IsUndefined(v) {
		return invalidModification("no key %q to rename", oldKey)
	}
	target = r.p.RemoveProperty(target, oldKey)
	return r.Set(r.p.SetProperty(target, newKey, v))
}

// SortForDelete orders refs so that removing a location never moves one
// still to be removed: deeper locations come first, and within a depth
// non-index locations keep their order ahead of index locations sorted by
// descending index.
func SortForDelete(refs []*Ref) {
	slices.SortStableFunc(refs, func(a, b *Ref) int {
		if c := cmp.Compare(b.depth(), a.depth()); c != 0 {
			return c
		}
		ai, bi := a.kind == refIndex, b.kind == refIndex
		switch {
		case ai && bi:
			return cmp.Compare(b.index, a.index)
		case ai:
			return 1
		case bi:
			return -1
		}
		return 0
	})
}

func (r *Ref) depth() int {
	n := 0
	for p := r.parent; p != nil; p = p.parent {
		n++
	}
	return n
}
