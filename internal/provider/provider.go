// Package provider defines the document capability the path engine works
// through. The engine never inspects or mutates a document directly, so any
// tree-shaped representation can be queried by supplying a Provider.
package provider

// Undefined is returned by lookups that find nothing. It is distinct from a
// present value that happens to be nil.
var Undefined any = undefined{}

type undefined struct{}

func (undefined) String() string { return "undefined" }

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Provider exposes inspection and mutation of a document.
//
// Mutators return the container to use afterwards: implementations backed by
// Go slices may re-allocate on growth, so callers must keep the returned value.
type Provider interface {
	IsMap(v any) bool
	IsArray(v any) bool

	// Keys returns map keys in provider order.
	Keys(m any) []string
	// Property returns Undefined when m is not a map or has no such key.
	Property(m any, key string) any
	SetProperty(m any, key string, v any) any
	// RemoveProperty deletes a map key (string) or an array index (int).
	// Array removal shifts later elements down.
	RemoveProperty(c any, key any) any

	// Index returns Undefined when a is not an array or i is out of range.
	Index(a any, i int) any
	// SetIndex replaces element i, appending when i == Len(a).
	SetIndex(a any, i int, v any) any

	// Len is the number of entries of a map or array, 0 otherwise.
	Len(c any) int

	NewMap() any
	NewArray() any

	// Copy returns a value that shares no mutable state with v.
	Copy(v any) any
}

// LineagePreserver is implemented by providers that can identify the key or
// index an element was reached through after filtering. Root reconstruction
// through filter segments requires it.
type LineagePreserver interface {
	PreservesLineage() bool
}

// PreservesLineage reports whether p declares lineage support.
func PreservesLineage(p Provider) bool {
	lp, ok := p.(LineagePreserver)
	return ok && lp.PreservesLineage()
}
