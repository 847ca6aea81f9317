package path

import (
	"strconv"
	"strings"
)

// Kind identifies what a segment selects.
type Kind uint8

const (
	KindRoot Kind = iota
	KindProperty
	KindMultiProperty
	KindWildcard
	KindArrayIndex
	KindArraySlice
	KindDeepScan
	KindFilter
	KindFunction
)

var kindNames = [...]string{
	KindRoot:          "root",
	KindProperty:      "property",
	KindMultiProperty: "multi-property",
	KindWildcard:      "wildcard",
	KindArrayIndex:    "array-index",
	KindArraySlice:    "array-slice",
	KindDeepScan:      "deep-scan",
	KindFilter:        "filter",
	KindFunction:      "function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Slice bounds; a missing bound is open.
type Slice struct {
	Start, End       int
	HasStart, HasEnd bool
	Step             int
}

// Arg is a path function argument: a literal value or a path evaluated
// against the root ($) or the current candidate (@).
type Arg struct {
	Raw      string
	Literal  any
	Path     *Chain
	Relative bool
}

// Segment is one compiled unit of a path expression.
type Segment struct {
	Kind    Kind
	Names   []string // Property, MultiProperty
	Indexes []int    // ArrayIndex
	Slice   Slice    // ArraySlice

	// Filter: an inline predicate, or nil for a [?] placeholder bound to
	// the caller predicate at position Placeholder.
	Predicate   Predicate
	Expr        string
	Placeholder int

	Func string // Function
	Args []Arg
}

// Root is the $ segment every chain starts with.
func Root() Segment { return Segment{Kind: KindRoot} }

// Property selects one object member.
func Property(name string) Segment {
	return Segment{Kind: KindProperty, Names: []string{name}}
}

// MultiProperty selects several names; a single name degrades to Property.
func MultiProperty(names ...string) Segment {
	if len(names) == 1 {
		return Property(names[0])
	}
	return Segment{Kind: KindMultiProperty, Names: names}
}

// Wildcard selects every member of an object or element of an array.
func Wildcard() Segment { return Segment{Kind: KindWildcard} }

// Index selects array positions; negative positions count from the end.
func Index(indexes ...int) Segment {
	return Segment{Kind: KindArrayIndex, Indexes: indexes}
}

// ArraySlice selects a [from:to:step] range, with step defaulting to 1.
func ArraySlice(s Slice) Segment {
	if s.Step == 0 {
		s.Step = 1
	}
	return Segment{Kind: KindArraySlice, Slice: s}
}

// DeepScan applies the next segment to every container below the current one.
func DeepScan() Segment { return Segment{Kind: KindDeepScan} }

// Filter wraps an inline predicate; expr is used for rendering only.
func Filter(p Predicate, expr string) Segment {
	return Segment{Kind: KindFilter, Predicate: p, Expr: expr}
}

// Placeholder is a [?] filter bound to a caller-supplied predicate.
func Placeholder() Segment {
	return Segment{Kind: KindFilter}
}

// Function applies the named path function to the upstream result.
func Function(name string, args ...Arg) Segment {
	return Segment{Kind: KindFunction, Func: name, Args: args}
}

// TokenDefinite reports whether the segment selects at most one location.
func (s Segment) TokenDefinite() bool {
	switch s.Kind {
	case KindRoot, KindProperty, KindFunction:
		return true
	case KindArrayIndex:
		return len(s.Indexes) == 1
	default:
		return false
	}
}

// String renders the path fragment of the segment.
func (s Segment) String() string {
	var b strings.Builder
	switch s.Kind {
	case KindRoot:
		b.WriteByte('$')
	case KindProperty, KindMultiProperty:
		b.WriteByte('[')
		for i, name := range s.Names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("'" + name + "'")
		}
		b.WriteByte(']')
	case KindWildcard:
		b.WriteString("[*]")
	case KindArrayIndex:
		b.WriteByte('[')
		for i, idx := range s.Indexes {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(idx))
		}
		b.WriteByte(']')
	case KindArraySlice:
		b.WriteByte('[')
		if s.Slice.HasStart {
			b.WriteString(strconv.Itoa(s.Slice.Start))
		}
		b.WriteByte(':')
		if s.Slice.HasEnd {
			b.WriteString(strconv.Itoa(s.Slice.End))
		}
		if s.Slice.Step != 1 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(s.Slice.Step))
		}
		b.WriteByte(']')
	case KindDeepScan:
		b.WriteString("..")
	case KindFilter:
		if s.Predicate == nil {
			b.WriteString("[?]")
		} else {
			b.WriteString("[?(" + s.Expr + ")]")
		}
	case KindFunction:
		b.WriteString("." + s.Func + "(")
		for i, arg := range s.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.Raw)
		}
		b.WriteByte(')')
	}
	return b.String()
}
