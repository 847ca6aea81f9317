package path

import (
	"slices"
	"strings"
	"sync"
)

// Chain is an immutable, compiled sequence of segments. Segment 0 is the
// root and the last segment is the leaf. A Chain may be evaluated from many
// goroutines at once; all per-evaluation state lives in EvalContext.
type Chain struct {
	segs         []Segment
	placeholders int

	upstreamOnce sync.Once
	upstream     []bool

	definiteOnce sync.Once
	definite     bool
}

// NewChain validates segs and takes a copy of them.
func NewChain(segs ...Segment) (*Chain, error) {
	if len(segs) == 0 {
		return nil, misuse("empty chain")
	}
	if segs[0].Kind != KindRoot {
		return nil, misuse("chain must start with a root segment, got %s", segs[0].Kind)
	}

	c := &Chain{segs: slices.Clone(segs)}
	last := len(c.segs) - 1

	for i := range c.segs {
		seg := &c.segs[i]
		switch seg.Kind {
		case KindRoot:
			if i != 0 {
				return nil, misuse("root segment at position %d", i)
			}
		case KindProperty, KindMultiProperty:
			if len(seg.Names) == 0 {
				return nil, misuse("property segment without names at position %d", i)
			}
		case KindArrayIndex:
			if len(seg.Indexes) == 0 {
				return nil, misuse("index segment without indexes at position %d", i)
			}
		case KindArraySlice:
			if seg.Slice.Step <= 0 {
				return nil, misuse("slice step must be positive at position %d", i)
			}
		case KindDeepScan:
			if i == last {
				return nil, misuse("deep scan cannot be the last segment")
			}
			switch c.segs[i+1].Kind {
			case KindDeepScan:
				return nil, misuse("consecutive deep scans at position %d", i)
			case KindFunction:
				return nil, misuse("deep scan cannot be followed by a function")
			}
		case KindFilter:
			if seg.Predicate == nil {
				seg.Placeholder = c.placeholders
				c.placeholders++
			}
		case KindFunction:
			if i != last {
				return nil, misuse("function %s() must be the last segment", seg.Func)
			}
			if !IsFunction(seg.Func) {
				return nil, misuse("unknown function %s()", seg.Func)
			}
		}
	}

	return c, nil
}

// MustChain is NewChain for statically known chains; it panics on error.
func MustChain(segs ...Segment) *Chain {
	c, err := NewChain(segs...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Chain) Len() int { return len(c.segs) }

func (c *Chain) Segment(i int) Segment { return c.segs[i] }

func (c *Chain) IsLeaf(i int) bool { return i == len(c.segs)-1 }

// Next returns the successor index. Advancing past the leaf is a programming
// error and panics.
func (c *Chain) Next(i int) int {
	if c.IsLeaf(i) {
		panic(misuse("segment %d (%s) is the leaf and has no successor", i, c.segs[i]))
	}
	return i + 1
}

// Placeholders is the number of [?] segments expecting caller predicates.
func (c *Chain) Placeholders() int { return c.placeholders }

// HasFilter reports whether any segment is a filter.
func (c *Chain) HasFilter() bool {
	return slices.ContainsFunc(c.segs, func(s Segment) bool { return s.Kind == KindFilter })
}

// IsFunctionPath reports whether the leaf is a function call.
func (c *Chain) IsFunctionPath() bool {
	return c.segs[len(c.segs)-1].Kind == KindFunction
}

// IsUpstreamDefinite reports whether every segment before i is definite.
func (c *Chain) IsUpstreamDefinite(i int) bool {
	c.upstreamOnce.Do(func() {
		c.upstream = make([]bool, len(c.segs))
		c.upstream[0] = true
		for j := 1; j < len(c.segs); j++ {
			c.upstream[j] = c.upstream[j-1] && c.segs[j-1].TokenDefinite()
		}
	})
	return c.upstream[i]
}

// IsPathDefinite reports whether the whole chain resolves to at most one location.
func (c *Chain) IsPathDefinite() bool {
	c.definiteOnce.Do(func() {
		c.definite = !slices.ContainsFunc(c.segs, func(s Segment) bool { return !s.TokenDefinite() })
	})
	return c.definite
}

// fullyDefinite is the classifier used for absence decisions at segment i.
func (c *Chain) fullyDefinite(i int) bool {
	return c.IsUpstreamDefinite(i) && c.segs[i].TokenDefinite()
}

// Prefix returns a new chain made of the first n segments.
func (c *Chain) Prefix(n int) *Chain {
	return MustChain(c.segs[:n]...)
}

func (c *Chain) String() string {
	var b strings.Builder
	for _, seg := range c.segs {
		b.WriteString(seg.String())
	}
	return b.String()
}

// Equal compares chains by their rendered paths.
func (c *Chain) Equal(other *Chain) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.String() == other.String()
}
