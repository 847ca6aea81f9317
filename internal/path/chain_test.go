package path

import (
	"errors"
	"testing"
)

func TestNewChainValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		segs []Segment
	}{
		{name: "empty", segs: nil},
		{name: "missing_root", segs: []Segment{Property("a")}},
		{name: "root_twice", segs: []Segment{Root(), Root()}},
		{name: "property_without_name", segs: []Segment{Root(), {Kind: KindProperty}}},
		{name: "index_without_indexes", segs: []Segment{Root(), Index()}},
		{name: "negative_step", segs: []Segment{Root(), ArraySlice(Slice{Step: -1})}},
		{name: "trailing_deep_scan", segs: []Segment{Root(), DeepScan()}},
		{name: "double_deep_scan", segs: []Segment{Root(), DeepScan(), DeepScan(), Property("a")}},
		{name: "deep_scan_function", segs: []Segment{Root(), DeepScan(), Function("length")}},
		{name: "function_not_last", segs: []Segment{Root(), Function("length"), Property("a")}},
		{name: "unknown_function", segs: []Segment{Root(), Function("nope")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewChain(tt.segs...); !errors.Is(err, ErrMisuse) {
				t.Errorf("NewChain() error = %v, want %v", err, ErrMisuse)
			}
		})
	}
}

func TestChainDefiniteness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		chain    *Chain
		definite bool
		upstream []bool
	}{
		{
			name:     "root_only",
			chain:    MustChain(Root()),
			definite: true,
			upstream: []bool{true},
		},
		{
			name:     "properties_and_index",
			chain:    MustChain(Root(), Property("store"), Property("book"), Index(0)),
			definite: true,
			upstream: []bool{true, true, true, true},
		},
		{
			name:     "wildcard_breaks_upstream",
			chain:    MustChain(Root(), Property("book"), Wildcard(), Property("author")),
			definite: false,
			upstream: []bool{true, true, true, false},
		},
		{
			name:     "union_index",
			chain:    MustChain(Root(), Index(0, 1), Property("a")),
			definite: false,
			upstream: []bool{true, true, false},
		},
		{
			name:     "multi_property",
			chain:    MustChain(Root(), MultiProperty("a", "b")),
			definite: false,
			upstream: []bool{true, true},
		},
		{
			name:     "deep_scan",
			chain:    MustChain(Root(), DeepScan(), Property("a")),
			definite: false,
			upstream: []bool{true, true, false},
		},
		{
			name:     "filter",
			chain:    MustChain(Root(), Property("items"), Placeholder()),
			definite: false,
			upstream: []bool{true, true, true},
		},
		{
			name:     "function_after_definite",
			chain:    MustChain(Root(), Property("nums"), Function("length")),
			definite: true,
			upstream: []bool{true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.chain.IsPathDefinite(); got != tt.definite {
				t.Errorf("IsPathDefinite() = %v, want %v", got, tt.definite)
			}
			for i, want := range tt.upstream {
				if got := tt.chain.IsUpstreamDefinite(i); got != want {
					t.Errorf("IsUpstreamDefinite(%d) = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestChainString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		chain *Chain
		want  string
	}{
		{
			name:  "properties",
			chain: MustChain(Root(), Property("store"), Property("book")),
			want:  "$['store']['book']",
		},
		{
			name:  "multi_property_and_union",
			chain: MustChain(Root(), MultiProperty("a", "b"), Index(0, -1)),
			want:  "$['a', 'b'][0,-1]",
		},
		{
			name:  "slice_and_wildcard",
			chain: MustChain(Root(), ArraySlice(Slice{Start: 1, HasStart: true, Step: 2}), Wildcard()),
			want:  "$[1::2][*]",
		},
		{
			name:  "deep_scan_and_placeholder",
			chain: MustChain(Root(), DeepScan(), Property("book"), Placeholder()),
			want:  "$..['book'][?]",
		},
		{
			name:  "function",
			chain: MustChain(Root(), Property("s"), Function("concat", Arg{Raw: "'x'", Literal: "x"})),
			want:  "$['s'].concat('x')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.chain.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainPlaceholders(t *testing.T) {
	t.Parallel()

	accept := PredicateFunc(func(PredicateContext) (bool, error) { return true, nil })
	c := MustChain(Root(), Placeholder(), Filter(accept, "@.a"), Placeholder())

	if got := c.Placeholders(); got != 2 {
		t.Fatalf("Placeholders() = %d, want 2", got)
	}
	if got := c.Segment(3).Placeholder; got != 1 {
		t.Errorf("Segment(3).Placeholder = %d, want 1", got)
	}
	if !c.HasFilter() {
		t.Error("HasFilter() = false, want true")
	}
}

func TestChainNextPastLeafPanics(t *testing.T) {
	t.Parallel()

	c := MustChain(Root(), Property("a"))
	if got := c.Next(0); got != 1 {
		t.Fatalf("Next(0) = %d, want 1", got)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrMisuse) {
			t.Errorf("Next(leaf) panic = %v, want %v", r, ErrMisuse)
		}
	}()
	c.Next(1)
}

func TestChainEqual(t *testing.T) {
	t.Parallel()

	a := MustChain(Root(), Property("a"), Index(0))
	b := MustChain(Root(), Property("a"), Index(0))
	c := MustChain(Root(), Property("a"), Index(1))

	if !a.Equal(b) {
		t.Error("Equal() = false for identical chains")
	}
	if a.Equal(c) {
		t.Error("Equal() = true for different chains")
	}
	if a.Equal(nil) {
		t.Error("Equal(nil) = true")
	}
}
