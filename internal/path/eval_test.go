package path

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jacoelho/jpq/internal/provider"
)

func storeDoc() map[string]any {
	return map[string]any{
		"store": map[string]any{
			"book": []any{
				map[string]any{"category": "reference", "author": "Nigel Rees", "price": 8.95},
				map[string]any{"category": "fiction", "author": "Evelyn Waugh", "price": 12.99},
				map[string]any{"category": "fiction", "author": "Herman Melville", "isbn": "0-553-21311-3", "price": 8.99},
			},
			"bicycle": map[string]any{"color": "red", "price": 399.0},
		},
	}
}

func intAtLeast(n int) Predicate {
	return PredicateFunc(func(ctx PredicateContext) (bool, error) {
		v, ok := ctx.Item().(int)
		return ok && v >= n, nil
	})
}

func TestEvaluateValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   any
		chain *Chain
		opts  Option
		preds []Predicate
		want  []any
	}{
		{
			name:  "definite_property",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("bicycle"), Property("color")),
			want:  []any{"red"},
		},
		{
			name:  "root",
			doc:   map[string]any{"a": 1},
			chain: MustChain(Root()),
			want:  []any{map[string]any{"a": 1}},
		},
		{
			name:  "missing_leaf_default_null",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("bicycle"), Property("size")),
			opts:  DefaultPathLeafToNull,
			want:  []any{nil},
		},
		{
			name:  "missing_leaf_skipped",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("bicycle"), Property("size")),
			want:  []any{},
		},
		{
			name:  "multi_property",
			doc:   map[string]any{"a": 1, "b": 2, "c": 3},
			chain: MustChain(Root(), MultiProperty("a", "b")),
			want:  []any{map[string]any{"a": 1, "b": 2}},
		},
		{
			name:  "multi_property_absent_name_omitted",
			doc:   map[string]any{"a": 1, "b": 2, "c": 3},
			chain: MustChain(Root(), MultiProperty("a", "d")),
			want:  []any{map[string]any{"a": 1}},
		},
		{
			name:  "multi_property_absent_name_null",
			doc:   map[string]any{"a": 1},
			chain: MustChain(Root(), MultiProperty("a", "d")),
			opts:  DefaultPathLeafToNull,
			want:  []any{map[string]any{"a": 1, "d": nil}},
		},
		{
			name:  "multi_property_non_leaf",
			doc:   map[string]any{"a": map[string]any{"x": 1}, "b": map[string]any{"x": 2}, "c": map[string]any{"x": 3}},
			chain: MustChain(Root(), MultiProperty("a", "b", "d"), Property("x")),
			want:  []any{1, 2},
		},
		{
			name:  "negative_index",
			doc:   []any{10, 20, 30},
			chain: MustChain(Root(), Index(-1)),
			want:  []any{30},
		},
		{
			name:  "index_out_of_range",
			doc:   []any{10, 20, 30},
			chain: MustChain(Root(), Index(5)),
			want:  []any{},
		},
		{
			name:  "index_out_of_range_required",
			doc:   []any{10, 20, 30},
			chain: MustChain(Root(), Index(5)),
			opts:  RequireProperties,
			want:  []any{},
		},
		{
			name:  "union_index",
			doc:   []any{10, 20, 30},
			chain: MustChain(Root(), Index(2, 0)),
			want:  []any{30, 10},
		},
		{
			name:  "slice",
			doc:   []any{0, 1, 2, 3, 4, 5},
			chain: MustChain(Root(), ArraySlice(Slice{Start: 1, HasStart: true, End: -1, HasEnd: true, Step: 2})),
			want:  []any{1, 3},
		},
		{
			name:  "slice_negative_start",
			doc:   []any{0, 1, 2, 3},
			chain: MustChain(Root(), ArraySlice(Slice{Start: -2, HasStart: true})),
			want:  []any{2, 3},
		},
		{
			name:  "wildcard_over_array",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("book"), Wildcard(), Property("author")),
			want:  []any{"Nigel Rees", "Evelyn Waugh", "Herman Melville"},
		},
		{
			name:  "wildcard_over_map_is_sorted",
			doc:   map[string]any{"b": 2, "a": 1, "c": 3},
			chain: MustChain(Root(), Wildcard()),
			want:  []any{1, 2, 3},
		},
		{
			name:  "wildcard_missing_leaf_skipped",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("book"), Wildcard(), Property("isbn")),
			want:  []any{"0-553-21311-3"},
		},
		{
			name: "deep_scan_pre_order",
			doc: map[string]any{
				"foo": []any{1, 2},
				"a":   map[string]any{"foo": []any{3}},
				"b":   []any{map[string]any{"foo": []any{4, 5}}},
			},
			chain: MustChain(Root(), DeepScan(), Property("foo"), Index(0)),
			want:  []any{1, 3, 4},
		},
		{
			name:  "deep_scan_suppressed",
			doc:   storeDoc(),
			chain: MustChain(Root(), DeepScan(), Property("price")),
			opts:  SuppressExceptions,
			want:  []any{399.0, 8.95, 12.99, 8.99},
		},
		{
			name:  "deep_scan_filter",
			doc:   storeDoc(),
			chain: MustChain(Root(), DeepScan(), Placeholder()),
			preds: []Predicate{PredicateFunc(func(ctx PredicateContext) (bool, error) {
				m, ok := ctx.Item().(map[string]any)
				return ok && m["isbn"] != nil, nil
			})},
			want: []any{
				map[string]any{"category": "fiction", "author": "Herman Melville", "isbn": "0-553-21311-3", "price": 8.99},
			},
		},
		{
			name:  "filter_array",
			doc:   map[string]any{"items": []any{0, 1, 2, 3}},
			chain: MustChain(Root(), Property("items"), Placeholder()),
			preds: []Predicate{intAtLeast(2)},
			want:  []any{2, 3},
		},
		{
			name:  "filter_map_candidate",
			doc:   map[string]any{"item": map[string]any{"a": 1}},
			chain: MustChain(Root(), Property("item"), Placeholder(), Property("a")),
			preds: []Predicate{PredicateFunc(func(PredicateContext) (bool, error) { return true, nil })},
			want:  []any{1},
		},
		{
			name:  "filter_on_scalar_with_indefinite_upstream",
			doc:   map[string]any{"items": []any{1, 2}},
			chain: MustChain(Root(), Property("items"), Wildcard(), Placeholder()),
			preds: []Predicate{PredicateFunc(func(PredicateContext) (bool, error) { return true, nil })},
			want:  []any{},
		},
		{
			name:  "property_on_array_with_indefinite_upstream",
			doc:   map[string]any{"a": []any{[]any{1}}},
			chain: MustChain(Root(), Property("a"), Wildcard(), Property("x")),
			want:  []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, err := tt.chain.Evaluate(tt.doc, Config{Options: tt.opts}, tt.preds...)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got := ctx.Values(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Values() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   any
		chain *Chain
		opts  Option
		cfg   Config
		preds []Predicate
		want  error
	}{
		{
			name:  "required_leaf",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("bicycle"), Property("size")),
			opts:  RequireProperties,
			want:  ErrPathNotFound,
		},
		{
			name:  "required_leaf_under_wildcard",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("book"), Wildcard(), Property("isbn")),
			opts:  RequireProperties,
			want:  ErrPathNotFound,
		},
		{
			name:  "missing_definite_non_leaf",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("car"), Property("color")),
			want:  ErrPathNotFound,
		},
		{
			name:  "property_on_array_with_definite_upstream",
			doc:   map[string]any{"a": []any{1}},
			chain: MustChain(Root(), Property("a"), Property("x")),
			want:  ErrPathNotFound,
		},
		{
			name:  "index_on_map_with_definite_upstream",
			doc:   map[string]any{"a": map[string]any{}},
			chain: MustChain(Root(), Property("a"), Index(0)),
			want:  ErrPathNotFound,
		},
		{
			name:  "required_multi_property",
			doc:   map[string]any{"a": 1},
			chain: MustChain(Root(), MultiProperty("a", "d")),
			opts:  RequireProperties | SuppressExceptions,
			want:  ErrPathNotFound,
		},
		{
			name:  "filter_on_scalar_with_definite_upstream",
			doc:   map[string]any{"a": 1},
			chain: MustChain(Root(), Property("a"), Placeholder()),
			preds: []Predicate{PredicateFunc(func(PredicateContext) (bool, error) { return true, nil })},
			want:  ErrPathNotFound,
		},
		{
			name:  "missing_predicate",
			doc:   map[string]any{"items": []any{}},
			chain: MustChain(Root(), Property("items"), Placeholder()),
			want:  ErrMisuse,
		},
		{
			name:  "predicate_mapping_failure",
			doc:   map[string]any{"items": []any{"text"}},
			chain: MustChain(Root(), Property("items"), Placeholder()),
			preds: []Predicate{PredicateFunc(func(ctx PredicateContext) (bool, error) {
				var n struct{ A int }
				return false, ctx.ItemAs(&n)
			})},
			want: ErrMapping,
		},
		{
			name:  "filter_reconstruction_without_lineage",
			doc:   map[string]any{"items": []any{1}},
			chain: MustChain(Root(), Property("items"), Placeholder()),
			cfg:   Config{Provider: lineageless{provider.Native{}}, ComputeRoot: true},
			preds: []Predicate{PredicateFunc(func(PredicateContext) (bool, error) { return true, nil })},
			want:  ErrMisuse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg.AddOptions(tt.opts)
			_, err := tt.chain.Evaluate(tt.doc, cfg, tt.preds...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Evaluate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// lineageless hides the LineagePreserver implementation of the wrapped provider.
type lineageless struct {
	provider.Provider
}

func TestEvaluateSuppressDowngradesErrors(t *testing.T) {
	t.Parallel()

	chains := []*Chain{
		MustChain(Root(), Property("store"), Property("bicycle"), Property("size")),
		MustChain(Root(), Property("store"), Property("car"), Property("color")),
		MustChain(Root(), Property("store"), Property("book"), Property("x")),
	}
	cfg := Config{Options: SuppressExceptions | RequireProperties}

	for _, c := range chains {
		ctx, err := c.Evaluate(storeDoc(), cfg)
		if err != nil {
			t.Errorf("Evaluate(%s) error = %v", c, err)
			continue
		}
		if len(ctx.Results()) != 0 {
			t.Errorf("Evaluate(%s) results = %v, want none", c, ctx.Values())
		}
	}
}

func TestEvaluatePaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   any
		chain *Chain
		want  []string
	}{
		{
			name:  "wildcard",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("book"), Wildcard(), Property("author")),
			want: []string{
				"$['store']['book'][0]['author']",
				"$['store']['book'][1]['author']",
				"$['store']['book'][2]['author']",
			},
		},
		{
			name:  "negative_index_keeps_requested_index",
			doc:   []any{10, 20, 30},
			chain: MustChain(Root(), Index(-1)),
			want:  []string{"$[-1]"},
		},
		{
			name: "deep_scan",
			doc: map[string]any{
				"foo": []any{1},
				"b":   []any{map[string]any{"foo": []any{4}}},
			},
			chain: MustChain(Root(), DeepScan(), Property("foo"), Index(0)),
			want:  []string{"$['foo'][0]", "$['b'][0]['foo'][0]"},
		},
		{
			name:  "multi_property",
			doc:   map[string]any{"a": 1, "b": 2},
			chain: MustChain(Root(), MultiProperty("a", "b")),
			want:  []string{"$['a', 'b']"},
		},
		{
			name:  "root",
			doc:   map[string]any{},
			chain: MustChain(Root()),
			want:  []string{"$"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, err := tt.chain.Evaluate(tt.doc, Config{})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got := ctx.Paths(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Paths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateValueShaping(t *testing.T) {
	t.Parallel()

	definite := MustChain(Root(), Property("store"), Property("bicycle"), Property("color"))
	missing := MustChain(Root(), Property("store"), Property("bicycle"), Property("size"))
	indefinite := MustChain(Root(), Property("store"), Property("book"), Wildcard(), Property("category"))

	tests := []struct {
		name    string
		chain   *Chain
		opts    Option
		want    any
		wantErr error
	}{
		{name: "definite_single_value", chain: definite, want: "red"},
		{name: "definite_always_list", chain: definite, opts: AlwaysReturnList, want: []any{"red"}},
		{name: "as_path_list", chain: definite, opts: AsPathList, want: []string{"$['store']['bicycle']['color']"}},
		{name: "indefinite_list", chain: indefinite, want: []any{"reference", "fiction", "fiction"}},
		{name: "definite_missing_leaf", chain: missing, wantErr: ErrPathNotFound},
		{name: "definite_missing_leaf_suppressed", chain: missing, opts: SuppressExceptions, want: nil},
		{name: "definite_missing_leaf_default_null", chain: missing, opts: DefaultPathLeafToNull, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, err := tt.chain.Evaluate(storeDoc(), Config{Options: tt.opts})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			got, err := ctx.Value()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Value() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEvaluateRootReconstruction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   any
		chain *Chain
		opts  Option
		preds []Predicate
		want  any
	}{
		{
			name:  "definite_path",
			doc:   storeDoc(),
			chain: MustChain(Root(), Property("store"), Property("book"), Index(0), Property("category")),
			want: map[string]any{
				"store": map[string]any{
					"book": []any{map[string]any{"category": "reference"}},
				},
			},
		},
		{
			name:  "wildcard_first_element",
			doc:   []any{map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3}},
			chain: MustChain(Root(), Wildcard(), Property("a")),
			want:  []any{map[string]any{"a": 1}},
		},
		{
			name:  "missing_property_prunes_branch",
			doc:   map[string]any{"foo": map[string]any{"x": 1}},
			chain: MustChain(Root(), Property("baz")),
			want:  map[string]any{},
		},
		{
			name:  "root_copies_document",
			doc:   map[string]any{"a": []any{1, 2}},
			chain: MustChain(Root()),
			want:  map[string]any{"a": []any{1, 2}},
		},
		{
			name:  "rejecting_filter_prunes_container",
			doc:   map[string]any{"items": []any{map[string]any{"a": 1}}, "other": 1},
			chain: MustChain(Root(), Property("items"), Placeholder()),
			preds: []Predicate{PredicateFunc(func(PredicateContext) (bool, error) { return false, nil })},
			want:  map[string]any{},
		},
		{
			// gaps before a kept index are filled with copies of the kept value
			name:  "filter_keeps_source_indexes",
			doc:   map[string]any{"items": []any{0, 1, 2, 3}},
			chain: MustChain(Root(), Property("items"), Placeholder()),
			preds: []Predicate{intAtLeast(2)},
			want:  map[string]any{"items": []any{2, 2, 2, 3}},
		},
		{
			name:  "filter_map_candidate_at_leaf",
			doc:   map[string]any{"item": map[string]any{"a": 1, "b": 2}},
			chain: MustChain(Root(), Property("item"), Placeholder()),
			preds: []Predicate{PredicateFunc(func(PredicateContext) (bool, error) { return true, nil })},
			want:  map[string]any{"item": map[string]any{"a": 1, "b": 2}},
		},
		{
			name:  "multi_property_mirrors_included_names",
			doc:   map[string]any{"a": 1, "b": 2, "c": 3},
			chain: MustChain(Root(), MultiProperty("a", "d")),
			want:  map[string]any{"a": 1},
		},
		{
			name: "deep_scan_prunes_unmatched_branches",
			doc: map[string]any{
				"a": map[string]any{"foo": 1, "bar": 2},
				"b": map[string]any{"bar": 3},
			},
			chain: MustChain(Root(), DeepScan(), Property("foo")),
			want:  map[string]any{"a": map[string]any{"foo": 1}},
		},
		{
			name:  "scalar_root",
			doc:   "text",
			chain: MustChain(Root(), Property("a")),
			opts:  SuppressExceptions,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{Options: tt.opts, ComputeRoot: true}
			ctx, err := tt.chain.Evaluate(tt.doc, cfg, tt.preds...)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got := ctx.Output(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Output() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEvaluateRootReconstructionDoesNotAlias(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"a": map[string]any{"b": []any{1}}}
	ctx, err := MustChain(Root(), Property("a")).Evaluate(doc, Config{ComputeRoot: true})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	out := ctx.Output().(map[string]any)
	out["a"].(map[string]any)["b"] = "changed"

	if got := doc["a"].(map[string]any)["b"]; !reflect.DeepEqual(got, []any{1}) {
		t.Errorf("source mutated through output: %v", got)
	}
}

func TestEvaluateIntoSharesOutput(t *testing.T) {
	t.Parallel()

	doc := storeDoc()
	first, err := MustChain(Root(), Property("store"), Property("bicycle"), Property("color")).EvaluateInto(doc, nil, Config{})
	if err != nil {
		t.Fatalf("EvaluateInto() error = %v", err)
	}
	second, err := MustChain(Root(), Property("store"), Property("book"), Index(1), Property("author")).EvaluateInto(doc, first.Output(), Config{})
	if err != nil {
		t.Fatalf("EvaluateInto() error = %v", err)
	}

	want := map[string]any{
		"store": map[string]any{
			"bicycle": map[string]any{"color": "red"},
			"book": []any{
				map[string]any{},
				map[string]any{"author": "Evelyn Waugh"},
			},
		},
	}
	if got := second.Output(); !reflect.DeepEqual(got, want) {
		t.Errorf("Output() = %#v, want %#v", got, want)
	}
}
