package path

import (
	"context"
	"log/slog"

	"github.com/jacoelho/jpq/internal/provider"
)

// Result is a single match.
type Result struct {
	Path  string // rendered path, e.g. $['store']['book'][0]
	Ref   *Ref   // NoRef unless the evaluation was opened for update
	Value any
}

// EvalContext holds the state of one evaluation. It is created per call and
// must not be shared between goroutines.
type EvalContext struct {
	chain     *Chain
	cfg       Config
	p         provider.Provider
	root      any
	holder    *any
	preds     []Predicate
	forUpdate bool

	results []Result
	output  any
}

// Evaluate runs the chain against root. In root-reconstruction mode a fresh
// output document is allocated.
func (c *Chain) Evaluate(root any, cfg Config, preds ...Predicate) (*EvalContext, error) {
	ctx := c.newContext(root, cfg, preds)
	var out any
	if ctx.cfg.ComputeRoot {
		out = ctx.containerFor(root)
	}
	return ctx, ctx.run(out)
}

// EvaluateInto is Evaluate in root-reconstruction mode that keeps growing an
// existing output document, so several paths can share one result.
func (c *Chain) EvaluateInto(root, output any, cfg Config, preds ...Predicate) (*EvalContext, error) {
	ctx := c.newContext(root, cfg.WithComputeRoot(true), preds)
	if output == nil {
		output = ctx.containerFor(root)
	}
	return ctx, ctx.run(output)
}

// EvaluateForUpdate materializes a reference for every result so the
// document stored in holder can be modified afterwards.
func (c *Chain) EvaluateForUpdate(holder *any, cfg Config, preds ...Predicate) (*EvalContext, error) {
	ctx := c.newContext(*holder, cfg.WithComputeRoot(false), preds)
	ctx.holder = holder
	ctx.forUpdate = true
	return ctx, ctx.run(nil)
}

func (c *Chain) newContext(root any, cfg Config, preds []Predicate) *EvalContext {
	cfg = cfg.withDefaults()
	return &EvalContext{
		chain: c,
		cfg:   cfg,
		p:     cfg.Provider,
		root:  root,
		preds: preds,
	}
}

func (ctx *EvalContext) run(out any) error {
	if len(ctx.preds) < ctx.chain.Placeholders() {
		return misuse("path %s expects %d predicates, got %d", ctx.chain, ctx.chain.Placeholders(), len(ctx.preds))
	}
	if ctx.cfg.ComputeRoot && ctx.chain.HasFilter() && !provider.PreservesLineage(ctx.p) {
		return misuse("root reconstruction through filter %s requires a lineage preserving provider", ctx.chain)
	}

	if ctx.chain.IsFunctionPath() && !ctx.chain.IsUpstreamDefinite(ctx.chain.Len()-1) {
		ctx.output = out
		return ctx.aggregate()
	}

	rootRef := NoRef
	if ctx.forUpdate {
		rootRef = RootRef(ctx.p, ctx.holder)
	}

	out, err := ctx.eval(0, "", rootRef, ctx.root, out)
	ctx.output = out
	return err
}

// aggregate evaluates everything before the leaf function and applies the
// function once to the array of matches.
func (ctx *EvalContext) aggregate() error {
	last := ctx.chain.Len() - 1
	sub := ctx.chain.Prefix(last).newContext(ctx.root, ctx.cfg.WithComputeRoot(false), ctx.preds)
	if err := sub.run(nil); err != nil {
		return err
	}

	values := ctx.p.NewArray()
	for i, r := range sub.results {
		values = ctx.p.SetIndex(values, i, r.Value)
	}

	seg := ctx.chain.segs[last]
	v, err := ctx.applyFunction(seg, values)
	if err != nil {
		return err
	}
	ctx.addResult(ctx.chain.String(), NoRef, v)
	return nil
}

func (ctx *EvalContext) addResult(path string, ref *Ref, v any) {
	if !ctx.forUpdate {
		ref = NoRef
	}
	ctx.results = append(ctx.results, Result{Path: path, Ref: ref, Value: v})
}

// suppressed logs absences that would have failed without SuppressExceptions.
func (ctx *EvalContext) suppressed(evalPath string) {
	if ctx.cfg.Logger.Enabled(context.Background(), slog.LevelDebug) {
		ctx.cfg.Logger.Debug("missing path suppressed", "path", evalPath, "expression", ctx.chain.String())
	}
}

// Results returns matches in evaluation order.
func (ctx *EvalContext) Results() []Result { return ctx.results }

// Values returns the matched values in evaluation order.
func (ctx *EvalContext) Values() []any {
	values := make([]any, 0, len(ctx.results))
	for _, r := range ctx.results {
		values = append(values, r.Value)
	}
	return values
}

// Paths returns the rendered paths of the matches.
func (ctx *EvalContext) Paths() []string {
	paths := make([]string, 0, len(ctx.results))
	for _, r := range ctx.results {
		paths = append(paths, r.Path)
	}
	return paths
}

// Refs returns the references of the matches; they are NoRef unless the
// evaluation was opened for update.
func (ctx *EvalContext) Refs() []*Ref {
	refs := make([]*Ref, 0, len(ctx.results))
	for _, r := range ctx.results {
		refs = append(refs, r.Ref)
	}
	return refs
}

// Output is the reconstructed document in root-reconstruction mode.
func (ctx *EvalContext) Output() any { return ctx.output }

// Value shapes the results according to the options:
// AsPathList yields []string; a definite path (or a function path) yields the
// single value unless AlwaysReturnList is set; everything else yields []any.
// A definite path without matches is ErrPathNotFound unless SuppressExceptions.
func (ctx *EvalContext) Value() (any, error) {
	opts := ctx.cfg.Options
	if opts.Has(AsPathList) {
		return ctx.Paths(), nil
	}

	single := ctx.chain.IsPathDefinite() || ctx.chain.IsFunctionPath()
	if !single || opts.Has(AlwaysReturnList) {
		return ctx.Values(), nil
	}

	if len(ctx.results) == 0 {
		if opts.Has(SuppressExceptions) {
			return nil, nil
		}
		return nil, notFound(ctx.chain.String(), "no results for path")
	}
	return ctx.results[0].Value, nil
}
