package jsonpath

import (
	"io"
	"log/slog"

	"github.com/jacoelho/jpq/internal/cache"
	"github.com/jacoelho/jpq/internal/path"
)

// Engine reads and updates documents with path expressions. Compiled
// expressions are kept in an LRU cache. An Engine is safe for concurrent use;
// updates to one document must be serialized by the caller.
type Engine struct {
	cfg   path.Config
	cache *cache.Cache
	log   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCacheSize sets the number of compiled expressions kept.
func WithCacheSize(size int) Option {
	return func(e *Engine) {
		e.cache = cache.New(size)
	}
}

// WithCache shares an existing expression cache.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

func New(cfg path.Config, opts ...Option) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{cfg: cfg, log: cfg.Logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.New(cache.DefaultCapacity)
	}
	return e
}

// Config returns the evaluation configuration of the engine.
func (e *Engine) Config() path.Config {
	return e.cfg
}

// Compile returns the chain for expr, compiling it on a cache miss.
func (e *Engine) Compile(expr string) (*path.Chain, error) {
	chain, hit, err := e.cache.GetOrCompile(expr, Compile)
	if err != nil {
		return nil, err
	}
	if !hit {
		e.log.Debug("compiled path", "expression", expr, "chain", chain.String())
	}
	return chain, nil
}

// Query evaluates expr against doc and returns the evaluation with its
// matches.
func (e *Engine) Query(doc any, expr string, preds ...path.Predicate) (*path.EvalContext, error) {
	chain, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	return chain.Evaluate(doc, e.cfg.WithComputeRoot(false), preds...)
}

// Read evaluates expr against doc and shapes the result according to the
// configured options: a single value for definite paths, a list otherwise,
// or the list of matched paths under AsPathList.
func (e *Engine) Read(doc any, expr string, preds ...path.Predicate) (any, error) {
	ctx, err := e.Query(doc, expr, preds...)
	if err != nil {
		return nil, err
	}
	return ctx.Value()
}

// Paths returns the rendered paths matched by expr.
func (e *Engine) Paths(doc any, expr string, preds ...path.Predicate) ([]string, error) {
	ctx, err := e.Query(doc, expr, preds...)
	if err != nil {
		return nil, err
	}
	return ctx.Paths(), nil
}

// ReadRoot builds one pruned copy of doc holding every branch matched by
// exprs. Equal expressions are evaluated once.
func (e *Engine) ReadRoot(doc any, exprs []string, preds ...path.Predicate) (any, error) {
	chains := make([]*path.Chain, 0, len(exprs))
	for _, expr := range exprs {
		chain, err := e.Compile(expr)
		if err != nil {
			return nil, err
		}
		if !containsChain(chains, chain) {
			chains = append(chains, chain)
		}
	}

	var output any
	for _, chain := range chains {
		ctx, err := chain.EvaluateInto(doc, output, e.cfg, preds...)
		if err != nil {
			return nil, err
		}
		output = ctx.Output()
	}
	return output, nil
}

func containsChain(chains []*path.Chain, c *path.Chain) bool {
	for _, other := range chains {
		if other.Equal(c) {
			return true
		}
	}
	return false
}

// Set replaces every location matched by expr with v.
func (e *Engine) Set(doc *any, expr string, v any, preds ...path.Predicate) error {
	return e.update(doc, expr, preds, func(r *path.Ref) error { return r.Set(v) })
}

// Map replaces every location matched by expr with fn applied to its value.
func (e *Engine) Map(doc *any, expr string, fn func(any) any, preds ...path.Predicate) error {
	return e.update(doc, expr, preds, func(r *path.Ref) error { return r.Convert(fn) })
}

// Add appends v to every array matched by expr.
func (e *Engine) Add(doc *any, expr string, v any, preds ...path.Predicate) error {
	return e.update(doc, expr, preds, func(r *path.Ref) error { return r.Add(v) })
}

// Put sets key to v on every object matched by expr.
func (e *Engine) Put(doc *any, expr, key string, v any, preds ...path.Predicate) error {
	return e.update(doc, expr, preds, func(r *path.Ref) error { return r.Put(key, v) })
}

// RenameKey renames oldKey to newKey on every object matched by expr.
func (e *Engine) RenameKey(doc *any, expr, oldKey, newKey string, preds ...path.Predicate) error {
	return e.update(doc, expr, preds, func(r *path.Ref) error { return r.RenameKey(oldKey, newKey) })
}

// Delete removes every location matched by expr.
func (e *Engine) Delete(doc *any, expr string, preds ...path.Predicate) error {
	refs, err := e.refs(doc, expr, preds)
	if err != nil {
		return err
	}
	path.SortForDelete(refs)
	for _, r := range refs {
		if err := r.Delete(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) update(doc *any, expr string, preds []path.Predicate, fn func(*path.Ref) error) error {
	refs, err := e.refs(doc, expr, preds)
	if err != nil {
		return err
	}
	for _, r := range refs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) refs(doc *any, expr string, preds []path.Predicate) ([]*path.Ref, error) {
	chain, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	if chain.IsFunctionPath() {
		return nil, &path.Error{Kind: path.ErrInvalidModification, Path: chain.String(), Msg: "function results cannot be updated"}
	}
	ctx, err := chain.EvaluateForUpdate(doc, e.cfg, preds...)
	if err != nil {
		return nil, err
	}
	e.log.Debug("update targets", "expression", expr, "matches", len(ctx.Results()))
	return ctx.Refs(), nil
}
