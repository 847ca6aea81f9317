package path

import (
	"fmt"
	"strconv"

	"github.com/jacoelho/jpq/internal/provider"
)

// eval evaluates segment i against model. out is the output container that
// mirrors model in root-reconstruction mode; the returned value replaces it.
func (ctx *EvalContext) eval(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	seg := &ctx.chain.segs[i]
	switch seg.Kind {
	case KindRoot:
		return ctx.evalRoot(i, ref, model, out)
	case KindProperty, KindMultiProperty:
		return ctx.evalProperty(i, currentPath, ref, model, out)
	case KindWildcard:
		return ctx.evalWildcard(i, currentPath, ref, model, out)
	case KindArrayIndex:
		return ctx.evalArrayIndex(i, currentPath, ref, model, out)
	case KindArraySlice:
		return ctx.evalArraySlice(i, currentPath, ref, model, out)
	case KindDeepScan:
		return ctx.walk(i, currentPath, ref, model, out)
	case KindFilter:
		return ctx.evalFilter(i, currentPath, ref, model, out)
	case KindFunction:
		return ctx.evalFunction(i, currentPath, model, out)
	}
	panic(misuse("unknown segment kind %s", seg.Kind))
}

func (ctx *EvalContext) next(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	return ctx.eval(ctx.chain.Next(i), currentPath, ref, model, out)
}

func (ctx *EvalContext) evalRoot(i int, ref *Ref, model, out any) (any, error) {
	const rootPath = "$"
	if ctx.chain.IsLeaf(i) {
		ctx.addResult(rootPath, ref, model)
		if ctx.cfg.ComputeRoot {
			return ctx.p.Copy(model), nil
		}
		return out, nil
	}
	return ctx.next(i, rootPath, ref, model, out)
}

func (ctx *EvalContext) evalWildcard(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	var err error
	switch {
	case ctx.p.IsMap(model):
		for _, key := range ctx.p.Keys(model) {
			if out, err = ctx.handleProperty(i, currentPath, ref, model, out, key); err != nil {
				return out, err
			}
		}
	case ctx.p.IsArray(model):
		for idx := range ctx.p.Len(model) {
			if out, err = ctx.handleIndex(i, currentPath, ref, model, out, idx); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// walk is the deep scan: it visits model and then every container below it
// in pre-order, attempting the rest of the chain wherever it can apply.
func (ctx *EvalContext) walk(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	next := ctx.chain.Next(i)

	applies, err := ctx.scanApplies(next, model)
	if err != nil {
		return out, err
	}
	if applies {
		if out, err = ctx.eval(next, currentPath, ref, model, out); err != nil {
			return out, err
		}
	}

	switch {
	case ctx.p.IsMap(model):
		for _, key := range ctx.p.Keys(model) {
			child := ctx.p.Property(model, key)
			if !ctx.isContainer(child) {
				continue
			}
			childPath := currentPath + "['" + key + "']"
			childRef := ref.propertyRef(key)
			out, err = ctx.descendProperty(out, key, child, func(childOut any) (any, error) {
				return ctx.walk(i, childPath, childRef, child, childOut)
			})
			if err != nil {
				return out, err
			}
		}
	case ctx.p.IsArray(model):
		for idx := range ctx.p.Len(model) {
			child := ctx.p.Index(model, idx)
			if !ctx.isContainer(child) {
				continue
			}
			childPath := currentPath + "[" + strconv.Itoa(idx) + "]"
			childRef := ref.indexRef(idx)
			out, err = ctx.descendIndex(out, idx, child, func(childOut any) (any, error) {
				return ctx.walk(i, childPath, childRef, child, childOut)
			})
			if err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// scanApplies reports whether segment next can select anything from model
// during a deep scan.
func (ctx *EvalContext) scanApplies(next int, model any) (bool, error) {
	seg := &ctx.chain.segs[next]
	switch seg.Kind {
	case KindProperty:
		if !ctx.p.IsMap(model) {
			return false, nil
		}
		if ctx.chain.IsLeaf(next) && ctx.cfg.Options.Has(DefaultPathLeafToNull) {
			return true, nil
		}
		return !provider.IsUndefined(ctx.p.Property(model, seg.Names[0])), nil
	case KindMultiProperty:
		return ctx.p.IsMap(model), nil
	case KindArrayIndex, KindArraySlice:
		return ctx.p.IsArray(model), nil
	case KindFilter:
		// arrays are not candidates themselves, their elements are walked
		if !ctx.p.IsMap(model) {
			return false, nil
		}
		return ctx.accept(seg, model)
	default:
		return true, nil
	}
}

func (ctx *EvalContext) evalFilter(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	seg := &ctx.chain.segs[i]
	switch {
	case ctx.p.IsMap(model):
		ok, err := ctx.accept(seg, model)
		if err != nil || !ok {
			return out, err
		}
		if !ctx.chain.IsLeaf(i) {
			return ctx.next(i, currentPath, ref, model, out)
		}
		if ctx.cfg.ComputeRoot && ctx.p.IsMap(out) {
			for _, key := range ctx.p.Keys(model) {
				if provider.IsUndefined(ctx.p.Property(out, key)) {
					out = ctx.p.SetProperty(out, key, ctx.p.Copy(ctx.p.Property(model, key)))
				}
			}
		}
		ctx.addResult(currentPath, ref, model)
		return out, nil

	case ctx.p.IsArray(model):
		for idx := range ctx.p.Len(model) {
			ok, err := ctx.accept(seg, ctx.p.Index(model, idx))
			if err != nil {
				return out, err
			}
			if !ok {
				continue
			}
			if out, err = ctx.handleIndex(i, currentPath, ref, model, out, idx); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	if ctx.chain.IsUpstreamDefinite(i) {
		if !ctx.cfg.Options.Has(SuppressExceptions) {
			return out, notFound(currentPath, "filter %s can only be applied to objects and arrays, found %s", seg, describe(model))
		}
		ctx.suppressed(currentPath)
	}
	return out, nil
}

func (ctx *EvalContext) accept(seg *Segment, item any) (bool, error) {
	pred := seg.Predicate
	if pred == nil {
		pred = ctx.preds[seg.Placeholder]
	}
	return pred.Apply(predicateContext{item: item, root: ctx.root, cfg: ctx.cfg})
}

func (ctx *EvalContext) evalFunction(i int, currentPath string, model, out any) (any, error) {
	seg := &ctx.chain.segs[i]
	v, err := ctx.applyFunction(*seg, model)
	if err != nil {
		return out, err
	}
	ctx.addResult(currentPath+seg.String(), NoRef, v)
	return out, nil
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
