package path

import (
	"github.com/jacoelho/jpq/internal/provider"
)

func (ctx *EvalContext) evalProperty(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	seg := &ctx.chain.segs[i]
	if !ctx.p.IsMap(model) {
		if !ctx.chain.IsUpstreamDefinite(i) || ctx.cfg.Options.Has(SuppressExceptions) {
			return out, nil
		}
		return out, notFound(currentPath, "expected an object to read %s, found %s", seg, describe(model))
	}

	if seg.Kind == KindProperty {
		return ctx.handleProperty(i, currentPath, ref, model, out, seg.Names[0])
	}
	if ctx.chain.IsLeaf(i) {
		return ctx.handleMultiProperty(i, currentPath, ref, model, out)
	}

	var err error
	for _, name := range seg.Names {
		if out, err = ctx.handleProperty(i, currentPath, ref, model, out, name); err != nil {
			return out, err
		}
	}
	return out, nil
}

// handleProperty resolves one key of model on behalf of segment i, which may
// be a property, multi-property or wildcard segment.
func (ctx *EvalContext) handleProperty(i int, currentPath string, ref *Ref, model, out any, name string) (any, error) {
	evalPath := currentPath + "['" + name + "']"
	opts := ctx.cfg.Options
	leaf := ctx.chain.IsLeaf(i)

	value := ctx.p.Property(model, name)
	if provider.IsUndefined(value) {
		switch {
		case leaf && opts.Has(DefaultPathLeafToNull):
			value = nil
		case leaf:
			if opts.Has(SuppressExceptions) || !opts.Has(RequireProperties) {
				ctx.suppressed(evalPath)
				return out, nil
			}
			return out, notFound(evalPath, "no results for path")
		default:
			if opts.Has(SuppressExceptions) || (!ctx.chain.fullyDefinite(i) && !opts.Has(RequireProperties)) {
				ctx.suppressed(evalPath)
				return out, nil
			}
			return out, notFound(evalPath, "missing property in path")
		}
	}

	childRef := ref.propertyRef(name)
	if leaf {
		if ctx.cfg.ComputeRoot && ctx.p.IsMap(out) && provider.IsUndefined(ctx.p.Property(out, name)) {
			out = ctx.p.SetProperty(out, name, ctx.p.Copy(value))
		}
		ctx.addResult(evalPath, childRef, value)
		return out, nil
	}

	return ctx.descendProperty(out, name, value, func(childOut any) (any, error) {
		return ctx.next(i, evalPath, childRef, value, childOut)
	})
}

// handleMultiProperty merges the requested names of model into one result.
func (ctx *EvalContext) handleMultiProperty(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	seg := &ctx.chain.segs[i]
	evalPath := currentPath + seg.String()
	opts := ctx.cfg.Options

	merged := ctx.p.NewMap()
	for _, name := range seg.Names {
		value := ctx.p.Property(model, name)
		if provider.IsUndefined(value) {
			switch {
			case opts.Has(DefaultPathLeafToNull):
				value = nil
			case opts.Has(RequireProperties):
				return out, notFound(evalPath, "missing property %q", name)
			default:
				continue
			}
		}
		merged = ctx.p.SetProperty(merged, name, value)
		if ctx.cfg.ComputeRoot && ctx.p.IsMap(out) && provider.IsUndefined(ctx.p.Property(out, name)) {
			out = ctx.p.SetProperty(out, name, ctx.p.Copy(value))
		}
	}

	ctx.addResult(evalPath, ref.multiPropertyRef(seg.Names), merged)
	return out, nil
}
