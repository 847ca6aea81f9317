package path

import (
	"strconv"

	"github.com/jacoelho/jpq/internal/provider"
)

func (ctx *EvalContext) checkArray(i int, currentPath string, model any) (bool, error) {
	if ctx.p.IsArray(model) {
		return true, nil
	}
	if !ctx.chain.IsUpstreamDefinite(i) || ctx.cfg.Options.Has(SuppressExceptions) {
		return false, nil
	}
	return false, notFound(currentPath, "expected an array to read %s, found %s", ctx.chain.segs[i], describe(model))
}

func (ctx *EvalContext) evalArrayIndex(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	ok, err := ctx.checkArray(i, currentPath, model)
	if !ok {
		return out, err
	}
	for _, idx := range ctx.chain.segs[i].Indexes {
		if out, err = ctx.handleIndex(i, currentPath, ref, model, out, idx); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (ctx *EvalContext) evalArraySlice(i int, currentPath string, ref *Ref, model, out any) (any, error) {
	ok, err := ctx.checkArray(i, currentPath, model)
	if !ok {
		return out, err
	}
	from, to := sliceBounds(ctx.chain.segs[i].Slice, ctx.p.Len(model))
	for idx := from; idx < to; idx += ctx.chain.segs[i].Slice.Step {
		if out, err = ctx.handleIndex(i, currentPath, ref, model, out, idx); err != nil {
			return out, err
		}
	}
	return out, nil
}

// sliceBounds normalizes negative bounds against length and clamps both ends.
func sliceBounds(s Slice, length int) (from, to int) {
	from, to = 0, length
	if s.HasStart {
		from = s.Start
		if from < 0 {
			from = max(length+from, 0)
		}
	}
	if s.HasEnd {
		to = s.End
		if to < 0 {
			to = length + to
		}
	}
	return from, min(to, length)
}

// handleIndex resolves position idx of model on behalf of segment i. The
// rendered path keeps idx as requested; negative indexes count from the end.
func (ctx *EvalContext) handleIndex(i int, currentPath string, ref *Ref, model, out any, idx int) (any, error) {
	evalPath := currentPath + "[" + strconv.Itoa(idx) + "]"

	eff := idx
	if eff < 0 {
		eff += ctx.p.Len(model)
	}
	value := ctx.p.Index(model, eff)
	if provider.IsUndefined(value) {
		return out, nil
	}

	childRef := ref.indexRef(eff)
	if ctx.chain.IsLeaf(i) {
		if ctx.cfg.ComputeRoot && ctx.p.IsArray(out) {
			out = ctx.fillArray(out, eff, ctx.p.Copy(value))
		}
		ctx.addResult(evalPath, childRef, value)
		return out, nil
	}

	return ctx.descendIndex(out, eff, value, func(childOut any) (any, error) {
		return ctx.next(i, evalPath, childRef, value, childOut)
	})
}
