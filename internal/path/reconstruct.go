package path

import (
	"github.com/jacoelho/jpq/internal/provider"
)

// containerFor returns an empty output container shaped like source, or nil
// when source is a scalar.
func (ctx *EvalContext) containerFor(source any) any {
	switch {
	case ctx.p.IsArray(source):
		return ctx.p.NewArray()
	case ctx.p.IsMap(source):
		return ctx.p.NewMap()
	}
	return nil
}

func (ctx *EvalContext) isContainer(v any) bool {
	return ctx.p.IsMap(v) || ctx.p.IsArray(v)
}

// fillArray writes v at idx, padding any gap before idx with copies of v.
func (ctx *EvalContext) fillArray(arr any, idx int, v any) any {
	for n := ctx.p.Len(arr); n < idx; n++ {
		arr = ctx.p.SetIndex(arr, n, ctx.p.Copy(v))
	}
	return ctx.p.SetIndex(arr, idx, v)
}

// descendProperty runs fn with the output container mirroring source[key].
// Containers created here and left empty by fn are removed again. A scalar
// already written to the slot is kept and the branch is not mirrored.
func (ctx *EvalContext) descendProperty(out any, key string, source any, fn func(any) (any, error)) (any, error) {
	if !ctx.cfg.ComputeRoot || !ctx.p.IsMap(out) {
		_, err := fn(nil)
		return out, err
	}

	child := ctx.p.Property(out, key)
	if !provider.IsUndefined(child) && !ctx.isContainer(child) {
		_, err := fn(nil)
		return out, err
	}
	created := provider.IsUndefined(child)
	if created {
		child = ctx.newChild(source)
		out = ctx.p.SetProperty(out, key, child)
	}

	child, err := fn(child)
	if created && ctx.isEmpty(child) {
		return ctx.p.RemoveProperty(out, key), err
	}
	return ctx.p.SetProperty(out, key, child), err
}

// descendIndex is descendProperty for array positions.
func (ctx *EvalContext) descendIndex(out any, idx int, source any, fn func(any) (any, error)) (any, error) {
	if !ctx.cfg.ComputeRoot || !ctx.p.IsArray(out) {
		_, err := fn(nil)
		return out, err
	}

	var child any = provider.Undefined
	if idx < ctx.p.Len(out) {
		child = ctx.p.Index(out, idx)
	}
	if !provider.IsUndefined(child) && !ctx.isContainer(child) {
		_, err := fn(nil)
		return out, err
	}
	created := provider.IsUndefined(child)
	if created {
		child = ctx.newChild(source)
		out = ctx.fillArray(out, idx, child)
	}

	child, err := fn(child)
	if created && ctx.isEmpty(child) {
		return ctx.p.RemoveProperty(out, idx), err
	}
	return ctx.p.SetIndex(out, idx, child), err
}

func (ctx *EvalContext) newChild(source any) any {
	if ctx.p.IsArray(source) {
		return ctx.p.NewArray()
	}
	return ctx.p.NewMap()
}

func (ctx *EvalContext) isEmpty(container any) bool {
	return ctx.isContainer(container) && ctx.p.Len(container) == 0
}
