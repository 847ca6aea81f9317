package path

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jacoelho/jpq/internal/provider"
)

type function func(ctx *EvalContext, model any, args []any) (any, error)

var functions map[string]function

func init() {
	functions = map[string]function{
		"length": fnLength,
		"size":   fnLength,
		"min":    aggregateNumbers("min", fnMin),
		"max":    aggregateNumbers("max", fnMax),
		"avg":    aggregateNumbers("avg", fnAvg),
		"stddev": aggregateNumbers("stddev", fnStddev),
		"sum":    aggregateNumbers("sum", fnSum),
		"keys":   fnKeys,
		"first":  fnFirst,
		"last":   fnLast,
		"index":  fnIndex,
		"concat": fnConcat,
		"append": fnAppend,
	}
}

// IsFunction reports whether name is a known path function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

func (ctx *EvalContext) applyFunction(seg Segment, model any) (any, error) {
	fn, ok := functions[seg.Func]
	if !ok {
		return nil, functionError(seg.Func, "unknown function")
	}
	args, err := ctx.functionArgs(seg.Args, model)
	if err != nil {
		return nil, err
	}
	return fn(ctx, model, args)
}

// functionArgs resolves arguments: literals are used as is, paths are
// evaluated against the root ($) or the function's candidate (@).
func (ctx *EvalContext) functionArgs(args []Arg, model any) ([]any, error) {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		if arg.Path == nil {
			values = append(values, arg.Literal)
			continue
		}

		doc := ctx.root
		if arg.Relative {
			doc = model
		}
		sub, err := arg.Path.Evaluate(doc, ctx.cfg.WithComputeRoot(false).AddOptions(SuppressExceptions), ctx.preds...)
		if err != nil {
			return nil, err
		}
		if arg.Path.IsPathDefinite() {
			v, _ := sub.Value()
			values = append(values, v)
			continue
		}
		values = append(values, sub.Values())
	}
	return values, nil
}

func fnLength(ctx *EvalContext, model any, _ []any) (any, error) {
	if s, ok := model.(string); ok {
		return len([]rune(s)), nil
	}
	if !ctx.isContainer(model) {
		return nil, functionError("length", "expected an array, object or string, found %s", describe(model))
	}
	return ctx.p.Len(model), nil
}

func fnKeys(ctx *EvalContext, model any, _ []any) (any, error) {
	if !ctx.p.IsMap(model) {
		return nil, functionError("keys", "expected an object, found %s", describe(model))
	}
	keys := ctx.p.NewArray()
	for i, k := range ctx.p.Keys(model) {
		keys = ctx.p.SetIndex(keys, i, k)
	}
	return keys, nil
}

func fnFirst(ctx *EvalContext, model any, _ []any) (any, error) {
	return element(ctx, "first", model, 0)
}

func fnLast(ctx *EvalContext, model any, _ []any) (any, error) {
	return element(ctx, "last", model, -1)
}

func fnIndex(ctx *EvalContext, model any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, functionError("index", "expected one argument, got %d", len(args))
	}
	n, ok := toFloat(args[0])
	if !ok || n != math.Trunc(n) {
		return nil, functionError("index", "argument %v is not an integer", args[0])
	}
	return element(ctx, "index", model, int(n))
}

func element(ctx *EvalContext, name string, model any, idx int) (any, error) {
	if !ctx.p.IsArray(model) {
		return nil, functionError(name, "expected an array, found %s", describe(model))
	}
	if idx < 0 {
		idx += ctx.p.Len(model)
	}
	v := ctx.p.Index(model, idx)
	if provider.IsUndefined(v) {
		return nil, functionError(name, "index %d out of range", idx)
	}
	return v, nil
}

// fnConcat joins the candidate and the arguments as strings. Array
// candidates contribute each element.
func fnConcat(ctx *EvalContext, model any, args []any) (any, error) {
	var b strings.Builder
	write := func(v any) {
		if ctx.p.IsArray(v) {
			for i := range ctx.p.Len(v) {
				b.WriteString(stringify(ctx.p.Index(v, i)))
			}
			return
		}
		b.WriteString(stringify(v))
	}
	write(model)
	for _, arg := range args {
		write(arg)
	}
	return b.String(), nil
}

func fnAppend(ctx *EvalContext, model any, args []any) (any, error) {
	if !ctx.p.IsArray(model) {
		return nil, functionError("append", "expected an array, found %s", describe(model))
	}
	out := ctx.p.Copy(model)
	for _, arg := range args {
		out = ctx.p.SetIndex(out, ctx.p.Len(out), arg)
	}
	return out, nil
}

// aggregateNumbers collects the numeric elements of the candidate array and
// of the arguments before reducing them with reduce.
func aggregateNumbers(name string, reduce func([]float64) float64) function {
	return func(ctx *EvalContext, model any, args []any) (any, error) {
		var numbers []float64
		collect := func(v any) {
			if ctx.p.IsArray(v) {
				for i := range ctx.p.Len(v) {
					if n, ok := toFloat(ctx.p.Index(v, i)); ok {
						numbers = append(numbers, n)
					}
				}
				return
			}
			if n, ok := toFloat(v); ok {
				numbers = append(numbers, n)
			}
		}

		if !ctx.p.IsArray(model) {
			return nil, functionError(name, "expected an array, found %s", describe(model))
		}
		collect(model)
		for _, arg := range args {
			collect(arg)
		}
		if len(numbers) == 0 {
			return nil, functionError(name, "no numeric values to aggregate")
		}
		return reduce(numbers), nil
	}
}

func fnMin(numbers []float64) float64 {
	out := numbers[0]
	for _, n := range numbers[1:] {
		out = math.Min(out, n)
	}
	return out
}

func fnMax(numbers []float64) float64 {
	out := numbers[0]
	for _, n := range numbers[1:] {
		out = math.Max(out, n)
	}
	return out
}

func fnSum(numbers []float64) float64 {
	var out float64
	for _, n := range numbers {
		out += n
	}
	return out
}

func fnAvg(numbers []float64) float64 {
	return fnSum(numbers) / float64(len(numbers))
}

// fnStddev is the population standard deviation.
func fnStddev(numbers []float64) float64 {
	mean := fnAvg(numbers)
	var sq float64
	for _, n := range numbers {
		sq += (n - mean) * (n - mean)
	}
	return math.Sqrt(sq / float64(len(numbers)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
