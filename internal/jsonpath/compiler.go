package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/jpq/internal/path"
	"github.com/jacoelho/jpq/internal/stack"
)

var unquoter = strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`)

// Compile turns a path expression into a chain.
func Compile(expr string) (*path.Chain, error) {
	expr = strings.TrimSpace(expr)
	if err := validateExpression(expr); err != nil {
		return nil, err
	}

	segs := []path.Segment{path.Root()}
	for i := 1; i < len(expr); {
		parsed, next, err := parseSegment(expr, i)
		if err != nil {
			return nil, err
		}
		segs = append(segs, parsed...)
		i = next
	}

	chain, err := path.NewChain(segs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSyntax, expr, err)
	}
	return chain, nil
}

// MustCompile is Compile for expressions known to be valid; it panics on error.
func MustCompile(expr string) *path.Chain {
	chain, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return chain
}

func validateExpression(expr string) error {
	if expr == "" {
		return fmt.Errorf("%w: expression cannot be empty", ErrSyntax)
	}
	if expr[0] != '$' || (len(expr) > 1 && expr[1] != '.' && expr[1] != '[') {
		return fmt.Errorf("%w: expression must start with '$', '$.', or '$[', got %q", ErrSyntax, expr)
	}
	return nil
}

func parseSegment(expr string, i int) ([]path.Segment, int, error) {
	switch expr[i] {
	case '.':
		return parseDotSegment(expr, i)
	case '[':
		seg, next, err := parseBracketSegment(expr, i)
		return []path.Segment{seg}, next, err
	}
	return nil, i, fmt.Errorf("%w: unexpected token '%c' at position %d, expected '.' or '['", ErrSyntax, expr[i], i)
}

func parseDotSegment(expr string, i int) ([]path.Segment, int, error) {
	var segs []path.Segment

	if i+1 < len(expr) && expr[i+1] == '.' {
		segs = append(segs, path.DeepScan())
		i += 2
		if i < len(expr) && expr[i] == '[' {
			return segs, i, nil
		}
	} else {
		i++
	}

	if i >= len(expr) {
		return nil, i, fmt.Errorf("%w: path cannot end with '.' or '..'", ErrSyntax)
	}

	if expr[i] == '*' {
		return append(segs, path.Wildcard()), i + 1, nil
	}

	name, i, err := parseName(expr, i)
	if err != nil {
		return nil, i, err
	}

	if i < len(expr) && expr[i] == '(' {
		fn, next, err := parseFunction(expr, name, i)
		if err != nil {
			return nil, next, err
		}
		return append(segs, fn), next, nil
	}

	return append(segs, path.Property(name)), i, nil
}

func parseName(expr string, i int) (string, int, error) {
	start := i
	for i < len(expr) && idRune(expr[i]) {
		i++
	}
	if start == i {
		return "", i, fmt.Errorf("%w: name cannot be empty at position %d", ErrSyntax, start)
	}
	return expr[start:i], i, nil
}

// idRune checks if a byte is valid for unquoted names after '.'.
func idRune(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == '-' || b >= 0x80
}

func parseFunction(expr, name string, open int) (path.Segment, int, error) {
	end := closing(expr, open)
	if end == -1 {
		return path.Segment{}, open, fmt.Errorf("%w: unterminated call to %s()", ErrSyntax, name)
	}
	if end != len(expr)-1 {
		return path.Segment{}, end, fmt.Errorf("%w: function %s() must end the expression", ErrSyntax, name)
	}
	if !path.IsFunction(name) {
		return path.Segment{}, end, fmt.Errorf("%w: unknown function %s()", ErrNotSupported, name)
	}

	var args []path.Arg
	for _, raw := range splitTopLevel(expr[open+1:end], ',') {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return path.Segment{}, end, fmt.Errorf("%w: empty argument in %s()", ErrSyntax, name)
		}
		arg, err := parseArg(raw)
		if err != nil {
			return path.Segment{}, end, err
		}
		args = append(args, arg)
	}

	return path.Function(name, args...), end + 1, nil
}

func parseArg(raw string) (path.Arg, error) {
	if raw[0] == '$' || raw[0] == '@' {
		chain, err := Compile("$" + raw[1:])
		if err != nil {
			return path.Arg{}, err
		}
		return path.Arg{Raw: raw, Path: chain, Relative: raw[0] == '@'}, nil
	}

	v, err := parseScalar(raw)
	if err != nil {
		return path.Arg{}, err
	}
	return path.Arg{Raw: raw, Literal: v}, nil
}

// parseScalar reads a number, quoted string, boolean or null literal.
func parseScalar(raw string) (any, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if isQuoted(raw) {
		return unquoter.Replace(raw[1 : len(raw)-1]), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: unsupported literal %s", ErrSyntax, raw)
}

func parseBracketSegment(expr string, i int) (path.Segment, int, error) {
	end := closing(expr, i)
	if end == -1 {
		return path.Segment{}, i, fmt.Errorf("%w: unterminated bracket selector starting at position %d", ErrSyntax, i)
	}
	content := strings.TrimSpace(expr[i+1 : end])
	next := end + 1

	switch {
	case content == "":
		return path.Segment{}, next, fmt.Errorf("%w: empty bracket selector '[]'", ErrSyntax)
	case content == "*":
		return path.Wildcard(), next, nil
	case content == "?":
		return path.Placeholder(), next, nil
	case strings.HasPrefix(content, "?"):
		seg, err := parseFilterSegment(content)
		return seg, next, err
	}

	parts := splitTopLevel(content, ',')
	for k := range parts {
		parts[k] = strings.TrimSpace(parts[k])
	}

	switch {
	case isQuoted(parts[0]):
		seg, err := parseNames(parts)
		return seg, next, err
	case len(parts) == 1 && strings.Contains(parts[0], ":"):
		seg, err := parseSlice(parts[0])
		return seg, next, err
	}

	seg, err := parseIndexes(parts)
	return seg, next, err
}

func parseFilterSegment(content string) (path.Segment, error) {
	if !strings.HasPrefix(content, "?(") || !strings.HasSuffix(content, ")") {
		return path.Segment{}, fmt.Errorf("%w: malformed filter, expected '[?(<expression>)]' but got '[%s]'", ErrSyntax, content)
	}
	inside := strings.TrimSpace(content[2 : len(content)-1])
	if inside == "" {
		return path.Segment{}, fmt.Errorf("%w: empty filter expression", ErrSyntax)
	}

	pred, err := parseFilter(inside)
	if err != nil {
		return path.Segment{}, fmt.Errorf("parsing filter %q: %w", inside, err)
	}
	return path.Filter(pred, inside), nil
}

func parseNames(parts []string) (path.Segment, error) {
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if !isQuoted(p) {
			return path.Segment{}, fmt.Errorf("%w: cannot mix names and indexes in '%s'", ErrNotSupported, strings.Join(parts, ","))
		}
		names = append(names, unquoter.Replace(p[1:len(p)-1]))
	}
	return path.MultiProperty(names...), nil
}

func parseIndexes(parts []string) (path.Segment, error) {
	indexes := make([]int, 0, len(parts))
	for _, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil {
			return path.Segment{}, fmt.Errorf("%w: invalid content '%s' in bracket selector", ErrSyntax, p)
		}
		indexes = append(indexes, idx)
	}
	return path.Index(indexes...), nil
}

func parseSlice(p string) (path.Segment, error) {
	bounds := strings.Split(p, ":")
	if len(bounds) > 3 {
		return path.Segment{}, fmt.Errorf("%w: too many colons in slice '%s'", ErrSyntax, p)
	}

	s := path.Slice{Step: 1}
	var err error
	if s.Start, s.HasStart, err = parseSliceBound(bounds[0], "start", p); err != nil {
		return path.Segment{}, err
	}
	if s.End, s.HasEnd, err = parseSliceBound(bounds[1], "end", p); err != nil {
		return path.Segment{}, err
	}
	if len(bounds) == 3 {
		step, ok, err := parseSliceBound(bounds[2], "step", p)
		if err != nil {
			return path.Segment{}, err
		}
		switch {
		case !ok:
		case step == 0:
			return path.Segment{}, fmt.Errorf("%w: slice step cannot be zero in '%s'", ErrSyntax, p)
		case step < 0:
			return path.Segment{}, fmt.Errorf("%w: negative slice step in '%s'", ErrNotSupported, p)
		default:
			s.Step = step
		}
	}

	return path.ArraySlice(s), nil
}

func parseSliceBound(raw, boundType, fullSlice string) (int, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false, fmt.Errorf("%w: slice %s '%s' in '%s' is not a number", ErrSyntax, boundType, trimmed, fullSlice)
	}
	return v, true, nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}

func closerOf(open byte) byte {
	switch open {
	case '[':
		return ']'
	case '(':
		return ')'
	}
	return open
}

// closing returns the index of the delimiter that closes expr[start], or -1.
// Nested brackets and parentheses are tracked; quoted strings are skipped.
func closing(expr string, start int) int {
	open := stack.New[byte]()
	for i := start; i < len(expr); i++ {
		c := expr[i]
		top, _ := open.Peek()

		if top == '\'' || top == '"' {
			switch c {
			case '\\':
				i++
			case top:
				open.Pop()
			}
			continue
		}

		switch c {
		case '\'', '"', '[', '(':
			open.Push(c)
		case ']', ')':
			if open.IsEmpty() || closerOf(top) != c {
				return -1
			}
			open.Pop()
			if open.IsEmpty() {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s at sep where sep is outside quotes, brackets and
// parentheses.
func splitTopLevel(s string, sep byte) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var parts []string
	open := stack.New[byte]()
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		top, _ := open.Peek()

		if top == '\'' || top == '"' {
			switch c {
			case '\\':
				i++
			case top:
				open.Pop()
			}
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '[' || c == '(':
			open.Push(c)
		case (c == ']' || c == ')') && !open.IsEmpty():
			open.Pop()
		case c == sep && open.IsEmpty():
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
