package jsonpath

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/jacoelho/jpq/internal/path"
)

// filterNode is a compiled inline filter expression.
type filterNode interface {
	eval(ctx path.PredicateContext) (bool, error)
}

type (
	orNode    []filterNode
	andNode   []filterNode
	existNode struct{ operand pathOperand }
	cmpNode   struct {
		op          string
		left, right operand
	}
)

// inlinePredicate adapts a compiled filter expression to path.Predicate.
type inlinePredicate struct {
	root filterNode
}

func (p inlinePredicate) Apply(ctx path.PredicateContext) (bool, error) {
	return p.root.eval(ctx)
}

func (n orNode) eval(ctx path.PredicateContext) (bool, error) {
	for _, child := range n {
		ok, err := child.eval(ctx)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (n andNode) eval(ctx path.PredicateContext) (bool, error) {
	for _, child := range n {
		ok, err := child.eval(ctx)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (n existNode) eval(ctx path.PredicateContext) (bool, error) {
	_, exists, err := n.operand.resolve(ctx)
	return exists, err
}

func (n cmpNode) eval(ctx path.PredicateContext) (bool, error) {
	left, ok, err := n.left.resolve(ctx)
	if err != nil || !ok {
		return false, err
	}
	right, ok, err := n.right.resolve(ctx)
	if err != nil || !ok {
		return false, err
	}

	switch n.op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "<", "<=", ">", ">=":
		return order(n.op, left, right), nil
	case "=~", "!~":
		s, isString := left.(string)
		if !isString {
			return false, nil
		}
		matched := n.right.(literalOperand).regex.MatchString(s)
		return matched == (n.op == "=~"), nil
	case "in", "nin":
		items, isArray := right.([]any)
		if !isArray {
			return false, nil
		}
		found := false
		for _, item := range items {
			if equal(left, item) {
				found = true
				break
			}
		}
		return found == (n.op == "in"), nil
	}
	return false, nil
}

// operand yields a value and whether it exists.
type operand interface {
	resolve(ctx path.PredicateContext) (any, bool, error)
}

type literalOperand struct {
	value any
	regex *regexp.Regexp
}

func (l literalOperand) resolve(path.PredicateContext) (any, bool, error) {
	return l.value, true, nil
}

// pathOperand is @... evaluated against the candidate or $... evaluated
// against the document root.
type pathOperand struct {
	chain    *path.Chain
	relative bool
}

func (p pathOperand) resolve(ctx path.PredicateContext) (any, bool, error) {
	doc := ctx.Root()
	if p.relative {
		doc = ctx.Item()
	}

	cfg := ctx.Config()
	cfg = path.Config{Provider: cfg.Provider, Logger: cfg.Logger, Options: path.SuppressExceptions}

	ec, err := p.chain.Evaluate(doc, cfg)
	if err != nil {
		return nil, false, err
	}
	results := ec.Results()
	if p.chain.IsPathDefinite() || p.chain.IsFunctionPath() {
		if len(results) == 0 {
			return nil, false, nil
		}
		return results[0].Value, true, nil
	}
	return ec.Values(), len(results) > 0, nil
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func order(op string, a, b any) bool {
	var c int
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return false
		}
		c = compareFloat(x, y)
	} else {
		x, ok := a.(string)
		y, ok2 := b.(string)
		if !ok || !ok2 {
			return false
		}
		c = strings.Compare(x, y)
	}

	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func compareFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// parseFilter compiles the body of [?(...)]. Comparisons combine with &&
// and ||, && binding tighter; parentheses group.
func parseFilter(s string) (path.Predicate, error) {
	toks, err := lexFilter(s)
	if err != nil {
		return nil, err
	}
	p := &filterParser{toks: toks, src: s}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected %q in filter", ErrSyntax, p.toks[p.pos].text)
	}
	return inlinePredicate{root: root}, nil
}

type tokenKind uint8

const (
	tokPath tokenKind = iota + 1
	tokLiteral
	tokOp
	tokAnd
	tokOr
	tokLParen
	tokRParen
	tokNot
)

type token struct {
	kind tokenKind
	text string
}

func lexFilter(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case strings.HasPrefix(s[i:], "&&"):
			toks = append(toks, token{tokAnd, "&&"})
			i += 2
		case strings.HasPrefix(s[i:], "||"):
			toks = append(toks, token{tokOr, "||"})
			i += 2
		case c == '@' || c == '$':
			end := scanPath(s, i)
			toks = append(toks, token{tokPath, s[i:end]})
			i = end
		case c == '\'' || c == '"':
			end := scanQuoted(s, i)
			if end == -1 {
				return nil, fmt.Errorf("%w: unterminated string in filter", ErrSyntax)
			}
			toks = append(toks, token{tokLiteral, s[i:end]})
			i = end
		case c == '/':
			end := scanRegex(s, i)
			if end == -1 {
				return nil, fmt.Errorf("%w: unterminated regex literal in filter", ErrSyntax)
			}
			toks = append(toks, token{tokLiteral, s[i:end]})
			i = end
		case c == '[':
			end := closing(s, i)
			if end == -1 {
				return nil, fmt.Errorf("%w: unterminated array literal in filter", ErrSyntax)
			}
			toks = append(toks, token{tokLiteral, s[i : end+1]})
			i = end + 1
		case strings.ContainsRune("=!<>", rune(c)):
			op := scanOperator(s, i)
			if op == "" {
				return nil, fmt.Errorf("%w: invalid operator at %q", ErrSyntax, s[i:])
			}
			if op == "!" {
				toks = append(toks, token{tokNot, op})
			} else {
				toks = append(toks, token{tokOp, op})
			}
			i += len(op)
		default:
			end := i
			for end < len(s) && !strings.ContainsRune(" \t()&|=!<>", rune(s[end])) {
				end++
			}
			if end == i {
				return nil, fmt.Errorf("%w: unexpected %q in filter", ErrSyntax, s[i:])
			}
			word := s[i:end]
			if word == "in" || word == "nin" {
				toks = append(toks, token{tokOp, word})
			} else {
				toks = append(toks, token{tokLiteral, word})
			}
			i = end
		}
	}
	return toks, nil
}

func scanPath(s string, i int) int {
	i++
	for i < len(s) {
		switch c := s[i]; {
		case c == '.' || c == '*' || idRune(c):
			i++
		case c == '[' || c == '(':
			end := closing(s, i)
			if end == -1 {
				return len(s)
			}
			i = end + 1
		default:
			return i
		}
	}
	return i
}

func scanQuoted(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return -1
}

func scanRegex(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '/':
			j++
			for j < len(s) && (s[j] >= 'a' && s[j] <= 'z' || s[j] >= 'A' && s[j] <= 'Z') {
				j++
			}
			return j
		}
	}
	return -1
}

func scanOperator(s string, i int) string {
	for _, op := range []string{"==", "!=", "<=", ">=", "=~", "!~", "<", ">", "!"} {
		if strings.HasPrefix(s[i:], op) {
			return op
		}
	}
	return ""
}

type filterParser struct {
	toks []token
	pos  int
	src  string
}

func (p *filterParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *filterParser) parseOr() (filterNode, error) {
	var nodes orNode
	for {
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		if t, ok := p.peek(); !ok || t.kind != tokOr {
			break
		}
		p.pos++
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return nodes, nil
}

func (p *filterParser) parseAnd() (filterNode, error) {
	var nodes andNode
	for {
		n, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		if t, ok := p.peek(); !ok || t.kind != tokAnd {
			break
		}
		p.pos++
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return nodes, nil
}

func (p *filterParser) parseAtom() (filterNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of filter %q", ErrSyntax, p.src)
	}

	switch t.kind {
	case tokNot:
		return nil, fmt.Errorf("%w: negation in filter %q", ErrNotSupported, p.src)
	case tokLParen:
		p.pos++
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return nil, fmt.Errorf("%w: missing ')' in filter %q", ErrSyntax, p.src)
		}
		p.pos++
		return n, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	opTok, ok := p.peek()
	if !ok || opTok.kind != tokOp {
		po, isPath := left.(pathOperand)
		if !isPath {
			return nil, fmt.Errorf("%w: filter %q must compare or test a path", ErrSyntax, p.src)
		}
		return existNode{operand: po}, nil
	}
	p.pos++

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if err := checkOperator(opTok.text, right); err != nil {
		return nil, err
	}
	return cmpNode{op: opTok.text, left: left, right: right}, nil
}

func checkOperator(op string, right operand) error {
	lit, isLiteral := right.(literalOperand)
	isRegex := isLiteral && lit.regex != nil
	switch op {
	case "=~", "!~":
		if !isRegex {
			return fmt.Errorf("%w: operator '%s' requires a regex literal", ErrNotSupported, op)
		}
	default:
		if isRegex {
			return fmt.Errorf("%w: operator '%s' not valid for regex literal", ErrNotSupported, op)
		}
	}
	return nil
}

func (p *filterParser) parseOperand() (operand, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: missing operand in filter %q", ErrSyntax, p.src)
	}
	p.pos++

	switch t.kind {
	case tokPath:
		chain, err := Compile("$" + t.text[1:])
		if err != nil {
			return nil, err
		}
		return pathOperand{chain: chain, relative: t.text[0] == '@'}, nil
	case tokLiteral:
		return parseLiteral(t.text)
	}
	return nil, fmt.Errorf("%w: unexpected %q in filter %q", ErrSyntax, t.text, p.src)
}

func parseLiteral(raw string) (operand, error) {
	switch {
	case strings.HasPrefix(raw, "/"):
		re, err := parseRegex(raw)
		if err != nil {
			return nil, err
		}
		return literalOperand{regex: re}, nil
	case strings.HasPrefix(raw, "["):
		arr, err := parseArray(raw)
		if err != nil {
			return nil, err
		}
		return literalOperand{value: arr}, nil
	}

	v, err := parseScalar(raw)
	if err != nil {
		return nil, err
	}
	if f, ok := v.(float64); ok {
		return literalOperand{value: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}, nil
	}
	return literalOperand{value: v}, nil
}

func parseRegex(literal string) (*regexp.Regexp, error) {
	lastSlash := strings.LastIndexByte(literal, '/')
	if lastSlash <= 0 {
		return nil, fmt.Errorf("%w: unterminated regex literal %s", ErrSyntax, literal)
	}
	pattern, flags := literal[1:lastSlash], literal[lastSlash+1:]

	for _, f := range flags {
		if f != 's' && f != 'i' && f != 'm' {
			return nil, fmt.Errorf("%w: unsupported regex flag '%c' in %s", ErrNotSupported, f, literal)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling regex literal %s: %v", ErrSyntax, literal, err)
	}
	return re, nil
}

func parseArray(literal string) ([]any, error) {
	content := strings.TrimSpace(literal[1 : len(literal)-1])
	arr := []any{}
	for _, part := range splitTopLevel(content, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parseScalar(part)
		if err != nil {
			return nil, fmt.Errorf("parsing array element '%s': %w", part, err)
		}
		arr = append(arr, v)
	}
	return arr, nil
}
