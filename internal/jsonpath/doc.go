// Package jsonpath compiles path expressions into chains evaluated by the
// path engine, and exposes document level reads and updates.
//
// Supported syntax:
//   - Root `$`, child `.name` / `['name']`, descendant `..`
//   - Wildcard `*`, indexes `[0]`, `[-1]`, unions `[0,2]`, `['a','b']`
//   - Slices `[start:end:step]` with negative bounds, positive steps
//   - Placeholders `[?]` bound to caller predicates in order
//   - Inline filters `[?(<expr>)]` where <expr> combines comparisons with
//     `&&` and `||`:
//     <operand> <op> <operand>, <op> → == != < <= > >= =~ !~ in nin
//     <operand> → @path | $path | number | 'string' | /regex/flags | [values]
//   - Functions at the end of a path: length size min max avg stddev sum
//     keys first last index(n) concat(...) append(...)
//
// Unsupported features raise ErrNotSupported at compile time.
package jsonpath
