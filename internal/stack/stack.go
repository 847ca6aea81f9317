// Package stack provides a small LIFO container used by the expression
// compiler to track nested delimiters.
package stack

type Stack[T any] struct {
	items []T
}

func New[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push adds items in order, leaving the last one on top.
func (s *Stack[T]) Push(items ...T) {
	s.items = append(s.items, items...)
}

func (s *Stack[T]) Pop() (T, bool) {
	top, ok := s.Peek()
	if ok {
		s.items = s.items[:len(s.items)-1]
	}
	return top, ok
}

func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[T]) Len() int {
	return len(s.items)
}

func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// Reset empties the stack keeping its capacity.
func (s *Stack[T]) Reset() {
	clear(s.items)
	s.items = s.items[:0]
}
