package util

// Stack is a simple LIFO stack. Grounded on vslc/src/util/stack.go, which
// implements the same Push/Pop/Peek/Size/Get surface over a hand-rolled
// linked list of interface{}; here it is a generic slice-backed stack
// (idiomatic for a single-threaded pipeline — no mutex needed, see
// DESIGN.md) over a type parameter instead of interface{}.
type Stack[T any] struct {
	items []T
}

// Push adds e to the top of the stack.
func (s *Stack[T]) Push(e T) {
	s.items = append(s.items, e)
}

// Pop removes and returns the top element. ok is false if the stack was
// empty, in which case the zero value of T is returned.
func (s *Stack[T]) Pop() (e T, ok bool) {
	if len(s.items) == 0 {
		return e, false
	}
	e = s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return e, true
}

// Peek returns the top element without removing it.
func (s *Stack[T]) Peek() (e T, ok bool) {
	if len(s.items) == 0 {
		return e, false
	}
	return s.items[len(s.items)-1], true
}

// Size returns the number of elements on the stack.
func (s *Stack[T]) Size() int { return len(s.items) }

// Get returns the nth element from the top, 1-indexed (Get(1) == Peek()).
// ok is false if n is out of range.
func (s *Stack[T]) Get(n int) (e T, ok bool) {
	if n < 1 || n > len(s.items) {
		return e, false
	}
	return s.items[len(s.items)-n], true
}

// Each iterates from top to bottom, stopping early if fn returns false.
func (s *Stack[T]) Each(fn func(T) bool) {
	for i1 := len(s.items) - 1; i1 >= 0; i1-- {
		if !fn(s.items[i1]) {
			return
		}
	}
}
