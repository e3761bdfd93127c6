package heap

import (
	"container/heap"
)

// Heap is a generic min-heap ordered by less.
// It is not safe for concurrent use.
type Heap[T any] struct {
	hi *heapInterface[T]
}

func New[T any](less func(i, j T) bool) *Heap[T] {
	if less == nil {
		return nil
	}
	h := &Heap[T]{
		hi: &heapInterface[T]{
			s:    make([]T, 0),
			less: less,
		},
	}
	heap.Init(h.hi)
	return h
}

func (h *Heap[T]) Len() int {
	return h.hi.Len()
}

func (h *Heap[T]) Push(ele T) {
	heap.Push(h.hi, ele)
}

// Pop removes and returns the min element.
// ok is false if the heap is empty.
func (h *Heap[T]) Pop() (p T, ok bool) {
	if h.hi.Len() == 0 {
		return
	}
	return heap.Pop(h.hi).(T), true
}

// Peek returns the min element without removing it.
func (h *Heap[T]) Peek() (p T, ok bool) {
	if h.hi.Len() == 0 {
		return
	}
	return h.hi.s[0], true
}

// RemoveFunc removes the first element found for which match returns true.
// The complexity is O(n) for the scan and O(log n) for restoration of heap invariants.
func (h *Heap[T]) RemoveFunc(match func(ele T) bool) (removed T, ok bool) {
	for i := range h.hi.s {
		if match(h.hi.s[i]) {
			return heap.Remove(h.hi, i).(T), true
		}
	}
	return
}

type heapInterface[T any] struct {
	s    []T
	less func(i, j T) bool
}

func (s *heapInterface[T]) Len() int {
	return len(s.s)
}

func (s *heapInterface[T]) Less(i, j int) bool {
	return s.less(s.s[i], s.s[j])
}

func (s *heapInterface[T]) Swap(i, j int) {
	s.s[i], s.s[j] = s.s[j], s.s[i]
}

func (s *heapInterface[T]) Push(x any) {
	c, ok := x.(T)
	if !ok {
		panic("invariant violation")
	}
	s.s = append(s.s, c)
}

func (s *heapInterface[T]) Pop() (p any) {
	var zero T
	last := len(s.s) - 1
	p = s.s[last]
	s.s[last] = zero
	s.s = s.s[:last]
	return
}
