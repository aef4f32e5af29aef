package sequence

import (
	"iter"
	"sort"
)

// Iterator is a lazy, chainable sequence of T. Intermediate operations
// return new iterators; Collect, Find, Count, ForEach and MinBy consume.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// From iterates over a slice. The slice is read lazily, at consumption time.
func From[T any](data []T) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for _, v := range data {
				if !yield(v) {
					return
				}
			}
		},
	}
}

func (i *Iterator[T]) Seq() iter.Seq[T] { return i.seq }

// Pull converts the iterator into a pull-style next/stop pair.
func (i *Iterator[T]) Pull() (next func() (T, bool), stop func()) {
	return iter.Pull(i.seq)
}

// Collect exhausts the iterator into a new slice.
func (i *Iterator[T]) Collect() []T {
	var out []T
	for v := range i.seq {
		out = append(out, v)
	}
	return out
}

// Sort returns the elements ordered by less. The sort is stable.
func (i *Iterator[T]) Sort(less func(a, b T) bool) *Iterator[T] {
	data := i.Collect()
	sort.SliceStable(data, func(a, b int) bool { return less(data[a], data[b]) })
	return From(data)
}

func (i *Iterator[T]) Filter(pred func(T) bool) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for v := range i.seq {
				if pred(v) && !yield(v) {
					return
				}
			}
		},
	}
}

// ForEach calls action for every element.
func (i *Iterator[T]) ForEach(action func(T)) {
	for v := range i.seq {
		action(v)
	}
}

// Find returns the first element matching pred.
func (i *Iterator[T]) Find(pred func(T) bool) (T, bool) {
	for v := range i.seq {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (i *Iterator[T]) Count() int {
	n := 0
	for range i.seq {
		n++
	}
	return n
}

// MinBy returns the element with the smallest key. Ties keep the first one.
func MinBy[T any](it *Iterator[T], key func(T) float64) (T, bool) {
	var (
		best    T
		bestKey float64
		found   bool
	)
	for v := range it.seq {
		if k := key(v); !found || k < bestKey {
			best, bestKey, found = v, k, true
		}
	}
	return best, found
}

// Map transforms every element lazily.
func Map[T, R any](it *Iterator[T], fn func(T) R) *Iterator[R] {
	return &Iterator[R]{
		seq: func(yield func(R) bool) {
			for v := range it.seq {
				if !yield(fn(v)) {
					return
				}
			}
		},
	}
}
