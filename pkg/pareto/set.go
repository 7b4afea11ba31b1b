package pareto

// Listener observes Set decisions. Implementations must not modify the set.
type Listener[T any] interface {
	Accepted(elem T)
	Rejected(elem T, by T)
	Dropped(elem T, by T)
}

// Set holds mutually non-dominated elements. The comparator reports whether
// its left argument is better than the right in at least one criterion.
//
// A candidate is rejected before any eviction happens if an existing element
// dominates it, or if it ties an existing element on every criterion (unless
// the set keeps ties). Otherwise it is appended and every element it
// dominates is evicted.
type Set[T any] struct {
	elems    []T
	left     func(l, r T) bool
	keepTies bool
	listener Listener[T]
}

// Option configures a Set.
type Option[T any] func(*Set[T])

// WithListener reports accept/reject/drop events to l.
func WithListener[T any](l Listener[T]) Option[T] {
	return func(s *Set[T]) { s.listener = l }
}

// KeepTies accepts candidates that equal an existing element on every
// criterion. Used where a later pass chooses among equals.
func KeepTies[T any]() Option[T] {
	return func(s *Set[T]) { s.keepTies = true }
}

// NewSet creates an empty set.
func NewSet[T any](left func(l, r T) bool, opts ...Option[T]) *Set[T] {
	s := &Set[T]{left: left}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add offers a candidate and reports whether it was accepted.
func (s *Set[T]) Add(candidate T) bool {
	for _, e := range s.elems {
		if s.left(candidate, e) {
			continue
		}
		// Candidate is nowhere better than e.
		if s.left(e, candidate) || !s.keepTies {
			if s.listener != nil {
				s.listener.Rejected(candidate, e)
			}
			return false
		}
	}

	n := 0
	for _, e := range s.elems {
		if !s.left(e, candidate) && s.left(candidate, e) {
			if s.listener != nil {
				s.listener.Dropped(e, candidate)
			}
			continue
		}
		s.elems[n] = e
		n++
	}
	var zero T
	for i := n; i < len(s.elems); i++ {
		s.elems[i] = zero
	}
	s.elems = append(s.elems[:n], candidate)

	if s.listener != nil {
		s.listener.Accepted(candidate)
	}
	if assertInvariants {
		s.checkInvariant()
	}
	return true
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return len(s.elems) }

// At returns the i-th element in insertion order.
func (s *Set[T]) At(i int) T { return s.elems[i] }

// Elements returns a copy of the current elements in insertion order.
func (s *Set[T]) Elements() []T {
	out := make([]T, len(s.elems))
	copy(out, s.elems)
	return out
}

// Clear removes all elements, keeping capacity.
func (s *Set[T]) Clear() {
	var zero T
	for i := range s.elems {
		s.elems[i] = zero
	}
	s.elems = s.elems[:0]
}

func (s *Set[T]) checkInvariant() {
	for i := range s.elems {
		for j := range s.elems {
			if i == j {
				continue
			}
			a, b := s.elems[i], s.elems[j]
			if s.left(a, b) && !s.left(b, a) {
				panic("pareto: set contains a dominated element")
			}
			if !s.keepTies && !s.left(a, b) && !s.left(b, a) {
				panic("pareto: set contains equal elements")
			}
		}
	}
}
