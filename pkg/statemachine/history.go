package statemachine

// History is a bounded FIFO of exited states. When full, Push evicts the
// oldest entry. A capacity of zero records nothing.
type History[S any] struct {
	items []S
	start int
	n     int
}

// NewHistory returns an empty history holding at most capacity entries.
// Negative capacities are treated as zero.
func NewHistory[S any](capacity int) *History[S] {
	if capacity < 0 {
		capacity = 0
	}
	return &History[S]{items: make([]S, capacity)}
}

// Push records s, evicting the oldest entry when at capacity.
func (h *History[S]) Push(s S) {
	size := len(h.items)
	if size == 0 {
		return
	}
	if h.n < size {
		h.items[(h.start+h.n)%size] = s
		h.n++
		return
	}
	h.items[h.start] = s
	h.start = (h.start + 1) % size
}

// Len returns the number of recorded states.
func (h *History[S]) Len() int {
	return h.n
}

// Cap returns the maximum number of recorded states.
func (h *History[S]) Cap() int {
	return len(h.items)
}

// At returns the i-th entry, oldest first.
func (h *History[S]) At(i int) (S, bool) {
	var zero S
	if i < 0 || i >= h.n {
		return zero, false
	}
	return h.items[(h.start+i)%len(h.items)], true
}

// Last returns the most recently recorded state.
func (h *History[S]) Last() (S, bool) {
	return h.At(h.n - 1)
}

// Items returns a copy of the entries, oldest first.
func (h *History[S]) Items() []S {
	out := make([]S, h.n)
	for i := range out {
		out[i] = h.items[(h.start+i)%len(h.items)]
	}
	return out
}

// Clear forgets every entry, keeping the capacity.
func (h *History[S]) Clear() {
	var zero S
	for i := range h.items {
		h.items[i] = zero
	}
	h.start, h.n = 0, 0
}
