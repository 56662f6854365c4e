package automaton

import (
	"errors"
	"fmt"
	"iter"
)

var (
	ErrNotFound = errors.New("sequence not found")
	ErrFrozen   = errors.New("trie is frozen after automaton construction")
)

// Trie maps symbol sequences to values. It is the build phase of a Matcher:
// insert patterns, then call Build once.
//
// A Trie is not safe for concurrent use while patterns are inserted.
type Trie[K comparable, V any] struct {
	nodes   []node[K, V]
	matcher *Matcher[K, V]
}

// New creates an empty Trie holding only the root.
func New[K comparable, V any]() *Trie[K, V] {
	var zero K
	return &Trie[K, V]{
		nodes: []node[K, V]{newNode[K, V](NoState, zero)},
	}
}

// Insert associates v with seq, replacing any previous value.
// An empty seq is ignored. Returns ErrFrozen once the automaton is built.
func (t *Trie[K, V]) Insert(seq []K, v V) error {
	if t.matcher != nil {
		return ErrFrozen
	}
	if len(seq) == 0 {
		return nil
	}

	s := Root
	for _, sym := range seq {
		next, ok := t.child(s, sym)
		if !ok {
			next = t.addChild(s, sym)
		}
		s = next
	}

	n := &t.nodes[s]
	n.value = v
	n.hasValue = true
	return nil
}

// Get returns the value stored for seq, or an error wrapping ErrNotFound.
func (t *Trie[K, V]) Get(seq []K) (V, error) {
	s, ok := t.walk(seq)
	if !ok || !t.nodes[s].hasValue {
		var zero V
		return zero, fmt.Errorf("%w: %v", ErrNotFound, seq)
	}
	return t.nodes[s].value, nil
}

// GetOr returns the value stored for seq, or def if there is none.
func (t *Trie[K, V]) GetOr(seq []K, def V) V {
	s, ok := t.walk(seq)
	if !ok || !t.nodes[s].hasValue {
		return def
	}
	return t.nodes[s].value
}

// Contains reports whether seq was inserted verbatim.
func (t *Trie[K, V]) Contains(seq []K) bool {
	s, ok := t.walk(seq)
	return ok && t.nodes[s].hasValue
}

// HasPrefix reports whether seq is a prefix of some inserted sequence
// (the sequence itself included).
func (t *Trie[K, V]) HasPrefix(seq []K) bool {
	_, ok := t.walk(seq)
	return ok
}

// Len returns the number of distinct sequences stored.
func (t *Trie[K, V]) Len() int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].hasValue {
			n++
		}
	}
	return n
}

// Built reports whether Build has been called.
func (t *Trie[K, V]) Built() bool {
	return t.matcher != nil
}

// All yields every stored (sequence, value) pair. Sibling order is
// unspecified. The sequence may be re-ranged any number of times.
func (t *Trie[K, V]) All() iter.Seq2[[]K, V] {
	return func(yield func([]K, V) bool) {
		stack := []State{Root}
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n := &t.nodes[s]
			if n.hasValue && !yield(t.key(s), n.value) {
				return
			}
			for _, c := range n.children {
				if c != Root {
					stack = append(stack, c)
				}
			}
		}
	}
}

// Keys yields every stored sequence.
func (t *Trie[K, V]) Keys() iter.Seq[[]K] {
	return func(yield func([]K) bool) {
		for k := range t.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values yields every stored value.
func (t *Trie[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range t.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Scan runs the built automaton over input. On a trie that has not been
// built the returned scanner yields nothing and reports ErrNotBuilt.
func (t *Trie[K, V]) Scan(input []K) *Scanner[K, V] {
	if t.matcher == nil {
		return &Scanner[K, V]{err: ErrNotBuilt}
	}
	return t.matcher.Scan(input)
}
