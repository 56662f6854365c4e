package automaton

import "iter"

// Matcher is a built Aho-Corasick automaton. It is immutable: any number of
// goroutines may scan with it concurrently.
type Matcher[K comparable, V any] struct {
	trie     *Trie[K, V]
	alphabet Alphabet[K]
}

var _ Automaton[byte] = (*Matcher[byte, struct{}])(nil)

// Match is the set of patterns ending at one input position.
type Match[V any] struct {
	// End is the 0-based index of the last symbol of every match.
	End int

	// Values are ordered from the longest matching pattern to the shortest.
	Values []V
}

// Trie returns the trie the matcher was built from. Its query methods stay
// valid; Insert returns ErrFrozen.
func (m *Matcher[K, V]) Trie() *Trie[K, V] {
	return m.trie
}

// Alphabet returns the alphabet the root was normalized over.
func (m *Matcher[K, V]) Alphabet() Alphabet[K] {
	return m.alphabet
}

func (m *Matcher[K, V]) Start() State {
	return Root
}

// Step consumes sym. A state that does not belong to this automaton, such
// as NoState, is treated as Root.
func (m *Matcher[K, V]) Step(state State, sym K) State {
	nodes := m.trie.nodes
	if int(state) >= len(nodes) {
		state = Root
	}
	for state != Root {
		if next, ok := nodes[state].children[sym]; ok {
			return next
		}
		state = nodes[state].fail
	}
	if next, ok := nodes[Root].children[sym]; ok {
		return next
	}
	return Root
}

func (m *Matcher[K, V]) IsAccept(state State) bool {
	nodes := m.trie.nodes
	if int(state) >= len(nodes) {
		return false
	}
	for s := state; s != NoState; s = nodes[s].fail {
		if nodes[s].hasValue {
			return true
		}
	}
	return false
}

// Outputs returns the values of every pattern that is a suffix of state's
// path, longest first. Unknown states have none.
func (m *Matcher[K, V]) Outputs(state State) []V {
	nodes := m.trie.nodes
	if int(state) >= len(nodes) {
		return nil
	}
	var out []V
	for s := state; s != NoState; s = nodes[s].fail {
		if nodes[s].hasValue {
			out = append(out, nodes[s].value)
		}
	}
	return out
}

// Scan returns a single-pass scanner over input.
func (m *Matcher[K, V]) Scan(input []K) *Scanner[K, V] {
	return &Scanner[K, V]{m: m, input: input, state: Root}
}

// FindAll scans input to the end and returns every match.
func (m *Matcher[K, V]) FindAll(input []K) []Match[V] {
	var matches []Match[V]
	sc := m.Scan(input)
	for sc.Next() {
		matches = append(matches, sc.Match())
	}
	return matches
}

// Matches yields (end, values) for each input position where at least one
// pattern ends.
func (m *Matcher[K, V]) Matches(input []K) iter.Seq2[int, []V] {
	return func(yield func(int, []V) bool) {
		sc := m.Scan(input)
		for sc.Next() {
			mt := sc.Match()
			if !yield(mt.End, mt.Values) {
				return
			}
		}
	}
}

// Scanner walks an input once, stopping at each position where a pattern
// ends. Positions without a match are skipped.
//
//	sc := m.Scan(input)
//	for sc.Next() {
//		use(sc.Match())
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner[K comparable, V any] struct {
	m     *Matcher[K, V]
	input []K
	pos   int
	state State
	match Match[V]
	err   error
}

// Next advances to the next position with at least one match.
func (sc *Scanner[K, V]) Next() bool {
	if sc.err != nil || sc.m == nil {
		return false
	}
	for sc.pos < len(sc.input) {
		i := sc.pos
		sc.pos++

		sc.state = sc.m.Step(sc.state, sc.input[i])
		if out := sc.m.Outputs(sc.state); len(out) > 0 {
			sc.match = Match[V]{End: i, Values: out}
			return true
		}
	}
	sc.match = Match[V]{}
	return false
}

// Match returns the current match. Valid after Next returned true.
func (sc *Scanner[K, V]) Match() Match[V] {
	return sc.match
}

// Pos returns the number of input symbols consumed so far.
func (sc *Scanner[K, V]) Pos() int {
	return sc.pos
}

// Err returns ErrNotBuilt if the scanner came from an unbuilt trie.
func (sc *Scanner[K, V]) Err() error {
	return sc.err
}
