package automaton

// node is one prefix of some inserted sequence. Nodes live in the trie's
// arena and refer to each other by State, so failure links never own
// anything.
type node[K comparable, V any] struct {
	sym    K // edge label from the parent; zero for the root
	parent State

	value    V
	hasValue bool

	// fail is NoState until the automaton is built.
	fail State

	// children holds real edges. After Build the root also holds self-loops
	// (sym -> Root); no real edge ever targets Root.
	children map[K]State
}

func newNode[K comparable, V any](parent State, sym K) node[K, V] {
	return node[K, V]{sym: sym, parent: parent, fail: NoState}
}

// child returns the real edge for sym, ignoring root self-loops.
func (t *Trie[K, V]) child(s State, sym K) (State, bool) {
	next, ok := t.nodes[s].children[sym]
	if !ok || next == Root {
		return NoState, false
	}
	return next, true
}

// addChild appends a fresh node under parent and returns its handle.
func (t *Trie[K, V]) addChild(parent State, sym K) State {
	id := State(len(t.nodes))
	t.nodes = append(t.nodes, newNode[K, V](parent, sym))

	p := &t.nodes[parent]
	if p.children == nil {
		p.children = make(map[K]State)
	}
	p.children[sym] = id
	return id
}

// walk follows real edges from the root. ok is false if some symbol has no
// matching child.
func (t *Trie[K, V]) walk(seq []K) (State, bool) {
	s := Root
	for _, sym := range seq {
		next, ok := t.child(s, sym)
		if !ok {
			return NoState, false
		}
		s = next
	}
	return s, true
}

// key rebuilds the sequence spelled by the path from the root to s.
func (t *Trie[K, V]) key(s State) []K {
	depth := 0
	for n := s; n != Root; n = t.nodes[n].parent {
		depth++
	}
	seq := make([]K, depth)
	for n := s; n != Root; n = t.nodes[n].parent {
		depth--
		seq[depth] = t.nodes[n].sym
	}
	return seq
}
