package automaton

import "errors"

var (
	ErrNotBuilt     = errors.New("automaton not built")
	ErrAlreadyBuilt = errors.New("automaton already built")
)

// Build converts the trie into an Aho-Corasick automaton over alphabet and
// freezes it. It may be called once per trie.
//
// Construction:
//  1. Every alphabet symbol missing from the root becomes a self-loop on
//     the root; every depth-1 node fails to the root and seeds the queue.
//  2. Breadth-first over the queue, each child's failure link is the node
//     of the longest proper suffix of its path that is also in the trie.
func (t *Trie[K, V]) Build(alphabet Alphabet[K]) (*Matcher[K, V], error) {
	if t.matcher != nil {
		return nil, ErrAlreadyBuilt
	}

	root := &t.nodes[Root]
	if root.children == nil {
		root.children = make(map[K]State, alphabet.Len())
	}

	queue := make([]State, 0, len(t.nodes))
	for _, c := range root.children {
		t.nodes[c].fail = Root
		queue = append(queue, c)
	}
	for sym := range alphabet.All() {
		if _, ok := root.children[sym]; !ok {
			root.children[sym] = Root
		}
	}

	for head := 0; head < len(queue); head++ {
		r := queue[head]
		for sym, c := range t.nodes[r].children {
			queue = append(queue, c)

			// Stops at the root at the latest. Symbols outside the alphabet
			// have no root edge, so the root check cannot be dropped.
			state := t.nodes[r].fail
			for state != Root {
				if _, ok := t.nodes[state].children[sym]; ok {
					break
				}
				state = t.nodes[state].fail
			}

			if next, ok := t.nodes[state].children[sym]; ok {
				t.nodes[c].fail = next
			} else {
				t.nodes[c].fail = Root
			}
		}
	}

	t.matcher = &Matcher[K, V]{trie: t, alphabet: alphabet}
	return t.matcher, nil
}
