package automaton

import "iter"

// Alphabet is the finite set of symbols the root is made total over when
// the automaton is built. The zero Alphabet is empty.
type Alphabet[K comparable] struct {
	symbols iter.Seq[K]
	size    int
}

// All yields every symbol of the alphabet once.
func (a Alphabet[K]) All() iter.Seq[K] {
	if a.symbols == nil {
		return func(func(K) bool) {}
	}
	return a.symbols
}

// Len returns the number of symbols.
func (a Alphabet[K]) Len() int {
	return a.size
}

// Bytes is the default alphabet: all 256 byte values.
func Bytes() Alphabet[byte] {
	return Alphabet[byte]{
		symbols: func(yield func(byte) bool) {
			for i := 0; i < 256; i++ {
				if !yield(byte(i)) {
					return
				}
			}
		},
		size: 256,
	}
}

// Runes returns the code points 0..n-1.
func Runes(n int) Alphabet[rune] {
	if n < 0 {
		n = 0
	}
	return Alphabet[rune]{
		symbols: func(yield func(rune) bool) {
			for r := rune(0); r < rune(n); r++ {
				if !yield(r) {
					return
				}
			}
		},
		size: n,
	}
}

// Latin1 returns the first 256 code points.
func Latin1() Alphabet[rune] {
	return Runes(256)
}

// Symbols returns an alphabet of arbitrary tokens. Duplicates are dropped.
func Symbols[K comparable](syms ...K) Alphabet[K] {
	seen := make(map[K]struct{}, len(syms))
	uniq := make([]K, 0, len(syms))
	for _, s := range syms {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		uniq = append(uniq, s)
	}
	return Alphabet[K]{
		symbols: func(yield func(K) bool) {
			for _, s := range uniq {
				if !yield(s) {
					return
				}
			}
		},
		size: len(uniq),
	}
}

// AlphabetOf returns the symbols used by the patterns inserted so far.
func AlphabetOf[K comparable, V any](t *Trie[K, V]) Alphabet[K] {
	syms := make([]K, 0, len(t.nodes))
	for i := 1; i < len(t.nodes); i++ {
		syms = append(syms, t.nodes[i].sym)
	}
	return Symbols(syms...)
}
