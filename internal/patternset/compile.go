package patternset

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"GoMatch/internal/analysis"
	"GoMatch/internal/automaton"
	"GoMatch/internal/engine"
)

// Hit is one pattern occurrence. Start and End are byte offsets into the
// scanned text, End exclusive.
type Hit struct {
	Pattern string `json:"pattern"`
	Value   string `json:"value"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// LookupResult reports how a text relates to the patterns of a set.
type LookupResult struct {
	Found    bool     `json:"found"`
	IsPrefix bool     `json:"is_prefix"`
	Pattern  *Pattern `json:"pattern,omitempty"`
}

// Matcher is a compiled pattern set. Safe for concurrent use.
type Matcher interface {
	// Definition returns the normalized definition the matcher was built from.
	Definition() *Definition

	// Len returns the number of distinct patterns.
	Len() int

	// Patterns returns the distinct patterns in definition order. Later
	// duplicates replace earlier ones.
	Patterns() []Pattern

	// Lookup checks text against the stored patterns without scanning.
	Lookup(text string) LookupResult

	// Scan returns every hit in text, ordered by end offset and, at equal
	// ends, longest first. When ctx stops the scan the hits found so far
	// are returned with the limit error.
	Scan(ctx *engine.ScanContext, text string) ([]Hit, error)
}

// span is the byte range of one symbol.
type span struct {
	start, end int
}

type entry struct {
	pattern Pattern
	length  int // in symbols
}

type compiled[K comparable] struct {
	def     *Definition
	entries []entry
	matcher *automaton.Matcher[K, int]

	// encode splits text into symbols. A nil spans result means symbol i
	// covers byte i.
	encode func(text string) ([]K, []span)
}

// Compile normalizes and validates def, then builds its automaton.
// registry resolves analyzers for token content; nil uses the built-ins.
func Compile(def *Definition, registry *analysis.Registry) (Matcher, error) {
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	kind, _ := alphabetFor(def.Content, def.Alphabet)

	switch def.Content {
	case ContentRunes:
		return asMatcher[rune](build(def, encodeRunes, func(*automaton.Trie[rune, int]) automaton.Alphabet[rune] {
			switch kind {
			case alphabetASCII:
				return automaton.Runes(128)
			case alphabetBMP:
				return automaton.Runes(0x10000)
			default:
				return automaton.Latin1()
			}
		}))

	case ContentTokens:
		if registry == nil {
			registry = analysis.NewRegistry()
		}
		a, err := registry.Get(def.Analyzer)
		if err != nil {
			return nil, err
		}
		return asMatcher[string](build(def, encodeTokens(a), automaton.AlphabetOf[string, int]))

	default:
		return asMatcher[byte](build(def, encodeBytes, func(*automaton.Trie[byte, int]) automaton.Alphabet[byte] {
			if kind == alphabetASCII {
				return asciiBytes()
			}
			return automaton.Bytes()
		}))
	}
}

func asMatcher[K comparable](c *compiled[K], err error) (Matcher, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

func build[K comparable](
	def *Definition,
	encode func(string) ([]K, []span),
	alphabet func(*automaton.Trie[K, int]) automaton.Alphabet[K],
) (*compiled[K], error) {
	trie := automaton.New[K, int]()
	entries := make([]entry, 0, len(def.Patterns))

	for _, p := range def.Patterns {
		syms, _ := encode(p.Text)
		if len(syms) == 0 {
			continue
		}
		if ref := trie.GetOr(syms, -1); ref >= 0 {
			entries[ref] = entry{pattern: p, length: len(syms)}
			continue
		}
		entries = append(entries, entry{pattern: p, length: len(syms)})
		if err := trie.Insert(syms, len(entries)-1); err != nil {
			return nil, fmt.Errorf("insert %q: %w", p.Text, err)
		}
	}
	if len(entries) == 0 {
		return nil, ErrNoPatterns
	}

	m, err := trie.Build(alphabet(trie))
	if err != nil {
		return nil, fmt.Errorf("build automaton: %w", err)
	}
	return &compiled[K]{def: def, entries: entries, matcher: m, encode: encode}, nil
}

func (c *compiled[K]) Definition() *Definition {
	return c.def
}

func (c *compiled[K]) Len() int {
	return c.matcher.Trie().Len()
}

func (c *compiled[K]) Patterns() []Pattern {
	refs := make([]int, 0, len(c.entries))
	for ref := range c.matcher.Trie().Values() {
		refs = append(refs, ref)
	}
	sort.Ints(refs)

	out := make([]Pattern, len(refs))
	for i, ref := range refs {
		out[i] = c.entries[ref].pattern
	}
	return out
}

func (c *compiled[K]) Lookup(text string) LookupResult {
	syms, _ := c.encode(text)
	trie := c.matcher.Trie()

	res := LookupResult{IsPrefix: trie.HasPrefix(syms)}
	if ref, err := trie.Get(syms); err == nil {
		p := c.entries[ref].pattern
		res.Found = true
		res.Pattern = &p
	}
	return res
}

func (c *compiled[K]) Scan(ctx *engine.ScanContext, text string) ([]Hit, error) {
	if ctx == nil {
		ctx = engine.Unlimited()
	}
	syms, spans := c.encode(text)

	var hits []Hit
	state := c.matcher.Start()
	for i, sym := range syms {
		if err := ctx.Advance(); err != nil {
			return hits, err
		}
		state = c.matcher.Step(state, sym)
		for _, ref := range c.matcher.Outputs(state) {
			if err := ctx.Record(); err != nil {
				return hits, err
			}
			e := c.entries[ref]
			first := i - e.length + 1
			hit := Hit{Pattern: e.pattern.Text, Value: e.pattern.Value, Start: first, End: i + 1}
			if spans != nil {
				hit.Start, hit.End = spans[first].start, spans[i].end
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Summarize counts hits per pattern and returns the k most frequent.
func Summarize(hits []Hit, k int) []engine.PatternCount {
	counts := make(map[string]int)
	for _, h := range hits {
		counts[h.Pattern]++
	}
	c := engine.NewTopKCollector(k)
	for p, n := range counts {
		c.Collect(p, n)
	}
	return c.Results()
}

func encodeBytes(text string) ([]byte, []span) {
	return []byte(text), nil
}

func encodeRunes(text string) ([]rune, []span) {
	syms := make([]rune, 0, utf8.RuneCountInString(text))
	spans := make([]span, 0, cap(syms))
	for i, r := range text {
		_, size := utf8.DecodeRuneInString(text[i:])
		syms = append(syms, r)
		spans = append(spans, span{start: i, end: i + size})
	}
	return syms, spans
}

func encodeTokens(a analysis.Analyzer) func(string) ([]string, []span) {
	return func(text string) ([]string, []span) {
		tokens := a.Analyze(text)
		syms := make([]string, len(tokens))
		spans := make([]span, len(tokens))
		for i, t := range tokens {
			syms[i] = t.Term
			spans[i] = span{start: t.StartByte, end: t.EndByte}
		}
		return syms, spans
	}
}

func asciiBytes() automaton.Alphabet[byte] {
	syms := make([]byte, 128)
	for i := range syms {
		syms[i] = byte(i)
	}
	return automaton.Symbols(syms...)
}
