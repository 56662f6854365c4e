package analysis

// Token is one symbol of a token-content pattern set, with its location in
// the source text.
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int
}

// Analyzer splits text into the tokens fed to a token automaton.
// Implementations MUST be stateless so one instance can serve concurrent
// scans.
type Analyzer interface {
	// Analyze returns the tokens of text in order.
	Analyze(text string) []Token
}

// Terms returns the term of every token.
func Terms(tokens []Token) []string {
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}
