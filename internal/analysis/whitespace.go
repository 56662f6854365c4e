package analysis

import "strings"

// WhitespaceAnalyzer splits text on ASCII whitespace. With Lowercase set,
// ASCII letters are folded to lower case. Other bytes, including multi-byte
// UTF-8 sequences, pass through untouched, so offsets always refer to the
// original text.
type WhitespaceAnalyzer struct {
	Lowercase bool
}

// NewWhitespaceAnalyzer creates an analyzer that preserves case.
func NewWhitespaceAnalyzer() *WhitespaceAnalyzer {
	return &WhitespaceAnalyzer{}
}

// NewLowercaseAnalyzer creates a whitespace analyzer that lowercases terms.
func NewLowercaseAnalyzer() *WhitespaceAnalyzer {
	return &WhitespaceAnalyzer{Lowercase: true}
}

func (a *WhitespaceAnalyzer) Analyze(text string) []Token {
	var tokens []Token
	start := -1
	for i := 0; i < len(text); i++ {
		if isSpace(text[i]) {
			if start >= 0 {
				tokens = a.appendToken(tokens, text, start, i)
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = a.appendToken(tokens, text, start, len(text))
	}
	return tokens
}

func (a *WhitespaceAnalyzer) appendToken(tokens []Token, text string, start, end int) []Token {
	term := text[start:end]
	if a.Lowercase {
		term = strings.Map(lowerASCII, term)
	}
	return append(tokens, Token{
		Term:      term,
		Position:  len(tokens),
		StartByte: start,
		EndByte:   end,
	})
}

// isSpace matches the ASCII whitespace set: space, \t, \n, \v, \f and \r.
// UTF-8 continuation and lead bytes are never in it.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func lowerASCII(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}
