package analysis

import (
	"testing"
)

func FuzzWhitespaceAnalyzer(f *testing.F) {
	f.Add("Hello World")
	f.Add("")
	f.Add("\t\n\r mixed whitespace")
	f.Add("café résumé naïve")

	f.Fuzz(func(t *testing.T, input string) {
		for _, a := range []Analyzer{NewWhitespaceAnalyzer(), NewLowercaseAnalyzer()} {
			tokens := a.Analyze(input)

			prevEnd := 0
			for i, tok := range tokens {
				if tok.Position != i {
					t.Errorf("token %d position = %d, want %d", i, tok.Position, i)
				}
				if tok.StartByte < prevEnd || tok.EndByte > len(input) || tok.StartByte >= tok.EndByte {
					t.Errorf("invalid byte offsets: start=%d end=%d input_len=%d", tok.StartByte, tok.EndByte, len(input))
				}
				if tok.Term == "" {
					t.Error("empty term produced")
				}
				prevEnd = tok.EndByte
			}
		}
	})
}
