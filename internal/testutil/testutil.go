package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"GoMatch/internal/patternset"
)

// ClassicPatterns is the textbook Aho-Corasick dictionary.
var ClassicPatterns = []string{"he", "her", "hers", "his", "she", "hi", "him", "man", "himan"}

// WithTempDir creates a temporary directory, calls fn with its path,
// and cleans up afterwards.
func WithTempDir(t *testing.T, fn func(dir string)) {
	t.Helper()
	dir := t.TempDir()
	fn(dir)
}

// ClassicDefinition returns a byte pattern set over ClassicPatterns.
func ClassicDefinition(name string) *patternset.Definition {
	def := &patternset.Definition{Name: name}
	for _, p := range ClassicPatterns {
		def.Patterns = append(def.Patterns, patternset.Pattern{Text: p})
	}
	return def
}

// PhraseDefinition returns a token pattern set of multi-word phrases.
func PhraseDefinition(name string) *patternset.Definition {
	return &patternset.Definition{
		Name:     name,
		Content:  patternset.ContentTokens,
		Analyzer: "lowercase",
		Patterns: []patternset.Pattern{
			{Text: "new york", Value: "city"},
			{Text: "new york city", Value: "city"},
			{Text: "york", Value: "name"},
			{Text: "san francisco", Value: "city"},
		},
	}
}

// WritePatternFile writes content to dir/name and returns the full path.
func WritePatternFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

// RandomWords returns n pseudo-random lowercase words drawn from a fixed
// seed, so benchmarks and stress tests are reproducible.
func RandomWords(n, minLen, maxLen int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	words := make([]string, n)
	for i := range words {
		l := minLen
		if maxLen > minLen {
			l += rng.Intn(maxLen - minLen + 1)
		}
		var sb strings.Builder
		for j := 0; j < l; j++ {
			sb.WriteByte(byte('a' + rng.Intn(26)))
		}
		words[i] = sb.String()
	}
	return words
}

// RandomText joins words drawn from vocab with single spaces.
func RandomText(vocab []string, n int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(vocab[rng.Intn(len(vocab))])
	}
	return sb.String()
}
