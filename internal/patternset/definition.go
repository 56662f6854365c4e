package patternset

import (
	"errors"
	"fmt"
	"regexp"

	"GoMatch/internal/analysis"
)

// Content selects the symbol type a pattern set is matched over.
type Content string

const (
	// ContentBytes matches raw bytes. Default.
	ContentBytes Content = "bytes"
	// ContentRunes matches decoded code points.
	ContentRunes Content = "runes"
	// ContentTokens matches analyzer tokens, so each pattern is a sequence
	// of words.
	ContentTokens Content = "tokens"
)

// Default analyzer for token content.
const DefaultAnalyzer = analysis.Default

var (
	ErrNoName     = errors.New("pattern set name is required")
	ErrNoPatterns = errors.New("pattern set has no patterns")
)

// Names double as URL path segments and file names.
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Pattern is one searchable string and the value reported when it matches.
// An empty Value reports Text.
type Pattern struct {
	Text  string `yaml:"text" json:"text"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Definition describes a named pattern set before compilation.
type Definition struct {
	Name     string  `yaml:"name" json:"name"`
	Content  Content `yaml:"content,omitempty" json:"content,omitempty"`
	Analyzer string  `yaml:"analyzer,omitempty" json:"analyzer,omitempty"`

	// Alphabet names the symbol range the automaton root is made total over:
	// "bytes" or "ascii" for byte content, "latin1", "ascii" or "bmp" for rune
	// content. Token content always uses the tokens of its patterns.
	Alphabet string `yaml:"alphabet,omitempty" json:"alphabet,omitempty"`

	Patterns []Pattern `yaml:"patterns" json:"patterns"`
}

// Normalize fills in defaults.
func (d *Definition) Normalize() {
	if d.Content == "" {
		d.Content = ContentBytes
	}
	if d.Content == ContentTokens && d.Analyzer == "" {
		d.Analyzer = DefaultAnalyzer
	}
	for i := range d.Patterns {
		if d.Patterns[i].Value == "" {
			d.Patterns[i].Value = d.Patterns[i].Text
		}
	}
}

// Validate checks the definition. Call Normalize first.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return ErrNoName
	}
	if !validName.MatchString(d.Name) {
		return fmt.Errorf("invalid pattern set name %q", d.Name)
	}
	switch d.Content {
	case ContentBytes, ContentRunes, ContentTokens:
	default:
		return fmt.Errorf("unknown content type: %q", d.Content)
	}
	if d.Analyzer != "" && d.Content != ContentTokens {
		return fmt.Errorf("analyzer %q requires %s content", d.Analyzer, ContentTokens)
	}
	if _, err := alphabetFor(d.Content, d.Alphabet); err != nil {
		return err
	}

	n := 0
	for _, p := range d.Patterns {
		if p.Text != "" {
			n++
		}
	}
	if n == 0 {
		return ErrNoPatterns
	}
	return nil
}

type alphabetKind int

const (
	alphabetBytes alphabetKind = iota
	alphabetASCII
	alphabetLatin1
	alphabetBMP
	alphabetPatterns
)

func alphabetFor(content Content, name string) (alphabetKind, error) {
	switch content {
	case ContentBytes:
		switch name {
		case "", "bytes":
			return alphabetBytes, nil
		case "ascii":
			return alphabetASCII, nil
		}
	case ContentRunes:
		switch name {
		case "", "latin1":
			return alphabetLatin1, nil
		case "ascii":
			return alphabetASCII, nil
		case "bmp":
			return alphabetBMP, nil
		}
	case ContentTokens:
		if name == "" || name == "patterns" {
			return alphabetPatterns, nil
		}
	}
	return 0, fmt.Errorf("alphabet %q not supported for %s content", name, content)
}
