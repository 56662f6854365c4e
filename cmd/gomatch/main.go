// Command gomatch scans files or standard input for every occurrence of the
// patterns in a pattern file and prints the hits as JSON, one document per
// input.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tidwall/pretty"

	"GoMatch/internal/engine"
	"GoMatch/internal/patternset"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	patterns   string
	content    string
	analyzer   string
	alphabet   string
	pretty     bool
	maxMatches int
	top        int
	verbose    bool
}

// result is printed once per scanned input.
type result struct {
	Input       string                `json:"input"`
	TotalHits   int                   `json:"total_hits"`
	Truncated   bool                  `json:"truncated,omitempty"`
	Hits        []patternset.Hit      `json:"hits"`
	TopPatterns []engine.PatternCount `json:"top_patterns,omitempty"`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gomatch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.patterns, "patterns", "", "pattern file (.yaml, .yml or one pattern per line)")
	fs.StringVar(&opts.content, "content", "", "override content type: bytes, runes or tokens")
	fs.StringVar(&opts.analyzer, "analyzer", "", "override analyzer for token content")
	fs.StringVar(&opts.alphabet, "alphabet", "", "override root alphabet")
	fs.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	fs.IntVar(&opts.maxMatches, "max-matches", 0, "stop each scan after this many hits (0 = unlimited)")
	fs.IntVar(&opts.top, "top", 0, "also report the N most frequent patterns")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: gomatch -patterns FILE [flags] [FILES...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.patterns == "" {
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	matcher, err := compile(opts)
	if err != nil {
		logger.Error("failed to compile patterns", "file", opts.patterns, "error", err)
		return 1
	}
	logger.Debug("patterns compiled",
		"name", matcher.Definition().Name,
		"content", matcher.Definition().Content,
		"patterns", matcher.Len(),
	)

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	status := 0
	for _, input := range inputs {
		res, err := scanInput(matcher, input, stdin, opts)
		if err != nil {
			logger.Error("scan failed", "input", input, "error", err)
			status = 1
			continue
		}
		if res.Truncated {
			logger.Warn("scan truncated", "input", input, "hits", res.TotalHits)
		}
		if err := printJSON(stdout, res, opts.pretty); err != nil {
			logger.Error("failed to write output", "error", err)
			return 1
		}
	}
	return status
}

func compile(opts options) (patternset.Matcher, error) {
	def, err := patternset.LoadFile(opts.patterns)
	if err != nil {
		return nil, err
	}
	if opts.content != "" {
		def.Content = patternset.Content(opts.content)
		if def.Content != patternset.ContentTokens {
			def.Analyzer = ""
		}
	}
	if opts.analyzer != "" {
		def.Analyzer = opts.analyzer
	}
	if opts.alphabet != "" {
		def.Alphabet = opts.alphabet
	}
	return patternset.Compile(def, nil)
}

func scanInput(m patternset.Matcher, input string, stdin io.Reader, opts options) (*result, error) {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, err
	}

	ctx := engine.NewScanContext(0, opts.maxMatches)
	hits, err := m.Scan(ctx, string(data))
	if err != nil && !errors.Is(err, engine.ErrMatchLimitExceeded) {
		return nil, err
	}
	if hits == nil {
		hits = []patternset.Hit{}
	}

	res := &result{
		Input:     input,
		TotalHits: len(hits),
		Truncated: ctx.Truncated(),
		Hits:      hits,
	}
	if opts.top > 0 {
		res.TopPatterns = patternset.Summarize(hits, opts.top)
	}
	return res, nil
}

func printJSON(w io.Writer, v interface{}, indent bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if indent {
		data = pretty.Pretty(data)
	} else {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}
