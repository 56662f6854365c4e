package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"GoMatch/internal/config"
	"GoMatch/internal/engine"
	"GoMatch/internal/patternset"
)

var (
	ErrNoPatternSets        = errors.New("coordinator: no pattern sets to scan")
	ErrAllPatternSetsFailed = errors.New("coordinator: all pattern sets failed")
)

// Scanner is one compiled pattern set as seen by the coordinator.
type Scanner interface {
	Scan(ctx *engine.ScanContext, text string) ([]patternset.Hit, error)
}

// Resolver finds pattern sets by name.
type Resolver interface {
	Resolve(name string) (Scanner, error)
}

// Coordinator runs one text through several pattern sets in parallel and
// merges the per-set results. Every set gets its own scan limits.
type Coordinator struct {
	resolver Resolver
	cfg      config.ScanConfig
	logger   *slog.Logger
}

// New creates a Coordinator that applies cfg to every per-set scan.
func New(resolver Resolver, cfg config.ScanConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Request is a multi-set scan.
type Request struct {
	PatternSets []string
	Text        string

	// MaxMatches lowers the configured per-set limit when positive.
	MaxMatches int

	// Summary adds the most frequent patterns across all sets.
	Summary bool
}

// SetResult holds the hits of one pattern set.
type SetResult struct {
	Name      string           `json:"name"`
	TotalHits int              `json:"total_hits"`
	Truncated bool             `json:"truncated"`
	TimedOut  bool             `json:"timed_out"`
	Hits      []patternset.Hit `json:"hits"`
}

// SetError describes a pattern set that could not be scanned.
type SetError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Result is the merged outcome of a multi-set scan.
type Result struct {
	Status      string                `json:"status"` // "success", "partial", "error"
	TookMs      int64                 `json:"took_ms"`
	TotalHits   int                   `json:"total_hits"`
	Results     []SetResult           `json:"results"`
	TopPatterns []engine.PatternCount `json:"top_patterns,omitempty"`
	Errors      []SetError            `json:"errors,omitempty"`
}

// Scan fans req out to its pattern sets. Results keep the requested order;
// repeated names are scanned once. A set that stops at its match limit or
// deadline still counts as successful.
func (c *Coordinator) Scan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	names := dedupe(req.PatternSets)
	if len(names) == 0 {
		return nil, ErrNoPatternSets
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxMatches := c.cfg.MaxMatches
	if req.MaxMatches > 0 && (maxMatches == 0 || req.MaxMatches < maxMatches) {
		maxMatches = req.MaxMatches
	}

	outcomes := c.fanOut(ctx, names, req.Text, maxMatches)

	res := &Result{Results: make([]SetResult, 0, len(outcomes))}
	var all []patternset.Hit
	for _, o := range outcomes {
		if o.err != nil {
			res.Errors = append(res.Errors, SetError{Name: o.result.Name, Error: o.err.Error()})
			c.logger.Warn("pattern set scan failed",
				"patternset", o.result.Name,
				"error", o.err,
			)
			continue
		}
		res.Results = append(res.Results, o.result)
		res.TotalHits += o.result.TotalHits
		all = append(all, o.result.Hits...)
	}
	res.TookMs = time.Since(start).Milliseconds()

	if len(res.Results) == 0 {
		res.Status = "error"
		return res, ErrAllPatternSetsFailed
	}

	res.Status = "success"
	if len(res.Errors) > 0 {
		res.Status = "partial"
	}
	if req.Summary {
		res.TopPatterns = patternset.Summarize(all, c.cfg.TopK)
	}
	return res, nil
}

// outcome is an internal type for collecting fan-out results.
type outcome struct {
	result SetResult
	err    error
}

// fanOut scans every named set in parallel.
func (c *Coordinator) fanOut(ctx context.Context, names []string, text string, maxMatches int) []outcome {
	outcomes := make([]outcome, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			outcomes[i] = c.scanOne(ctx, name, text, maxMatches)
		}(i, name)
	}

	wg.Wait()
	return outcomes
}

func (c *Coordinator) scanOne(ctx context.Context, name, text string, maxMatches int) outcome {
	o := outcome{result: SetResult{Name: name}}

	s, err := c.resolver.Resolve(name)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", name, err)
		return o
	}

	sc := engine.NewScanContext(c.cfg.Timeout, maxMatches)
	if dl, ok := ctx.Deadline(); ok && (sc.Deadline.IsZero() || dl.Before(sc.Deadline)) {
		sc.Deadline = dl
	}

	hits, err := s.Scan(sc, text)
	if err != nil && !sc.Truncated() {
		o.err = fmt.Errorf("%s: %w", name, err)
		return o
	}
	if hits == nil {
		hits = []patternset.Hit{}
	}
	o.result.Hits = hits
	o.result.TotalHits = len(hits)
	o.result.Truncated = sc.Truncated()
	o.result.TimedOut = sc.TimedOut
	return o
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
