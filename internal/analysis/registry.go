package analysis

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Default names the analyzer used for token content when none is given.
const Default = "whitespace"

var (
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
	ErrAnalyzerExists  = errors.New("analyzer already registered")
)

// Registry resolves the analyzer named by a token pattern set. Entries are
// add-only: a compiled set keeps the Analyzer it was built with, and a name
// must tokenize the same way for every set that uses it.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

// NewRegistry returns a Registry holding the built-in analyzers.
func NewRegistry() *Registry {
	return &Registry{analyzers: map[string]Analyzer{
		Default:     NewWhitespaceAnalyzer(),
		"lowercase": NewLowercaseAnalyzer(),
	}}
}

// Get resolves name. The empty name resolves to Default.
func (r *Registry) Get(name string) (Analyzer, error) {
	if name == "" {
		name = Default
	}
	r.mu.RLock()
	a, ok := r.analyzers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownAnalyzer, name, strings.Join(r.Names(), ", "))
	}
	return a, nil
}

// Register adds an analyzer under name. Names are never rebound.
func (r *Registry) Register(name string, a Analyzer) error {
	if name == "" {
		return errors.New("analyzer name is empty")
	}
	if a == nil {
		return fmt.Errorf("analyzer %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.analyzers[name]; ok {
		return fmt.Errorf("%w: %q", ErrAnalyzerExists, name)
	}
	r.analyzers[name] = a
	return nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.analyzers))
}
