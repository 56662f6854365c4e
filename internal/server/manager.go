package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"GoMatch/internal/analysis"
	"GoMatch/internal/coordinator"
	"GoMatch/internal/engine"
	"GoMatch/internal/patternset"
	"GoMatch/internal/storage"
)

var (
	ErrPatternSetNotFound = errors.New("pattern set not found")
	ErrPatternSetExists   = errors.New("pattern set already exists")
	ErrPersistFailed      = errors.New("pattern set persistence failed")
)

// Source records where a pattern set came from.
const (
	SourceFile = "file"
	SourceAPI  = "api"
)

// PatternSetInstance holds a compiled pattern set and its usage counters.
// The matcher is immutable, so instances are shared by concurrent scans
// without locking.
type PatternSetInstance struct {
	Name      string
	Matcher   patternset.Matcher
	Source    string
	CreatedAt time.Time

	// Checksum of the stored file; empty unless the set was persisted.
	Checksum storage.Checksum

	scans atomic.Int64
	hits  atomic.Int64
}

// RecordScan updates the usage counters after a scan.
func (p *PatternSetInstance) RecordScan(hits int) {
	p.scans.Add(1)
	p.hits.Add(int64(hits))
}

// Scan runs the matcher and updates the usage counters.
func (p *PatternSetInstance) Scan(ctx *engine.ScanContext, text string) ([]patternset.Hit, error) {
	hits, err := p.Matcher.Scan(ctx, text)
	p.RecordScan(len(hits))
	return hits, err
}

// Info summarizes the pattern set for API responses.
func (p *PatternSetInstance) Info() map[string]interface{} {
	def := p.Matcher.Definition()
	info := map[string]interface{}{
		"name":          p.Name,
		"content":       def.Content,
		"pattern_count": p.Matcher.Len(),
		"source":        p.Source,
		"created_at":    p.CreatedAt,
		"scans":         p.scans.Load(),
		"hits":          p.hits.Load(),
	}
	if def.Analyzer != "" {
		info["analyzer"] = def.Analyzer
	}
	if def.Alphabet != "" {
		info["alphabet"] = def.Alphabet
	}
	if p.Checksum != "" {
		info["checksum"] = p.Checksum
	}
	return info
}

// Manager manages the compiled pattern sets of a single process.
type Manager struct {
	registry *analysis.Registry
	logger   *slog.Logger

	// store, when set, keeps API-created sets across restarts.
	store *storage.Store

	mu   sync.RWMutex
	sets map[string]*PatternSetInstance
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: analysis.NewRegistry(),
		logger:   logger.With("component", "patternsets"),
		sets:     make(map[string]*PatternSetInstance),
	}
}

// SetStore enables persistence of API-created pattern sets.
func (m *Manager) SetStore(store *storage.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

// LoadDir compiles every pattern file in dir. Files the store wrote are
// registered as API sets again, so deleting them stays durable; every other
// file is deployment content and is never touched.
func (m *Manager) LoadDir(dir string) error {
	defs, err := patternset.LoadDir(dir)
	if err != nil {
		return err
	}

	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()

	for _, def := range defs {
		source, sum := SourceFile, storage.Checksum("")
		if store != nil {
			if s, owned := store.Owned(def.Name); owned {
				source, sum = SourceAPI, s
			}
		}

		m.logger.Info("loading pattern set", "name", def.Name, "dir", dir, "source", source)
		inst, err := m.add(def, source, false, sum)
		if err != nil {
			return fmt.Errorf("pattern set %q: %w", def.Name, err)
		}
		m.logger.Info("pattern set loaded",
			"name", inst.Name,
			"patterns", inst.Matcher.Len(),
		)
	}
	return nil
}

// Create compiles def and registers it under def.Name. API sets are saved
// when a store is set.
func (m *Manager) Create(def *patternset.Definition, source string) (*PatternSetInstance, error) {
	return m.add(def, source, source == SourceAPI, "")
}

func (m *Manager) add(def *patternset.Definition, source string, persist bool, sum storage.Checksum) (*PatternSetInstance, error) {
	m.mu.RLock()
	_, exists := m.sets[def.Name]
	m.mu.RUnlock()
	if exists {
		return nil, ErrPatternSetExists
	}

	// Compile outside the lock; large sets take a while.
	start := time.Now()
	matcher, err := patternset.Compile(def, m.registry)
	if err != nil {
		return nil, err
	}

	inst := &PatternSetInstance{
		Name:      def.Name,
		Matcher:   matcher,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Checksum:  sum,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sets[def.Name]; exists {
		return nil, ErrPatternSetExists
	}
	if persist && m.store != nil {
		sum, err := m.store.Save(def)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
		inst.Checksum = sum
	}
	m.sets[def.Name] = inst
	m.logger.Info("pattern set created",
		"name", def.Name,
		"source", source,
		"patterns", matcher.Len(),
		"compile_ms", time.Since(start).Milliseconds(),
	)
	return inst, nil
}

// Delete removes a pattern set. Scans already holding it finish normally.
// Only files the store wrote are removed; a set loaded from a deployed file
// comes back on the next start.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.sets[name]
	if !exists {
		return ErrPatternSetNotFound
	}
	if m.store != nil && inst.Source == SourceAPI {
		if err := m.store.Remove(name); err != nil && !errors.Is(err, storage.ErrNotOwned) {
			return fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
	}
	if inst.Source == SourceFile {
		m.logger.Warn("deleted pattern set is file-backed and reloads on restart", "name", name)
	}
	delete(m.sets, name)
	m.logger.Info("pattern set deleted", "name", name)
	return nil
}

// Get returns the pattern set registered under name.
func (m *Manager) Get(name string) (*PatternSetInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, exists := m.sets[name]
	if !exists {
		return nil, ErrPatternSetNotFound
	}
	return inst, nil
}

// Resolve looks up a pattern set for a multi-set scan.
func (m *Manager) Resolve(name string) (coordinator.Scanner, error) {
	inst, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// List returns the names of all pattern sets, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sets))
	for name := range m.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
