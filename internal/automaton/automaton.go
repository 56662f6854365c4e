package automaton

// State is a handle to a node in a trie's arena.
type State uint32

const (
	// Root is the state of the empty prefix.
	Root State = 0

	// NoState marks an unset failure link. The root keeps it permanently:
	// it terminates every failure chain.
	NoState State = ^State(0)
)

// Automaton is the step-wise view of a built matcher, for callers that feed
// symbols one at a time instead of handing over a whole input.
//
// Properties:
//   - Deterministic: single successor per (state, symbol)
//   - Total: Step never fails; unknown symbols and states return to Root
type Automaton[K comparable] interface {
	// Start returns the initial state.
	Start() State

	// Step consumes one symbol, following failure links as needed.
	Step(state State, sym K) State

	// IsAccept returns true if some pattern ends at this state.
	IsAccept(state State) bool
}
