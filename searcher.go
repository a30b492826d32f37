package glee

import (
	"math/rand"
)

// Searcher represents a strategy for finding the next execution state to execute.
type Searcher interface {
	// Returns the next state to explore.
	SelectState() *ExecutionState

	// Adds states to the current searcher.
	AddState(state *ExecutionState)

	// Returns the number of states waiting to be explored.
	Len() int
}

var _ Searcher = (*MultiSearcher)(nil)

// MultiSearcher represents a Searcher that chooses a searcher round-robin.
// States are shared between the underlying searchers; a state selected by
// one searcher is skipped by the others.
type MultiSearcher struct {
	searchers []Searcher
	index     int
	live      map[*ExecutionState]struct{}
}

// NewMultiSearcher returns a new instance of MultiSearcher.
func NewMultiSearcher(searchers ...Searcher) *MultiSearcher {
	return &MultiSearcher{
		searchers: searchers,
		live:      make(map[*ExecutionState]struct{}),
	}
}

// SelectState returns the next state to explore from the next searcher.
func (s *MultiSearcher) SelectState() *ExecutionState {
	for range s.searchers {
		searcher := s.searchers[s.index]
		if s.index++; s.index >= len(s.searchers) {
			s.index = 0
		}

		for state := searcher.SelectState(); state != nil; state = searcher.SelectState() {
			if _, ok := s.live[state]; ok {
				delete(s.live, state)
				return state
			}
		}
	}
	return nil
}

// AddState adds a new state to the searcher.
func (s *MultiSearcher) AddState(state *ExecutionState) {
	s.live[state] = struct{}{}
	for _, searcher := range s.searchers {
		searcher.AddState(state)
	}
}

// Len returns the number of states that have not been selected.
func (s *MultiSearcher) Len() int { return len(s.live) }

// DFSSearcher represents a searcher with a depth-first search strategy.
type DFSSearcher struct {
	states []*ExecutionState
}

// NewDFSSearcher returns a new instance of DFSSearcher.
func NewDFSSearcher() *DFSSearcher {
	return &DFSSearcher{}
}

// SelectState returns the next execution state to explore.
func (s *DFSSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	state := s.states[len(s.states)-1]
	s.states[len(s.states)-1] = nil
	s.states = s.states[:len(s.states)-1]
	return state
}

// AddState adds a new state to the searcher.
func (s *DFSSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

// Len returns the number of queued states.
func (s *DFSSearcher) Len() int { return len(s.states) }

// BFSSearcher represents a searcher with a breadth-first search strategy.
type BFSSearcher struct {
	states []*ExecutionState
}

// NewBFSSearcher returns a new instance of BFSSearcher.
func NewBFSSearcher() *BFSSearcher {
	return &BFSSearcher{}
}

// SelectState returns the next execution state to explore.
func (s *BFSSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	state := s.states[0]
	s.states[0] = nil
	s.states = s.states[1:]
	return state
}

// AddState adds a new state to the searcher.
func (s *BFSSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

// Len returns the number of queued states.
func (s *BFSSearcher) Len() int { return len(s.states) }

// RandomSearcher selects a uniformly random queued state.
type RandomSearcher struct {
	states []*ExecutionState
	rand   *rand.Rand
}

func NewRandomSearcher(rand *rand.Rand) *RandomSearcher {
	return &RandomSearcher{
		rand: rand,
	}
}

// SelectState returns a random execution state to explore.
func (s *RandomSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	i := s.rand.Intn(len(s.states))
	state := s.states[i]
	s.states = append(s.states[:i], s.states[i+1:]...)
	return state
}

// AddState adds a new state to the searcher.
func (s *RandomSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

// Len returns the number of queued states.
func (s *RandomSearcher) Len() int { return len(s.states) }
