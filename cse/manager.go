package cse

import (
	"context"
	"fmt"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/interval"
	"github.com/glee-cse/glee/summary"
	"github.com/rs/zerolog"
	"golang.org/x/tools/go/ssa"
)

// Manager computes function summaries on demand and caches them for the
// lifetime of the manager. Each function is explored at most once.
type Manager struct {
	prog    *ssa.Program
	solver  glee.Solver
	config  Config
	haltOn  []glee.ErrorReason
	globals *globalAnalysis

	intervals interval.Provider
	logger    zerolog.Logger

	cache      map[*ssa.Function]*summary.Summary
	inProgress map[*ssa.Function]struct{}
	stats      Stats
}

// Stats counts cache activity across a manager's lifetime.
type Stats struct {
	Runs   int // explorations started
	Hits   int // requests served from the cache
	Misses int // requests that required an exploration
	Halted int // explorations stopped by a halting error

	Paths RunStats // totals over every run
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager and its executors.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithIntervals sets the argument range provider used by the context
// sensitive strategy. Defaults to a call-site analysis of the program.
func WithIntervals(p interval.Provider) Option {
	return func(m *Manager) { m.intervals = p }
}

// NewManager returns a manager summarizing functions of prog.
func NewManager(prog *ssa.Program, solver glee.Solver, config Config, opts ...Option) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	haltOn, err := config.HaltReasons()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		prog:       prog,
		solver:     solver,
		config:     config,
		haltOn:     haltOn,
		globals:    newGlobalAnalysis(prog),
		logger:     zerolog.Nop(),
		cache:      make(map[*ssa.Function]*summary.Summary),
		inProgress: make(map[*ssa.Function]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Program returns the program being summarized.
func (m *Manager) Program() *ssa.Program { return m.prog }

// Config returns the manager's configuration.
func (m *Manager) Config() Config { return m.config }

// Stats returns the cache statistics.
func (m *Manager) Stats() Stats { return m.stats }

// Lookup returns the cached summary of fn without computing it.
func (m *Manager) Lookup(fn *ssa.Function) (*summary.Summary, bool) {
	s, ok := m.cache[fn]
	return s, ok
}

// InProgress returns true while fn is being explored.
func (m *Manager) InProgress(fn *ssa.Function) bool {
	_, ok := m.inProgress[fn]
	return ok
}

// Summary returns the summary of fn, exploring fn on the first request.
// Returns nil without an error when summaries are disabled.
//
// A run stopped by a halting error reason still publishes the paths it
// collected. A run abandoned because ctx was canceled publishes nothing.
func (m *Manager) Summary(ctx context.Context, fn *ssa.Function) (*summary.Summary, error) {
	if m.config.Strategy == StrategyNone {
		return nil, nil
	} else if s, ok := m.cache[fn]; ok {
		m.stats.Hits++
		return s, nil
	} else if m.InProgress(fn) {
		return nil, fmt.Errorf("cse: recursive summary of %s", fn)
	} else if fn.Blocks == nil {
		return nil, fmt.Errorf("cse: function without body: %s", fn)
	}
	m.stats.Misses++

	m.inProgress[fn] = struct{}{}
	defer delete(m.inProgress, fn)

	e := m.newExecutor(fn)
	m.stats.Runs++
	s, err := e.Run(ctx)
	m.stats.Paths.Add(e.Stats())
	if err != nil {
		return nil, err
	}
	if e.Stats().Halted {
		m.stats.Halted++
	}

	s.Freeze()
	m.cache[fn] = s

	m.logger.Info().
		Str("fn", fn.String()).
		Str("strategy", string(m.config.Strategy)).
		Int("normal", len(s.NormalPaths())).
		Int("error", len(s.ErrorPaths())).
		Bool("halted", e.Stats().Halted).
		Msg("summary")
	return s, nil
}

// provider returns the interval provider, computing the default one on
// first use by the context sensitive strategy.
func (m *Manager) provider() interval.Provider {
	if m.config.Strategy != StrategyCTX {
		return nil
	}
	if m.intervals == nil {
		m.intervals = interval.NewCallSites(m.prog)
	}
	return m.intervals
}
