package cse

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/summary"
	"github.com/rs/zerolog"
	"golang.org/x/tools/go/ssa"
)

// Executor explores a single function from symbolic inputs and collects
// every terminated path into a summary. An executor runs once.
type Executor struct {
	exec    *glee.Executor
	fn      *ssa.Function
	config  Config
	policy  policy
	globals *globalAnalysis
	manager *Manager // answers calls from summaries when set

	sum    *summary.Summary
	stats  RunStats
	haltOn []glee.ErrorReason

	// Context of the current run. Canceled by halt.
	ctx  context.Context
	halt context.CancelFunc

	logger zerolog.Logger
}

func (m *Manager) newExecutor(fn *ssa.Function) *Executor {
	e := &Executor{
		exec:    glee.NewExecutor(m.prog),
		fn:      fn,
		config:  m.config,
		policy:  newPolicy(m.config.Strategy, m.provider()),
		globals: m.globals,
		sum:     summary.New(fn),
		haltOn:  m.haltOn,
		logger:  m.logger.With().Str("fn", fn.String()).Logger(),
	}

	e.exec.Solver = m.solver
	e.exec.Logger = e.logger
	e.exec.MaxLoopUnroll = m.config.MaxLoopUnroll
	e.exec.MaxCallDepth = m.config.MaxCallDepth
	e.exec.TrackLazyGlobals = true
	if m.config.Compose {
		e.manager = m
		e.exec.CallInterceptor = e.intercept
	}
	return e
}

// Function returns the function being summarized.
func (e *Executor) Function() *ssa.Function { return e.fn }

// Stats returns the outcome counts of the run so far.
func (e *Executor) Stats() RunStats { return e.stats }

// Run explores the function until no live state remains or the run halts,
// and returns the summary. A halted run returns the paths collected so far.
// Canceling ctx abandons the run and returns the context's error.
func (e *Executor) Run(ctx context.Context) (*summary.Summary, error) {
	e.ctx, e.halt = context.WithCancel(ctx)
	defer e.halt()

	root := e.exec.NewState(e.fn)
	if err := e.initialize(root); err != nil {
		var unsupported *glee.UnsupportedError
		if !errors.As(err, &unsupported) {
			return nil, fmt.Errorf("cse: initialize %s: %w", e.fn, err)
		}

		// Inputs that cannot be made symbolic fail the whole domain.
		e.sum.SetDomain(root.Constraints())
		root.Fail(glee.ReasonUnhandled, "%s", unsupported.Error())
		e.terminate(root)
		return e.sum, nil
	}
	if err := e.policy.constrain(e, root); err != nil {
		return nil, fmt.Errorf("cse: constrain %s: %w", e.fn, err)
	}
	e.sum.SetDomain(root.Constraints())

	searcher := e.newSearcher()
	searcher.AddState(root)

	for searcher.Len() > 0 && e.ctx.Err() == nil {
		state := searcher.SelectState()
		if state == nil {
			break
		}

		e.exec.InhibitForking = e.sum.Len()+searcher.Len()+1 >= e.config.MaxStatesInSummary

		forks, err := e.exec.Step(state)
		e.stats.Steps++
		if err != nil {
			return nil, fmt.Errorf("cse: %s: %w", e.fn, err)
		}

		for _, s := range append([]*glee.ExecutionState{state}, forks...) {
			if s.Terminated() {
				e.terminate(s)
			} else {
				searcher.AddState(s)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Globals first touched through callees outside the function's package
	// are inputs too.
	for _, g := range e.exec.LazyGlobals() {
		e.sum.AddGlobal(summary.FormalGlobal{Global: g.Global, Array: g.Array})
	}

	e.logger.Debug().Str("stats", e.stats.String()).Msg("run complete")
	return e.sum, nil
}

func (e *Executor) newSearcher() glee.Searcher {
	switch e.config.Searcher {
	case "bfs":
		return glee.NewBFSSearcher()
	case "random":
		return glee.NewRandomSearcher(rand.New(rand.NewSource(1)))
	default:
		return glee.NewDFSSearcher()
	}
}
