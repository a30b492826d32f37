package cse_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/cse"
	"github.com/glee-cse/glee/z3"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var summarizeProgram struct {
	once sync.Once
	prog *ssa.Program
	err  error
}

// MustBuildProgram returns the shared program for ./testdata/summarize.
func MustBuildProgram(tb testing.TB) *ssa.Program {
	tb.Helper()
	summarizeProgram.once.Do(func() {
		summarizeProgram.prog, summarizeProgram.err = BuildProgram("./testdata/summarize")
	})
	if summarizeProgram.err != nil {
		tb.Fatal(summarizeProgram.err)
	}
	return summarizeProgram.prog
}

// BuildProgram builds an SSA program at the given path.
func BuildProgram(path string) (*ssa.Program, error) {
	initial, err := packages.Load(&packages.Config{Mode: packages.LoadAllSyntax}, path)
	if err != nil {
		return nil, err
	} else if packages.PrintErrors(initial) > 0 {
		return nil, fmt.Errorf("packages contain errors")
	}

	prog, pkgs := ssautil.AllPackages(initial, ssa.BuilderMode(0))
	for i, pkg := range pkgs {
		if pkg == nil {
			return nil, fmt.Errorf("cannot build SSA for package %s", initial[i])
		}
	}
	prog.Build()
	return prog, nil
}

// MustFindFunction returns the named function of the testdata package.
func MustFindFunction(tb testing.TB, prog *ssa.Program, name string) *ssa.Function {
	tb.Helper()
	for _, pkg := range prog.AllPackages() {
		if pkg.Pkg.Name() != "summarize" {
			continue
		} else if fn := pkg.Func(name); fn != nil {
			return fn
		}
	}
	tb.Fatalf("function %q not found", name)
	return nil
}

// Manager is a test wrapper for cse.Manager.
type Manager struct {
	*cse.Manager
	Solver *z3.Solver
}

// NewManager returns a manager over the testdata program with a Z3 solver.
func NewManager(tb testing.TB, config cse.Config, opts ...cse.Option) *Manager {
	tb.Helper()

	solver := z3.NewSolver()
	tb.Cleanup(func() {
		if err := solver.Close(); err != nil {
			tb.Fatal(err)
		}
	})

	m, err := cse.NewManager(MustBuildProgram(tb), solver, config, opts...)
	require.NoError(tb, err)
	return &Manager{Manager: m, Solver: solver}
}

// Satisfiable returns true if the conjunction of constraints has a model.
func (m *Manager) Satisfiable(tb testing.TB, constraints ...glee.Expr) bool {
	tb.Helper()
	ok, _, err := m.Solver.Solve(constraints, nil)
	require.NoError(tb, err)
	return ok
}

// MustModel returns values for arrays satisfying constraints.
func (m *Manager) MustModel(tb testing.TB, constraints []glee.Expr, arrays ...*glee.Array) [][]byte {
	tb.Helper()
	ok, values, err := m.Solver.Solve(constraints, arrays)
	require.NoError(tb, err)
	if !ok {
		tb.Fatalf("unsatisfiable constraints:\n%s", spew.Sdump(constraints))
	}
	return values
}

// MustEvaluate evaluates exprs under a single model of constraints.
func (m *Manager) MustEvaluate(tb testing.TB, constraints []glee.Expr, exprs ...glee.Expr) []uint64 {
	tb.Helper()
	arrays := glee.FindArrays(append(append([]glee.Expr(nil), constraints...), exprs...)...)
	values := m.MustModel(tb, constraints, arrays...)

	ee := glee.NewExprEvaluator(arrays, values)
	ee.AllowUnbound = true

	a := make([]uint64, len(exprs))
	for i, expr := range exprs {
		v, err := ee.Evaluate(expr)
		require.NoError(tb, err)
		a[i] = v.Value
	}
	return a
}
