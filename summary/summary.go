// Package summary holds the function summaries produced by compositional
// symbolic execution. A summary records, per explored path, the path's
// precondition, its outcome, and its effects on globals and pointer
// arguments so callers can reuse it instead of re-exploring the function.
package summary

import (
	"fmt"

	"github.com/glee-cse/glee"
	"golang.org/x/tools/go/ssa"
)

// Summary aggregates every explored path of one function. It is append-only
// until frozen and immutable afterwards.
type Summary struct {
	fn          *ssa.Function
	fingerprint uint64

	args    []FormalArg
	globals []FormalGlobal
	domain  []glee.Expr
	context glee.Expr

	normal []*NormalPath
	errors []*ErrorPath

	frozen bool
}

// New returns an empty summary for fn.
func New(fn *ssa.Function) *Summary {
	return &Summary{
		fn:          fn,
		fingerprint: Fingerprint(fn),
		context:     glee.NewBoolConstantExpr(false),
	}
}

// Function returns the summarized function.
func (s *Summary) Function() *ssa.Function { return s.fn }

// Fingerprint returns the hash of the function's SSA listing at the time the
// summary was created.
func (s *Summary) Fingerprint() uint64 { return s.fingerprint }

// Args returns a copy of the symbols bound to the formal arguments.
func (s *Summary) Args() []FormalArg { return append([]FormalArg(nil), s.args...) }

// Globals returns the symbols bound to the mutable globals the function reads.
func (s *Summary) Globals() []FormalGlobal { return append([]FormalGlobal(nil), s.globals...) }

// Domain returns the constraints present in the root state of the run.
func (s *Summary) Domain() []glee.Expr { return append([]glee.Expr(nil), s.domain...) }

// Context returns the disjunction of every path precondition. It is false
// for a summary without paths.
func (s *Summary) Context() glee.Expr { return s.context }

// NormalPaths returns a copy of the paths that returned normally. The paths
// themselves are shared and must not be modified once the summary is frozen.
func (s *Summary) NormalPaths() []*NormalPath { return append([]*NormalPath(nil), s.normal...) }

// ErrorPaths returns a copy of the paths that failed or exited. The paths
// themselves are shared and must not be modified once the summary is frozen.
func (s *Summary) ErrorPaths() []*ErrorPath { return append([]*ErrorPath(nil), s.errors...) }

// Len returns the total number of paths.
func (s *Summary) Len() int { return len(s.normal) + len(s.errors) }

// Frozen returns true once the summary has been published.
func (s *Summary) Frozen() bool { return s.frozen }

// Freeze marks the summary as immutable.
func (s *Summary) Freeze() { s.frozen = true }

// Arg returns the formal argument at index i, if it has a symbol.
func (s *Summary) Arg(i int) (FormalArg, bool) {
	for _, arg := range s.args {
		if arg.Index == i {
			return arg, true
		}
	}
	return FormalArg{}, false
}

// AddArg records the symbol bound to a formal argument.
func (s *Summary) AddArg(arg FormalArg) {
	s.mustNotBeFrozen()
	s.args = append(s.args, arg)
}

// AddGlobal records the symbol bound to a mutable global.
func (s *Summary) AddGlobal(g FormalGlobal) {
	s.mustNotBeFrozen()
	s.globals = append(s.globals, g)
}

// SetDomain records the initial constraints of the run.
func (s *Summary) SetDomain(domain []glee.Expr) {
	s.mustNotBeFrozen()
	s.domain = append([]glee.Expr(nil), domain...)
}

// AddNormalPath appends a normal path and widens the context.
func (s *Summary) AddNormalPath(p *NormalPath) {
	s.mustNotBeFrozen()
	s.normal = append(s.normal, p)
	s.widen(p.Precondition)
}

// AddErrorPath appends an error path and widens the context.
func (s *Summary) AddErrorPath(p *ErrorPath) {
	s.mustNotBeFrozen()
	s.errors = append(s.errors, p)
	s.widen(p.Precondition)
}

func (s *Summary) widen(precondition []glee.Expr) {
	s.context = glee.Disjunction(s.context, glee.Conjunction(precondition...))
}

func (s *Summary) mustNotBeFrozen() {
	if s.frozen {
		panic(fmt.Sprintf("summary: modification of frozen summary: %s", s.fn))
	}
}

// String returns a one-line description of the summary.
func (s *Summary) String() string {
	return fmt.Sprintf("(summary %s normal=%d error=%d)", s.fn, len(s.normal), len(s.errors))
}

// FormalArg is the symbol bound to a formal argument during summarization.
type FormalArg struct {
	Index int
	Param *ssa.Parameter

	// Root array read by the argument's value.
	Array *glee.Array

	// Initial contents of the synthetic pointee of a pointer argument and the
	// base address it was allocated at. Nil for non-pointer arguments.
	Pointee     *glee.Array
	PointeeBase uint64
}

// IsPointer returns true if the argument was bound to a synthetic pointee.
func (a FormalArg) IsPointer() bool { return a.Pointee != nil }

// FormalGlobal is the symbol bound to a mutable global during summarization.
type FormalGlobal struct {
	Global *ssa.Global
	Array  *glee.Array
}

// NormalPath summarizes a path that returned from the function.
type NormalPath struct {
	Precondition []glee.Expr
	Void         bool
	Return       glee.Binding
	Effects      []Effect
}

// Value returns the return value. Panic if the function returns nothing.
func (p *NormalPath) Value() glee.Binding {
	if p.Void {
		panic("summary: return value of void path")
	}
	return p.Return
}

// ErrorPath summarizes a path that failed or exited.
type ErrorPath struct {
	Precondition []glee.Expr
	Reason       glee.ErrorReason
	Message      string

	// Effects before the failure. Only recorded by write-log summaries.
	Effects []Effect
}

// Effect is the change a path makes to one tracked object. Final-value
// summaries set Contents; write-log summaries set Writes.
type Effect struct {
	Global *ssa.Global // set for globals
	Arg    int         // pointer argument index, -1 for globals

	Contents *glee.Array
	Writes   []Write
}

// Target returns a readable name for the modified object.
func (e Effect) Target() string {
	if e.Global != nil {
		return e.Global.Name()
	}
	return fmt.Sprintf("*arg%d", e.Arg)
}

// IsWriteLog returns true if the effect is an ordered write log.
func (e Effect) IsWriteLog() bool { return e.Contents == nil }

// Write is a single logged write, relative to the start of the object.
type Write struct {
	Offset glee.Expr
	Value  glee.Expr
}
