package cse

import (
	"go/types"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/interval"
	"github.com/glee-cse/glee/summary"
	"golang.org/x/tools/go/ssa"
)

// policy holds what differs between the exploration strategies. The
// exploration loop itself is shared.
type policy interface {
	// constrain narrows the root state after its inputs are bound.
	constrain(e *Executor, state *glee.ExecutionState) error

	// normalPath and errorPath summarize a terminated state.
	normalPath(e *Executor, state *glee.ExecutionState) *summary.NormalPath
	errorPath(e *Executor, state *glee.ExecutionState) *summary.ErrorPath
}

func newPolicy(strategy Strategy, provider interval.Provider) policy {
	switch strategy {
	case StrategyCTX:
		return &contextPolicy{provider: provider}
	case StrategyTD:
		return &topDownPolicy{}
	default:
		return &bottomUpPolicy{}
	}
}

// bottomUpPolicy explores from unconstrained inputs and records the final
// contents of every modified object.
type bottomUpPolicy struct{}

func (*bottomUpPolicy) constrain(e *Executor, state *glee.ExecutionState) error { return nil }

func (*bottomUpPolicy) normalPath(e *Executor, state *glee.ExecutionState) *summary.NormalPath {
	return newNormalPath(e.fn, state, finalEffects(state))
}

func (*bottomUpPolicy) errorPath(e *Executor, state *glee.ExecutionState) *summary.ErrorPath {
	return newErrorPath(state, nil)
}

// contextPolicy is bottom-up exploration with integer arguments restricted
// to the ranges reported by an interval provider.
type contextPolicy struct {
	bottomUpPolicy
	provider interval.Provider
}

func (p *contextPolicy) constrain(e *Executor, state *glee.ExecutionState) error {
	if p.provider == nil {
		return nil
	}

	for _, arg := range e.sum.Args() {
		basic, ok := arg.Param.Type().Underlying().(*types.Basic)
		if !ok || basic.Info()&types.IsInteger == 0 {
			continue
		}

		r := p.provider.ArgRange(e.fn, arg.Index)
		if r.IsTop() || r.IsBot() {
			continue
		}

		x := state.MustEvalAsExpr(arg.Param)
		for _, cond := range rangeConstraints(x, r, basic.Info()&types.IsUnsigned != 0) {
			state.AddConstraint(cond)
		}
		e.logger.Debug().Int("arg", arg.Index).Str("range", r.String()).Msg("argument range")
	}
	return nil
}

// rangeConstraints returns lo <= x and x <= hi for the finite bounds of r
// that are representable at the width of x.
func rangeConstraints(x glee.Expr, r interval.Interval, unsigned bool) []glee.Expr {
	width := glee.ExprWidth(x)

	min, max := int64(-1)<<(width-1), int64(1)<<(width-1)-1
	op := glee.SLE
	if unsigned {
		min, max, op = 0, interval.MAX, glee.ULE
		if width < 64 {
			max = int64(1)<<width - 1
		}
	}

	var a []glee.Expr
	if lo := r.Lower(); lo != interval.MIN && lo >= min && lo <= max {
		a = append(a, glee.NewBinaryExpr(op, glee.NewConstantExpr(uint64(lo), width), x))
	}
	if hi := r.Upper(); hi != interval.MAX && hi >= min && hi <= max {
		a = append(a, glee.NewBinaryExpr(op, x, glee.NewConstantExpr(uint64(hi), width)))
	}
	return a
}

// topDownPolicy records effects as ordered write logs, on error paths too.
type topDownPolicy struct{}

func (*topDownPolicy) constrain(e *Executor, state *glee.ExecutionState) error { return nil }

func (*topDownPolicy) normalPath(e *Executor, state *glee.ExecutionState) *summary.NormalPath {
	return newNormalPath(e.fn, state, writeLogEffects(state))
}

func (*topDownPolicy) errorPath(e *Executor, state *glee.ExecutionState) *summary.ErrorPath {
	return newErrorPath(state, writeLogEffects(state))
}

func newNormalPath(fn *ssa.Function, state *glee.ExecutionState, effects []summary.Effect) *summary.NormalPath {
	p := &summary.NormalPath{
		Precondition: append([]glee.Expr(nil), state.Constraints()...),
		Void:         fn.Signature.Results().Len() == 0,
		Effects:      effects,
	}
	if !p.Void {
		p.Return = state.Result()
	}
	return p
}

func newErrorPath(state *glee.ExecutionState, effects []summary.Effect) *summary.ErrorPath {
	return &summary.ErrorPath{
		Precondition: append([]glee.Expr(nil), state.Constraints()...),
		Reason:       state.ErrorReason(),
		Message:      state.Reason(),
		Effects:      effects,
	}
}

// finalEffects returns the final contents of every tracked object the
// state modified.
func finalEffects(state *glee.ExecutionState) []summary.Effect {
	var effects []summary.Effect
	for _, mo := range state.Modified() {
		if contents := state.Contents(mo); contents != nil {
			effect := newEffect(mo)
			effect.Contents = contents
			effects = append(effects, effect)
		}
	}
	return effects
}

// writeLogEffects returns the writes to every tracked object the state
// modified, in program order per object.
func writeLogEffects(state *glee.ExecutionState) []summary.Effect {
	modified := state.Modified()
	index := make(map[*glee.MemoryObject]int, len(modified))
	effects := make([]summary.Effect, len(modified))
	for i, mo := range modified {
		index[mo], effects[i] = i, newEffect(mo)
	}

	for _, w := range state.Writes() {
		effect := &effects[index[w.Object]]
		effect.Writes = append(effect.Writes, summary.Write{Offset: w.Offset, Value: w.Value})
	}
	return effects
}

func newEffect(mo *glee.MemoryObject) summary.Effect {
	if mo.Global != nil {
		return summary.Effect{Global: mo.Global, Arg: -1}
	}
	return summary.Effect{Arg: mo.ParamIndex}
}
