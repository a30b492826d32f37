package cse

import (
	"go/types"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/summary"
	"golang.org/x/tools/go/ssa"
)

// intercept answers a call from the callee's summary. Calls that cannot be
// mapped onto a summary are left to the executor, which steps into them.
func (e *Executor) intercept(state *glee.ExecutionState, instr *ssa.Call, fn *ssa.Function, args []glee.Binding) (bool, error) {
	if !e.composable(fn) {
		return false, nil
	}

	sum, err := e.manager.Summary(e.ctx, fn)
	if err != nil {
		return false, err
	} else if sum == nil || sum.Len() == 0 {
		return false, nil
	} else if leaksPointer(sum) {
		e.logger.Debug().Str("callee", fn.String()).Msg("pointer argument escapes, stepping in")
		return false, nil
	}

	r, targets, ok := e.bindActuals(state, sum, args)
	if !ok {
		return false, nil
	}
	e.stats.Composed++
	e.logger.Debug().Int("state", state.ID()).Str("callee", fn.String()).Int("paths", sum.Len()).Msg("compose")

	cur := state
	for _, p := range sum.NormalPaths() {
		if cur == nil {
			return true, nil
		}

		t, f, err := e.exec.Fork(cur, r.Expr(glee.Conjunction(p.Precondition...)))
		if err != nil {
			return true, err
		}
		if t != nil {
			if !p.Void {
				t.Bind(instr, r.Binding(p.Return))
			}
			applyEffects(t, r, targets, p.Effects)
		}
		cur = f
	}

	for _, p := range sum.ErrorPaths() {
		if cur == nil {
			return true, nil
		}

		t, f, err := e.exec.Fork(cur, r.Expr(glee.Conjunction(p.Precondition...)))
		if err != nil {
			return true, err
		}
		if t != nil {
			applyEffects(t, r, targets, p.Effects)
			t.Fail(p.Reason, "%s", p.Message)
		}
		cur = f
	}

	if cur != nil {
		cur.TerminateEarly("call to %s not covered by its summary", fn)
	}
	return true, nil
}

// composable returns true if calls to fn may be answered from a summary:
// fn has a body, takes scalar or pointer arguments, returns at most one
// scalar and is not currently being summarized.
func (e *Executor) composable(fn *ssa.Function) bool {
	switch {
	case e.manager == nil, fn.Blocks == nil, len(fn.FreeVars) > 0:
		return false
	case !e.exec.IsLittleEndian(), e.manager.InProgress(fn):
		return false
	}

	for _, param := range fn.Params {
		if !isScalar(param.Type()) && !isPointer(param.Type()) {
			return false
		}
	}

	switch results := fn.Signature.Results(); results.Len() {
	case 0:
		return true
	case 1:
		return isScalar(results.At(0).Type())
	default:
		return false
	}
}

// bindActuals maps the formal symbols of sum onto the caller's state. It
// returns the objects that stand for each pointer argument, keyed by
// argument index.
func (e *Executor) bindActuals(state *glee.ExecutionState, sum *summary.Summary, args []glee.Binding) (*glee.ArrayReplacer, map[int]*glee.MemoryObject, bool) {
	r := glee.NewArrayReplacer()
	r.Refresh = true
	targets := make(map[int]*glee.MemoryObject)
	width := e.exec.PointerWidth()

	for _, arg := range sum.Args() {
		actual, ok := args[arg.Index].(glee.Expr)
		if !ok {
			return nil, nil, false
		}

		if !arg.IsPointer() {
			r.Replace(arg.Array.ID, glee.NewBytesArray(actual))
			continue
		}

		// Pointers must name the start of an object of the pointee's size.
		addr, ok := actual.(*glee.ConstantExpr)
		if !ok {
			return nil, nil, false
		} else if addr.Value == 0 {
			r.Replace(arg.Array.ID, glee.NewBytesArray(glee.NewConstantExpr(0, width)))
			continue
		}

		os := state.ObjectAt(addr.Value)
		if os == nil || os.Object.ReadOnly || os.Object.Size != arg.Pointee.Size {
			return nil, nil, false
		}
		r.Replace(arg.Array.ID, glee.NewBytesArray(glee.NewConstantExpr(arg.PointeeBase, width)))
		r.Replace(arg.Pointee.ID, os.Array)
		targets[arg.Index] = os.Object
	}

	for _, g := range sum.Globals() {
		mo := state.Global(g.Global)
		if mo.ReadOnly && writesGlobal(sum, g.Global) {
			return nil, nil, false
		}
		r.Replace(g.Array.ID, state.Contents(mo))
	}
	return r, targets, true
}

// writesGlobal returns true if any path of sum has an effect on g.
func writesGlobal(sum *summary.Summary, g *ssa.Global) bool {
	for _, p := range sum.NormalPaths() {
		for _, effect := range p.Effects {
			if effect.Global == g {
				return true
			}
		}
	}
	for _, p := range sum.ErrorPaths() {
		for _, effect := range p.Effects {
			if effect.Global == g {
				return true
			}
		}
	}
	return false
}

// leaksPointer returns true if the value of a pointer argument of sum
// reaches a return value or a stored value. Such a value is an address in
// the callee's own address space and has no meaning in the caller. Reads
// through the pointer are fine: the address only indexes its pointee.
func leaksPointer(sum *summary.Summary) bool {
	v := &pointerUseVisitor{ids: make(map[uint64]bool)}
	for _, arg := range sum.Args() {
		if arg.IsPointer() {
			v.ids[arg.Array.ID] = true
		}
	}
	if len(v.ids) == 0 {
		return false
	}

	for _, p := range sum.NormalPaths() {
		if expr, ok := p.Return.(glee.Expr); ok && !p.Void {
			glee.WalkExpr(v, expr)
		}
		v.effects(p.Effects)
	}
	for _, p := range sum.ErrorPaths() {
		v.effects(p.Effects)
	}
	return v.found
}

// pointerUseVisitor finds reads of the given arrays outside of an index.
type pointerUseVisitor struct {
	ids   map[uint64]bool
	found bool
}

func (v *pointerUseVisitor) Visit(expr glee.Expr) (glee.Expr, glee.ExprVisitor) {
	sel, ok := expr.(*glee.SelectExpr)
	if !ok {
		return expr, v
	}
	if v.ids[sel.Array.ID] {
		v.found = true
	}
	v.updates(sel.Array)
	return expr, nil
}

func (v *pointerUseVisitor) updates(a *glee.Array) {
	for upd := a.Updates; upd != nil; upd = upd.Next {
		glee.WalkExpr(v, upd.Value)
	}
}

func (v *pointerUseVisitor) effects(effects []summary.Effect) {
	for _, effect := range effects {
		if effect.Contents != nil {
			v.updates(effect.Contents)
		}
		for _, w := range effect.Writes {
			glee.WalkExpr(v, w.Value)
		}
	}
}

// applyEffects replays the effects of a summarized path onto state.
func applyEffects(state *glee.ExecutionState, r *glee.ArrayReplacer, targets map[int]*glee.MemoryObject, effects []summary.Effect) {
	for _, effect := range effects {
		mo := targets[effect.Arg]
		if effect.Global != nil {
			mo = state.Global(effect.Global)
		}
		if mo == nil {
			continue // nil pointer argument, only reachable on infeasible paths
		}

		if !effect.IsWriteLog() {
			state.ApplyWrite(mo, glee.NewConstantExpr64(0), r.Array(effect.Contents))
			continue
		}
		for _, w := range effect.Writes {
			state.ApplyWrite(mo, r.Expr(w.Offset), r.Expr(w.Value))
		}
	}
}

func isScalar(typ types.Type) bool {
	basic, ok := typ.Underlying().(*types.Basic)
	return ok && basic.Info()&(types.IsBoolean|types.IsInteger) != 0
}

func isPointer(typ types.Type) bool {
	_, ok := typ.Underlying().(*types.Pointer)
	return ok
}
