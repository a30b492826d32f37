package cse

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/summary"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// globalAnalysis classifies the package-level variables of a program as
// constant or mutable and finds the globals each function can read.
// Results are computed per package on first use and shared by every run of
// a manager.
type globalAnalysis struct {
	prog *ssa.Program
	fns  map[*ssa.Package][]*ssa.Function

	scanned map[*ssa.Package]bool
	inits   map[*ssa.Global]*ssa.Const // constant initializer, nil for zero
	mutable map[*ssa.Global]bool
	reads   map[*ssa.Function][]*ssa.Global
}

func newGlobalAnalysis(prog *ssa.Program) *globalAnalysis {
	a := &globalAnalysis{
		prog:    prog,
		fns:     make(map[*ssa.Package][]*ssa.Function),
		scanned: make(map[*ssa.Package]bool),
		inits:   make(map[*ssa.Global]*ssa.Const),
		mutable: make(map[*ssa.Global]bool),
		reads:   make(map[*ssa.Function][]*ssa.Global),
	}
	for fn := range ssautil.AllFunctions(prog) {
		if pkg := packageOf(fn); pkg != nil && fn.Blocks != nil {
			a.fns[pkg] = append(a.fns[pkg], fn)
		}
	}
	return a
}

// IsConstant returns true if g is only assigned a constant by the package
// initializer and its address never escapes.
func (a *globalAnalysis) IsConstant(g *ssa.Global) bool {
	a.scan(g.Pkg)
	return !a.mutable[g]
}

// Initializer returns the constant assigned to g by the package
// initializer, or nil if g is zero-initialized.
func (a *globalAnalysis) Initializer(g *ssa.Global) *ssa.Const {
	a.scan(g.Pkg)
	return a.inits[g]
}

func (a *globalAnalysis) scan(pkg *ssa.Package) {
	if pkg == nil || a.scanned[pkg] {
		return
	}
	a.scanned[pkg] = true

	init := pkg.Func("init")
	var operands []*ssa.Value
	for _, fn := range a.fns[pkg] {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				store, _ := instr.(*ssa.Store)
				if store != nil {
					if g, ok := store.Addr.(*ssa.Global); ok {
						a.assign(g, fn == init, store.Val)
					}
				}

				operands = instr.Operands(operands[:0])
				for _, op := range operands {
					g, ok := (*op).(*ssa.Global)
					if !ok {
						continue
					} else if store != nil && op == &store.Addr {
						continue
					} else if load, ok := instr.(*ssa.UnOp); ok && load.Op == token.MUL {
						continue
					}
					a.mutable[g] = true
				}
			}
		}
	}
}

// assign records a store of val into g.
func (a *globalAnalysis) assign(g *ssa.Global, initializer bool, val ssa.Value) {
	c, ok := val.(*ssa.Const)
	if !initializer || !ok || !glee.IsExprType(c.Type()) {
		a.mutable[g] = true
		return
	}
	if _, dup := a.inits[g]; dup {
		a.mutable[g] = true
		return
	}
	a.inits[g] = c
}

// Reads returns the globals referenced by fn and its same-package static
// callees, transitively, in order of first reference.
func (a *globalAnalysis) Reads(fn *ssa.Function) []*ssa.Global {
	if globals, ok := a.reads[fn]; ok {
		return globals
	}

	var globals []*ssa.Global
	seenGlobals := make(map[*ssa.Global]bool)
	seenFns := make(map[*ssa.Function]bool)

	var operands []*ssa.Value
	for queue := []*ssa.Function{fn}; len(queue) > 0; {
		cur := queue[0]
		queue = queue[1:]
		if seenFns[cur] {
			continue
		}
		seenFns[cur] = true

		for _, b := range cur.Blocks {
			for _, instr := range b.Instrs {
				if call, ok := instr.(ssa.CallInstruction); ok {
					if callee := call.Common().StaticCallee(); callee != nil && packageOf(callee) == packageOf(cur) {
						queue = append(queue, callee)
					}
				}

				operands = instr.Operands(operands[:0])
				for _, op := range operands {
					if g, ok := (*op).(*ssa.Global); ok && !seenGlobals[g] {
						seenGlobals[g] = true
						globals = append(globals, g)
					}
				}
			}
		}
	}

	a.reads[fn] = globals
	return globals
}

// packageOf returns the package a function belongs to, following closures
// and instantiations to their origin.
func packageOf(fn *ssa.Function) *ssa.Package {
	for fn.Parent() != nil {
		fn = fn.Parent()
	}
	if fn.Pkg == nil && fn.Origin() != nil {
		return fn.Origin().Pkg
	}
	return fn.Pkg
}

// initialize binds the globals and formal arguments of the run's root state
// and records their symbols on the summary.
func (e *Executor) initialize(state *glee.ExecutionState) error {
	little := e.exec.IsLittleEndian()

	for _, g := range e.globals.Reads(e.fn) {
		if state.IsGlobalBound(g) {
			continue
		}
		size := e.exec.Sizeof(deref(g.Type())) / 8

		if !e.globals.IsConstant(g) {
			array := glee.NewSymbolicArray("global_"+g.Name(), size)
			state.BindGlobal(g, array, false, true)
			e.sum.AddGlobal(summary.FormalGlobal{Global: g, Array: array})
			continue
		}

		array := glee.NewZeroArray(size)
		if c := e.globals.Initializer(g); c != nil {
			if value, ok := state.Eval(c).(glee.Expr); ok {
				array = array.Store(glee.NewConstantExpr64(0), value, little)
			}
		}
		state.BindGlobal(g, array, true, false)
	}

	for i, param := range e.fn.Params {
		arg, err := e.bindParam(state, i, param)
		if err != nil {
			return err
		}
		e.sum.AddArg(arg)
	}
	return nil
}

// bindParam binds a fresh symbolic value to the i-th parameter.
func (e *Executor) bindParam(state *glee.ExecutionState, i int, param *ssa.Parameter) (summary.FormalArg, error) {
	little := e.exec.IsLittleEndian()
	name := fmt.Sprintf("arg_%s_%d", e.fn.Name(), i)
	arg := summary.FormalArg{Index: i, Param: param}

	switch typ := param.Type().Underlying().(type) {
	case *types.Basic:
		switch info := typ.Info(); {
		case info&(types.IsBoolean|types.IsInteger) != 0:
			arg.Array = glee.NewSymbolicArray(name, e.exec.Sizeof(typ)/8)
			state.BindParam(i, arg.Array.Select(glee.NewConstantExpr64(0), e.exec.Widthof(typ), little))
		case info&types.IsString != 0:
			arg.Array = glee.NewSymbolicArray(name, uint(e.config.StringArgLen))
			state.BindParam(i, arg.Array)
		default:
			return arg, &glee.UnsupportedError{Construct: fmt.Sprintf("argument of type %s", param.Type())}
		}

	case *types.Struct, *types.Array:
		arg.Array = glee.NewSymbolicArray(name, e.exec.Sizeof(typ)/8)
		state.BindParam(i, arg.Array)

	case *types.Pointer:
		size := e.exec.Sizeof(typ.Elem()) / 8 * uint(e.config.PointerArgElems)
		arg.Pointee = glee.NewSymbolicArray(param.Name()+"_pointee", size)
		mo := state.AllocArray(param.Name()+"_pointee", arg.Pointee)
		mo.Param, mo.ParamIndex = param, i
		arg.PointeeBase = mo.Address

		// The pointer names its own region or is nil.
		width := e.exec.PointerWidth()
		arg.Array = glee.NewSymbolicArray(name, width/8)
		p := arg.Array.Select(glee.NewConstantExpr64(0), width, little)
		state.AddConstraint(glee.NewBinaryExpr(glee.OR,
			glee.NewBinaryExpr(glee.EQ, p, glee.NewConstantExpr(mo.Address, width)),
			glee.NewBinaryExpr(glee.EQ, p, glee.NewConstantExpr(0, width)),
		))
		state.BindParam(i, p)

	default:
		return arg, &glee.UnsupportedError{Construct: fmt.Sprintf("argument of type %s", param.Type())}
	}
	return arg, nil
}

func deref(typ types.Type) types.Type {
	if p, ok := typ.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return typ
}
