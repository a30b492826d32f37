package glee

import (
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/types/typeutil"
)

var (
	ErrNoStateAvailable       = errors.New("glee: no state available")
	ErrNoInstructionAvailable = errors.New("glee: no instruction available")
	ErrInvalidArch            = errors.New("glee: invalid architecture")
)

// CallInterceptor is consulted before the executor steps into a call to a
// function with a body. Returning true means the call has been fully handled
// on state (or on states forked from it) and the callee is not entered.
type CallInterceptor func(state *ExecutionState, instr *ssa.Call, fn *ssa.Function, args []Binding) (bool, error)

// Executor symbolically executes SSA functions of a single program.
type Executor struct {
	prog *ssa.Program                // entire program, ease-of-use var
	fns  map[funcKey]FunctionHandler // registered function handlers

	stateIDSeq  int // autoincrementing state ID
	objectIDSeq int // autoincrementing memory object ID

	// Mapping of types & functions to generated IDs and back. Interface
	// values store a type ID and function values store a function ID.
	typeIDs   typeutil.Map
	typesByID []types.Type
	funcIDs   map[*ssa.Function]uint64
	funcsByID []*ssa.Function

	// States forked off the state executing the current step.
	forks []*ExecutionState

	// Forked states that terminated during a step, pending return from
	// ExecuteNextState().
	terminated []*ExecutionState

	// Symbolic contents of globals bound on first use, in order of first
	// use. Shared by every state so a global names one array on all paths.
	lazyGlobals []LazyGlobal
	lazyIndex   map[*ssa.Global]int

	// Architecture used for type sizes & byte order.
	// See `go tool dist list` for a list of valid values.
	Arch string

	// Used for solving symbolic values.
	// Must set before execution.
	Solver Solver

	// Search strategy for ExecuteNextState(). Defaults to depth-first.
	Searcher Searcher

	// Logs instruction-level tracing at debug level.
	Logger zerolog.Logger

	// Per-frame limit on executions of a single instruction. States exceeding
	// it terminate early. Zero means unlimited.
	MaxLoopUnroll int

	// Limit on the call stack depth. Zero means unlimited.
	MaxCallDepth int

	// When set, a branch whose both sides are feasible follows only the
	// true side instead of forking.
	InhibitForking bool

	// Optional hook that may answer calls without stepping into them.
	CallInterceptor CallInterceptor

	// When set, globals bound on first use are tracked like explicitly
	// bound ones so their writes are recorded.
	TrackLazyGlobals bool
}

// LazyGlobal is a global that was given symbolic contents on first use.
type LazyGlobal struct {
	Global *ssa.Global
	Array  *Array
}

// NewExecutor returns a new instance of Executor for a program.
func NewExecutor(prog *ssa.Program) *Executor {
	e := &Executor{
		prog:    prog,
		fns:     make(map[funcKey]FunctionHandler),
		funcIDs: make(map[*ssa.Function]uint64),

		lazyIndex: make(map[*ssa.Global]int),

		Arch:     runtime.GOARCH,
		Searcher: NewDFSSearcher(),
		Logger:   zerolog.Nop(),
	}

	// Default registrations.
	e.Register(PackagePath, "Assert", execAssert)
	e.Register(PackagePath, "Check", execCheck)
	e.Register(PackagePath, "Report", execReport)
	e.Register(PackagePath, "Byte", execInt)
	e.Register(PackagePath, "Int", execInt)
	e.Register(PackagePath, "Int8", execInt)
	e.Register(PackagePath, "Int16", execInt)
	e.Register(PackagePath, "Int32", execInt)
	e.Register(PackagePath, "Int64", execInt)
	e.Register(PackagePath, "Uint", execInt)
	e.Register(PackagePath, "Uint8", execInt)
	e.Register(PackagePath, "Uint16", execInt)
	e.Register(PackagePath, "Uint32", execInt)
	e.Register(PackagePath, "Uint64", execInt)
	e.Register(PackagePath, "ByteSlice", execByteSlice)
	e.Register(PackagePath, "String", execString)
	e.Register("", "copy", execCopy)
	e.Register("", "len", execLen)
	e.Register("", "cap", execCap)
	e.Register("os", "Exit", execExit)

	return e
}

// LazyGlobals returns the globals bound on first use by any state, in order
// of first use.
func (e *Executor) LazyGlobals() []LazyGlobal {
	return append([]LazyGlobal(nil), e.lazyGlobals...)
}

// lazyGlobal returns the initial contents of a global bound on first use.
func (e *Executor) lazyGlobal(g *ssa.Global) *Array {
	if i, ok := e.lazyIndex[g]; ok {
		return e.lazyGlobals[i].Array
	}
	array := NewSymbolicArray("global_"+g.Name(), e.Sizeof(deref(g.Type()))/8)
	e.lazyIndex[g] = len(e.lazyGlobals)
	e.lazyGlobals = append(e.lazyGlobals, LazyGlobal{Global: g, Array: array})
	return array
}

// Program returns the program being executed.
func (e *Executor) Program() *ssa.Program { return e.prog }

// NewState returns a new root state positioned at the entry of fn.
func (e *Executor) NewState(fn *ssa.Function) *ExecutionState {
	state := newExecutionState(e, fn)
	state.id = e.nextStateID()
	return state
}

// nextStateID returns the next autoincrementing state ID.
func (e *Executor) nextStateID() int {
	e.stateIDSeq++
	return e.stateIDSeq
}

// nextObjectID returns the next autoincrementing memory object ID.
func (e *Executor) nextObjectID() int {
	e.objectIDSeq++
	return e.objectIDSeq
}

// Register registers a function handler for a given function.
// Every invocation of the given function will be delegated to the handler.
func (e *Executor) Register(path, name string, h FunctionHandler) {
	e.fns[funcKey{path, name}] = h
}

// ExecuteNextState selects a state from the searcher and steps it until it
// terminates or forks. Live states are returned to the searcher. Forked states
// that terminated immediately are returned by subsequent calls. This can be
// called continually until ErrNoStateAvailable is returned.
func (e *Executor) ExecuteNextState() (*ExecutionState, error) {
	if n := len(e.terminated); n > 0 {
		state := e.terminated[n-1]
		e.terminated = e.terminated[:n-1]
		return state, nil
	}

	state := e.Searcher.SelectState()
	if state == nil {
		return nil, ErrNoStateAvailable
	}

	e.Logger.Debug().Int("state", state.id).Str("pos", state.Position().String()).Msg("state begin")

	for {
		forks, err := e.Step(state)
		if err != nil {
			return state, err
		}
		for _, fork := range forks {
			if fork.Terminated() {
				e.terminated = append(e.terminated, fork)
			} else {
				e.Searcher.AddState(fork)
			}
		}
		if state.Terminated() {
			return state, nil
		} else if len(forks) > 0 {
			e.Searcher.AddState(state)
			return state, nil
		}
	}
}

// Step executes a single instruction of state and returns any states forked
// off it, including ones that already terminated. Program failures and
// unmodelled constructs terminate the affected state instead of returning an
// error; a solver timeout terminates it early. Returned errors indicate
// executor or solver failures.
func (e *Executor) Step(state *ExecutionState) ([]*ExecutionState, error) {
	if e.Sizes() == nil {
		return nil, ErrInvalidArch
	}
	assert(!state.Terminated(), "step of terminated state: status=%s", state.status)

	e.forks = nil
	err := e.executeNextInstruction(state)
	forks := e.forks
	e.forks = nil

	var runtimeErr *RuntimeError
	var unsupportedErr *UnsupportedError
	switch {
	case err == nil:
	case errors.As(err, &runtimeErr):
		state.Fail(runtimeErr.Reason, "%s", runtimeErr.Message)
	case errors.As(err, &unsupportedErr):
		state.Fail(ReasonUnhandled, "%s", unsupportedErr.Error())
	case errors.Is(err, ErrSolverTimeout):
		state.TerminateEarly("solver timeout")
	default:
		return forks, err
	}
	return forks, nil
}

// Fork splits state on cond. Infeasible branches are pruned and returned as
// nil. The original state is reused for the first feasible branch and a
// clone is made for the second. With InhibitForking set only the true
// branch is followed when both are feasible.
func (e *Executor) Fork(state *ExecutionState, cond Expr) (t, f *ExecutionState, err error) {
	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return state, nil, nil
		}
		return nil, state, nil
	}

	trueOK, err := e.MayBeTrue(state, cond)
	if err != nil {
		return nil, nil, err
	}
	falseOK, err := e.MayBeTrue(state, NewNotExpr(cond))
	if err != nil {
		return nil, nil, err
	}

	switch {
	case trueOK && falseOK && e.InhibitForking:
		state.AddConstraint(cond)
		return state, nil, nil
	case trueOK && falseOK:
		other := state.Clone()
		other.id = e.nextStateID()
		other.AddConstraint(NewNotExpr(cond))
		state.AddConstraint(cond)
		e.forks = append(e.forks, other)
		e.Logger.Debug().Int("state", state.id).Int("fork", other.id).Msg("fork")
		return state, other, nil
	case trueOK:
		return state, nil, nil
	case falseOK:
		return nil, state, nil
	default:
		state.TerminateEarly("infeasible path")
		return nil, nil, nil
	}
}

// MayBeTrue returns true if cond is satisfiable under the state's constraints.
func (e *Executor) MayBeTrue(state *ExecutionState, cond Expr) (bool, error) {
	if cond, ok := cond.(*ConstantExpr); ok {
		return cond.IsTrue(), nil
	}
	constraints := AddConstraint(state.constraints[:len(state.constraints):len(state.constraints)], cond)
	satisfiable, _, err := e.Solver.Solve(constraints, nil)
	return satisfiable, err
}

// MustBeTrue returns true if cond holds under every model of the state's constraints.
func (e *Executor) MustBeTrue(state *ExecutionState, cond Expr) (bool, error) {
	ok, err := e.MayBeTrue(state, NewNotExpr(cond))
	return !ok, err
}

func (e *Executor) executeNextInstruction(state *ExecutionState) (err error) {
	frame := state.Frame()
	if frame == nil {
		return ErrNoInstructionAvailable
	}
	frame.NextInstr()
	instr := frame.Instr()
	if instr == nil {
		return ErrNoInstructionAvailable
	}

	if n := frame.visit(); e.MaxLoopUnroll > 0 && n > e.MaxLoopUnroll {
		state.TerminateEarly("loop bound exceeded: %s visited %d times", instr, n)
		return nil
	}

	// Log each non-debug line of execution.
	if _, ok := instr.(*ssa.DebugRef); !ok {
		if ev := e.Logger.Debug(); ev.Enabled() {
			pos := state.Position()
			pos.Filename = filepath.Base(pos.Filename)
			pos.Column = 0
			ev.Int("state", state.id).Str("pos", pos.String()).Msgf("exec %s (%T)", instr.String(), instr)
		}
	}

	switch instr := instr.(type) {
	case *ssa.Alloc:
		return e.executeAllocInstr(state, instr)
	case *ssa.BinOp:
		return e.executeBinOpInstr(state, instr)
	case *ssa.Call:
		return e.executeCallInstr(state, instr)
	case *ssa.ChangeInterface:
		state.Frame().bind(instr, state.Eval(instr.X))
		return nil
	case *ssa.ChangeType:
		state.Frame().bind(instr, state.Eval(instr.X))
		return nil
	case *ssa.Convert:
		return e.executeConvertInstr(state, instr)
	case *ssa.DebugRef:
		return nil // nop
	case *ssa.Defer, *ssa.RunDefers:
		return unsupported("defer")
	case *ssa.Extract:
		state.Frame().bind(instr, state.Eval(instr.Tuple).(Tuple)[instr.Index])
		return nil
	case *ssa.Field:
		return e.executeFieldInstr(state, instr)
	case *ssa.FieldAddr:
		return e.executeFieldAddrInstr(state, instr)
	case *ssa.Go:
		return unsupported("goroutines")
	case *ssa.If:
		return e.executeIfInstr(state, instr)
	case *ssa.Index:
		return e.executeIndexInstr(state, instr)
	case *ssa.IndexAddr:
		return e.executeIndexAddrInstr(state, instr)
	case *ssa.Jump:
		state.Frame().jump(instr.Block().Succs[0])
		return nil
	case *ssa.Lookup:
		return e.executeLookupInstr(state, instr)
	case *ssa.MakeChan, *ssa.Send, *ssa.Select:
		return unsupported("channels")
	case *ssa.MakeClosure:
		return unsupported("closures")
	case *ssa.MakeInterface:
		return e.executeMakeInterfaceInstr(state, instr)
	case *ssa.MakeMap, *ssa.MapUpdate:
		return unsupported("maps")
	case *ssa.MakeSlice:
		return e.executeMakeSliceInstr(state, instr)
	case *ssa.Range, *ssa.Next:
		return unsupported("range over maps & strings")
	case *ssa.Panic:
		return e.executePanicInstr(state, instr)
	case *ssa.Phi:
		return e.executePhiInstr(state, instr)
	case *ssa.Return:
		return e.executeReturnInstr(state, instr)
	case *ssa.Slice:
		return e.executeSliceInstr(state, instr)
	case *ssa.Store:
		return e.store(state, state.MustEvalAsExpr(instr.Addr), state.Eval(instr.Val), instr.Val.Type())
	case *ssa.TypeAssert:
		return unsupported("type assertion")
	case *ssa.UnOp:
		return e.executeUnOpInstr(state, instr)
	default:
		return &RuntimeError{Reason: ReasonExec, Message: fmt.Sprintf("illegal instruction: %T", instr)}
	}
}

func (e *Executor) executeAllocInstr(state *ExecutionState, instr *ssa.Alloc) error {
	// Stack slots are allocated when the frame is pushed. Reset them to
	// their zero value every time the instruction executes.
	if !instr.Heap {
		addr := state.MustEvalAsExpr(instr).(*ConstantExpr)
		os := state.ObjectAt(addr.Value)
		assert(os != nil, "stack slot not found: %s", instr.Name())
		state.SetContents(os.Object, NewZeroArray(os.Object.Size))
		return nil
	}

	size := e.Sizeof(deref(instr.Type())) / 8
	mo := state.Alloc(instr.Comment, size)
	state.Frame().bind(instr, NewConstantExpr(mo.Address, e.PointerWidth()))
	return nil
}

func (e *Executor) executeBinOpInstr(state *ExecutionState, instr *ssa.BinOp) error {
	switch typ := instr.X.Type().Underlying().(type) {
	case *types.Interface, *types.Struct, *types.Array:
		return e.executeBinOpInstrArray(state, instr)
	case *types.Pointer, *types.Chan, *types.Map, *types.Signature:
		return e.executeBinOpInstrInteger(state, instr, false)
	case *types.Basic:
		info := typ.Info()
		if info&types.IsBoolean != 0 {
			return e.executeBinOpInstrBoolean(state, instr)
		} else if info&types.IsInteger != 0 || typ.Kind() == types.UnsafePointer {
			return e.executeBinOpInstrInteger(state, instr, info&types.IsUnsigned == 0)
		} else if info&types.IsFloat != 0 {
			return unsupported("floating-point operations")
		} else if info&types.IsComplex != 0 {
			return unsupported("complex number operations")
		} else if info&types.IsString != 0 {
			return e.executeBinOpInstrString(state, instr)
		}
		return fmt.Errorf("unexpected binop basic type: %s", typ)
	default:
		return fmt.Errorf("unexpected binop X type: %T", typ)
	}
}

func (e *Executor) executeBinOpInstrArray(state *ExecutionState, instr *ssa.BinOp) error {
	x, y := state.Eval(instr.X).(*Array), state.Eval(instr.Y).(*Array)
	switch instr.Op {
	case token.EQL:
		state.Frame().bind(instr, x.Equal(y))
		return nil
	case token.NEQ:
		state.Frame().bind(instr, x.NotEqual(y))
		return nil
	default:
		return fmt.Errorf("invalid binop operator for %s: %s", instr.X.Type(), instr.Op)
	}
}

func (e *Executor) executeBinOpInstrBoolean(state *ExecutionState, instr *ssa.BinOp) error {
	x, y := state.MustEvalAsExpr(instr.X), state.MustEvalAsExpr(instr.Y)
	switch instr.Op {
	case token.AND:
		state.Frame().bind(instr, NewBinaryExpr(AND, x, y))
	case token.OR:
		state.Frame().bind(instr, NewBinaryExpr(OR, x, y))
	case token.XOR:
		state.Frame().bind(instr, NewBinaryExpr(XOR, x, y))
	case token.EQL:
		state.Frame().bind(instr, NewBinaryExpr(EQ, x, y))
	case token.NEQ:
		state.Frame().bind(instr, NewBinaryExpr(NE, x, y))
	default:
		return errors.New("invalid boolean binop operator")
	}
	return nil
}

var integerBinOps = map[token.Token][2]BinaryOp{
	token.ADD: {ADD, ADD},
	token.SUB: {SUB, SUB},
	token.MUL: {MUL, MUL},
	token.AND: {AND, AND},
	token.OR:  {OR, OR},
	token.XOR: {XOR, XOR},
	token.EQL: {EQ, EQ},
	token.NEQ: {NE, NE},
	token.LSS: {ULT, SLT},
	token.LEQ: {ULE, SLE},
	token.GTR: {UGT, SGT},
	token.GEQ: {UGE, SGE},
	token.QUO: {UDIV, SDIV},
	token.REM: {UREM, SREM},
	token.SHR: {LSHR, ASHR},
}

// integerBinOp returns the expression operator for an integer token, or
// false if the token needs special handling.
func integerBinOp(tok token.Token, signed bool) (BinaryOp, bool) {
	ops, ok := integerBinOps[tok]
	if !ok {
		return 0, false
	} else if signed {
		return ops[1], true
	}
	return ops[0], true
}

func (e *Executor) executeBinOpInstrInteger(state *ExecutionState, instr *ssa.BinOp, signed bool) error {
	x, y := state.MustEvalAsExpr(instr.X), state.MustEvalAsExpr(instr.Y)

	switch instr.Op {
	case token.SHL:
		state.Frame().bind(instr, NewBinaryExpr(SHL, x, newZExtExpr(y, ExprWidth(x))))
		return nil
	case token.SHR:
		op, _ := integerBinOp(instr.Op, signed)
		state.Frame().bind(instr, NewBinaryExpr(op, x, newZExtExpr(y, ExprWidth(x))))
		return nil
	case token.AND_NOT:
		state.Frame().bind(instr, NewBinaryExpr(AND, x, NewNotExpr(y)))
		return nil
	case token.QUO, token.REM:
		return e.executeDivision(state, instr, x, y, signed)
	}

	op, ok := integerBinOp(instr.Op, signed)
	if !ok {
		return fmt.Errorf("invalid integer binop operator: %s", instr.Op)
	}
	state.Frame().bind(instr, NewBinaryExpr(op, x, y))
	return nil
}

// executeDivision forks a failing state for a zero divisor.
func (e *Executor) executeDivision(state *ExecutionState, instr *ssa.BinOp, x, y Expr, signed bool) error {
	zero, nonzero, err := e.Fork(state, NewIsZeroExpr(y))
	if err != nil {
		return err
	}
	if zero != nil {
		zero.Fail(ReasonOverflow, "integer divide by zero")
	}
	if nonzero != nil {
		op, _ := integerBinOp(instr.Op, signed)
		nonzero.Frame().bind(instr, NewBinaryExpr(op, x, y))
	}
	return nil
}

func (e *Executor) executeBinOpInstrString(state *ExecutionState, instr *ssa.BinOp) error {
	x, y := state.Eval(instr.X).(*Array), state.Eval(instr.Y).(*Array)

	switch instr.Op {
	case token.ADD:
		result := NewArray(NextArrayID(), x.Size+y.Size)
		for i := uint(0); i < x.Size; i++ {
			result.storeByte(NewConstantExpr64(uint64(i)), x.SelectByte(i))
		}
		for i := uint(0); i < y.Size; i++ {
			result.storeByte(NewConstantExpr64(uint64(x.Size+i)), y.SelectByte(i))
		}
		state.Frame().bind(instr, result)
	case token.EQL:
		state.Frame().bind(instr, x.Equal(y))
	case token.NEQ:
		state.Frame().bind(instr, x.NotEqual(y))
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		state.Frame().bind(instr, compareStrings(instr.Op, x, y))
	default:
		return errors.New("invalid string binop operator")
	}
	return nil
}

// compareStrings returns the lexicographic comparison of two byte strings.
func compareStrings(op token.Token, x, y *Array) Expr {
	// Swap operands so only less-than comparisons are built.
	if op == token.GTR || op == token.GEQ {
		x, y = y, x
	}
	orEqual := op == token.LEQ || op == token.GEQ

	n := x.Size
	if y.Size < n {
		n = y.Size
	}

	// x < y if some prefix is equal and the next byte is smaller. If one
	// string is a prefix of the other the shorter one is smaller.
	var cond Expr = NewBoolConstantExpr(x.Size < y.Size || (orEqual && x.Size == y.Size))
	for i := int(n) - 1; i >= 0; i-- {
		xb, yb := x.SelectByte(uint(i)), y.SelectByte(uint(i))
		cond = newOrExpr(newUltExpr(xb, yb), newAndExpr(newEqExpr(xb, yb), cond))
	}
	return cond
}

func (e *Executor) executeCallInstr(state *ExecutionState, instr *ssa.Call) error {
	// Handle builtin functions separately.
	if builtin, ok := instr.Call.Value.(*ssa.Builtin); ok {
		registered := e.fns[funcKey{"", builtin.Name()}]
		if registered == nil {
			return unsupported("builtin %s", builtin.Name())
		}
		return registered(state, instr)
	}

	fn, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	// Lookup if function is registered with executor and defer execution.
	if fn.Pkg != nil && fn.Signature.Recv() == nil {
		if registered, ok := e.fns[funcKey{fn.Pkg.Pkg.Path(), fn.Name()}]; ok {
			return registered(state, instr)
		}
	}

	if e.CallInterceptor != nil {
		if handled, err := e.CallInterceptor(state, instr, fn, args); err != nil || handled {
			return err
		}
	}

	if fn.Blocks == nil {
		return &RuntimeError{Reason: ReasonExternal, Message: fmt.Sprintf("call to function without body: %s", fn)}
	} else if len(fn.FreeVars) > 0 {
		return unsupported("closures")
	} else if e.MaxCallDepth > 0 && state.Depth() >= e.MaxCallDepth {
		state.TerminateEarly("max call depth exceeded: %d", e.MaxCallDepth)
		return nil
	}

	e.Logger.Debug().Int("state", state.id).Str("fn", fn.String()).Msg("call")
	state.Push(fn)
	for i, arg := range args {
		state.BindParam(i, arg)
	}
	return nil
}

func (e *Executor) executeConvertInstr(state *ExecutionState, instr *ssa.Convert) error {
	srcType, dstType := instr.X.Type().Underlying(), instr.Type().Underlying()

	switch srcType := srcType.(type) {
	case *types.Pointer:
		state.Frame().bind(instr, state.MustEvalAsExpr(instr.X)) // to unsafe.Pointer
		return nil

	case *types.Slice:
		if elem, ok := srcType.Elem().Underlying().(*types.Basic); ok && elem.Kind() == types.Byte {
			return e.executeConvertInstrByteSliceToString(state, instr)
		}
		return unsupported("slice conversion to %s", dstType)

	case *types.Basic:
		if srcType.Kind() == types.String {
			if dst, ok := dstType.(*types.Slice); ok {
				if elem, ok := dst.Elem().Underlying().(*types.Basic); ok && elem.Kind() == types.Byte {
					return e.executeConvertInstrStringToByteSlice(state, instr)
				}
			} else if dst, ok := dstType.(*types.Basic); ok && dst.Kind() == types.String {
				state.Frame().bind(instr, state.Eval(instr.X)) // nop
				return nil
			}
			return unsupported("string conversion to %s", dstType)
		}

		if srcType.Info()&types.IsFloat != 0 {
			return unsupported("floating point conversion")
		} else if srcType.Info()&types.IsComplex != 0 {
			return unsupported("complex number conversion")
		} else if dst, ok := dstType.(*types.Basic); ok && dst.Info()&(types.IsString|types.IsFloat|types.IsComplex) != 0 {
			return unsupported("integer conversion to %s", dst)
		} else if !isExprType(dstType) {
			return unsupported("conversion from %s to %s", srcType, dstType)
		}

		value := state.MustEvalAsExpr(instr.X)
		signed := srcType.Info()&types.IsUnsigned == 0 && srcType.Kind() != types.UnsafePointer
		state.Frame().bind(instr, NewCastExpr(value, e.Sizeof(dstType), signed))
		return nil

	default:
		return unsupported("type conversion from %s", srcType)
	}
}

func (e *Executor) executeConvertInstrByteSliceToString(state *ExecutionState, instr *ssa.Convert) error {
	hdr := state.Eval(instr.X).(*Array)

	// Find data using slice header pointer & length. Both must be constant.
	ptr, ok := state.selectIntAt(hdr, 0).(*ConstantExpr)
	if !ok {
		return unsupported("[]byte to string conversion with symbolic data pointer")
	}
	length, ok := state.selectIntAt(hdr, 1).(*ConstantExpr)
	if !ok {
		return unsupported("[]byte to string conversion with symbolic length")
	} else if length.Value == 0 {
		state.Frame().bind(instr, NewArray(NextArrayID(), 0))
		return nil
	}

	src := state.ObjectContaining(ptr.Value)
	if src == nil {
		return &RuntimeError{Reason: ReasonPtr, Message: fmt.Sprintf("byte slice data not found: %d", ptr.Value)}
	}
	offset := ptr.Value - src.Object.Address
	state.Frame().bind(instr, src.Array.Slice(NewConstantExpr64(offset), uint(length.Value)))
	return nil
}

func (e *Executor) executeConvertInstrStringToByteSlice(state *ExecutionState, instr *ssa.Convert) error {
	x := state.Eval(instr.X).(*Array)
	length := NewConstantExpr(uint64(x.Size), e.PointerWidth())

	data := state.AllocArray("[]byte", x.Slice(NewConstantExpr64(0), x.Size))
	state.Frame().bind(instr, state.newHeader(NewConstantExpr(data.Address, e.PointerWidth()), length, length))
	return nil
}

func (e *Executor) executeFieldInstr(state *ExecutionState, instr *ssa.Field) error {
	x := state.Eval(instr.X).(*Array)
	structType := instr.X.Type().Underlying().(*types.Struct)
	offset := e.Sizes().Offsetsof(structFields(structType))[instr.Field]
	fieldType := structType.Field(instr.Field).Type()

	if isExprType(fieldType) {
		state.Frame().bind(instr, x.Select(NewConstantExpr64(uint64(offset)), e.Widthof(fieldType), e.IsLittleEndian()))
	} else {
		state.Frame().bind(instr, x.Slice(NewConstantExpr64(uint64(offset)), e.Sizeof(fieldType)/8))
	}
	return nil
}

func (e *Executor) executeFieldAddrInstr(state *ExecutionState, instr *ssa.FieldAddr) error {
	ptrType := instr.X.Type().Underlying().(*types.Pointer)
	structType := ptrType.Elem().Underlying().(*types.Struct)
	fieldOffset := e.Sizes().Offsetsof(structFields(structType))[instr.Field]

	// Nil bases produce an unmapped address which fails on access.
	base := state.MustEvalAsExpr(instr.X)
	state.Frame().bind(instr, NewBinaryExpr(ADD, base, NewConstantExpr(uint64(fieldOffset), e.PointerWidth())))
	return nil
}

// boundsCheck forks state on index being within [0, length). The in-range
// state is returned; the out-of-range state fails.
func (e *Executor) boundsCheck(state *ExecutionState, index Expr, signed bool, length Expr) (*ExecutionState, error) {
	index = NewCastExpr(index, e.PointerWidth(), signed)
	length = newZExtExpr(length, e.PointerWidth())

	ok, bad, err := e.Fork(state, newUltExpr(index, length))
	if err != nil {
		return nil, err
	}
	if bad != nil {
		bad.Fail(ReasonBadVectorAccess, "index out of range")
	}
	return ok, nil
}

func (e *Executor) executeIndexInstr(state *ExecutionState, instr *ssa.Index) error {
	typ, ok := instr.X.Type().Underlying().(*types.Array)
	if !ok {
		return fmt.Errorf("unexpected Index.X type: %s", instr.X.Type())
	}
	x := state.Eval(instr.X).(*Array)
	index := state.MustEvalAsExpr(instr.Index)

	next, err := e.boundsCheck(state, index, isSigned(instr.Index.Type()), NewConstantExpr(uint64(typ.Len()), e.PointerWidth()))
	if err != nil || next == nil {
		return err
	}

	elemSize := e.Sizeof(typ.Elem()) / 8
	offset := newMulExpr(NewCastExpr(index, Width64, isSigned(instr.Index.Type())), NewConstantExpr64(uint64(elemSize)))
	if isExprType(typ.Elem()) {
		next.Frame().bind(instr, x.Select(offset, e.Widthof(typ.Elem()), e.IsLittleEndian()))
	} else {
		next.Frame().bind(instr, x.Slice(offset, elemSize))
	}
	return nil
}

func (e *Executor) executeIndexAddrInstr(state *ExecutionState, instr *ssa.IndexAddr) error {
	var base, length Expr
	var elem types.Type
	switch typ := instr.X.Type().Underlying().(type) {
	case *types.Pointer:
		array, ok := typ.Elem().Underlying().(*types.Array)
		if !ok {
			return fmt.Errorf("unexpected IndexAddr.X type: %s", typ)
		}
		base = state.MustEvalAsExpr(instr.X)
		length = NewConstantExpr(uint64(array.Len()), e.PointerWidth())
		elem = array.Elem()
	case *types.Slice:
		hdr := state.Eval(instr.X).(*Array)
		base, length = state.selectIntAt(hdr, 0), state.selectIntAt(hdr, 1)
		elem = typ.Elem()
	default:
		return fmt.Errorf("unexpected IndexAddr.X type: %T", typ)
	}

	index := state.MustEvalAsExpr(instr.Index)
	signed := isSigned(instr.Index.Type())
	next, err := e.boundsCheck(state, index, signed, length)
	if err != nil || next == nil {
		return err
	}

	indexBytes := newMulExpr(NewCastExpr(index, e.PointerWidth(), signed), NewConstantExpr(uint64(e.Sizeof(elem)/8), e.PointerWidth()))
	next.Frame().bind(instr, newAddExpr(base, indexBytes))
	return nil
}

func (e *Executor) executeLookupInstr(state *ExecutionState, instr *ssa.Lookup) error {
	if _, ok := instr.X.Type().Underlying().(*types.Map); ok {
		return unsupported("maps")
	}

	x := state.Eval(instr.X).(*Array)
	index := state.MustEvalAsExpr(instr.Index)
	signed := isSigned(instr.Index.Type())

	next, err := e.boundsCheck(state, index, signed, NewConstantExpr(uint64(x.Size), e.PointerWidth()))
	if err != nil || next == nil {
		return err
	}
	next.Frame().bind(instr, x.selectByte(NewCastExpr(index, Width64, signed)))
	return nil
}

func (e *Executor) executeMakeInterfaceInstr(state *ExecutionState, instr *ssa.MakeInterface) error {
	// An interface is two words: the dynamic type ID and the data. Values
	// wider than a word are boxed in a new heap object.
	typeID := NewConstantExpr(e.typeID(instr.X.Type()), e.PointerWidth())
	data := state.Eval(instr.X)
	if array, ok := data.(*Array); ok {
		box := state.AllocArray(instr.X.Type().String(), array)
		data = NewConstantExpr(box.Address, e.PointerWidth())
	}
	state.Frame().bind(instr, state.newHeader(typeID, data.(Expr)))
	return nil
}

func (e *Executor) executeMakeSliceInstr(state *ExecutionState, instr *ssa.MakeSlice) error {
	typ := instr.Type().Underlying().(*types.Slice)

	length, ok := state.EvalAsConstantExpr(instr.Len)
	if !ok {
		return unsupported("make with symbolic length")
	}
	capacity, ok := state.EvalAsConstantExpr(instr.Cap)
	if !ok {
		return unsupported("make with symbolic capacity")
	} else if capacity == nil {
		capacity = length
	}

	elemSize := e.Sizeof(typ.Elem()) / 8
	data := state.Alloc("makeslice", uint(capacity.Value)*elemSize)
	state.Frame().bind(instr, state.newHeader(NewConstantExpr(data.Address, e.PointerWidth()), length, capacity))
	return nil
}

func (e *Executor) executePanicInstr(state *ExecutionState, instr *ssa.Panic) error {
	msg := "panic"
	if v, ok := instr.X.(*ssa.MakeInterface); ok {
		if s, ok := state.Eval(v.X).(*Array); ok {
			if str, ok := ConcreteString(s); ok {
				msg = "panic: " + str
			}
		}
	}
	return &RuntimeError{Reason: ReasonAbort, Message: msg}
}

func (e *Executor) executePhiInstr(state *ExecutionState, instr *ssa.Phi) error {
	i := basicBlockIndex(state.Frame().block.Preds, state.Frame().prev)
	assert(i >= 0, "phi basic block not found")

	state.Frame().bind(instr, state.Eval(instr.Edges[i]))
	return nil
}

func (e *Executor) executeSliceInstr(state *ExecutionState, instr *ssa.Slice) error {
	switch typ := instr.X.Type().Underlying().(type) {
	case *types.Pointer:
		return e.executeSliceInstrArray(state, instr, typ.Elem().Underlying().(*types.Array))
	case *types.Basic:
		return e.executeSliceInstrString(state, instr)
	case *types.Slice:
		hdr := state.Eval(instr.X).(*Array)
		return e.sliceHeader(state, instr, state.selectIntAt(hdr, 0), state.selectIntAt(hdr, 1), state.selectIntAt(hdr, 2))
	default:
		return fmt.Errorf("unexpected slice operand type: %T", typ)
	}
}

func (e *Executor) executeSliceInstrArray(state *ExecutionState, instr *ssa.Slice, typ *types.Array) error {
	n := NewConstantExpr(uint64(typ.Len()), e.PointerWidth())
	return e.sliceHeader(state, instr, state.MustEvalAsExpr(instr.X), n, n)
}

// sliceHeader binds a new slice header for x[lo:hi:max] given the operand's
// data pointer, length & capacity.
func (e *Executor) sliceHeader(state *ExecutionState, instr *ssa.Slice, data, length, capacity Expr) error {
	pointerWidth := e.PointerWidth()
	elemType := instr.Type().Underlying().(*types.Slice).Elem()
	elemSize := NewConstantExpr(uint64(e.Sizeof(elemType)/8), pointerWidth)

	lo, hi, max := e.sliceIndex(state, instr.Low), e.sliceIndex(state, instr.High), e.sliceIndex(state, instr.Max)
	if lo == nil {
		lo = NewConstantExpr(0, pointerWidth)
	}
	if hi == nil {
		hi = length
	}
	if max == nil {
		max = capacity
	}

	// Slicing requires 0 <= lo <= hi <= max <= cap.
	inRange := newAndExpr(newUleExpr(lo, hi), newAndExpr(newUleExpr(hi, max), newUleExpr(max, capacity)))
	next, bad, err := e.Fork(state, inRange)
	if err != nil {
		return err
	}
	if bad != nil {
		bad.Fail(ReasonBadVectorAccess, "slice bounds out of range")
	}
	if next != nil {
		hdr := next.newHeader(newAddExpr(data, newMulExpr(lo, elemSize)), newSubExpr(hi, lo), newSubExpr(max, lo))
		next.Frame().bind(instr, hdr)
	}
	return nil
}

func (e *Executor) sliceIndex(state *ExecutionState, v ssa.Value) Expr {
	if v == nil {
		return nil
	}
	return NewCastExpr(state.MustEvalAsExpr(v), e.PointerWidth(), isSigned(v.Type()))
}

func (e *Executor) executeSliceInstrString(state *ExecutionState, instr *ssa.Slice) error {
	x := state.Eval(instr.X).(*Array)

	lo, ok := state.EvalAsConstantExpr(instr.Low)
	if !ok {
		return unsupported("string slice with symbolic low index")
	} else if lo == nil {
		lo = NewConstantExpr64(0)
	}

	hi, ok := state.EvalAsConstantExpr(instr.High)
	if !ok {
		return unsupported("string slice with symbolic high index")
	} else if hi == nil {
		hi = NewConstantExpr64(uint64(x.Size))
	}

	if hi.Value > uint64(x.Size) || lo.Value > hi.Value {
		return &RuntimeError{Reason: ReasonBadVectorAccess, Message: "slice bounds out of range"}
	}
	state.Frame().bind(instr, x.Slice(NewConstantExpr64(lo.Value), uint(hi.Value-lo.Value)))
	return nil
}

func (e *Executor) executeReturnInstr(state *ExecutionState, instr *ssa.Return) error {
	var result Binding
	switch len(instr.Results) {
	case 0:
	case 1:
		result = state.Eval(instr.Results[0])
	default:
		results := make(Tuple, len(instr.Results))
		for i := range results {
			results[i] = state.Eval(instr.Results[i])
		}
		result = results
	}

	// Returning from the entry function completes the path.
	caller := state.CallerFrame()
	if caller == nil {
		state.finish(result)
		return nil
	}

	if call, ok := caller.Instr().(*ssa.Call); ok && result != nil {
		caller.bind(call, result)
	}
	state.Pop()
	return nil
}

func (e *Executor) executeIfInstr(state *ExecutionState, instr *ssa.If) error {
	cond := state.MustEvalAsExpr(instr.Cond)
	block := instr.Block()

	t, f, err := e.Fork(state, cond)
	if err != nil {
		return err
	}
	if t != nil {
		t.Frame().jump(block.Succs[0])
	}
	if f != nil {
		f.Frame().jump(block.Succs[1])
	}
	return nil
}

func (e *Executor) executeUnOpInstr(state *ExecutionState, instr *ssa.UnOp) error {
	switch instr.Op {
	case token.NOT, token.XOR:
		state.Frame().bind(instr, NewNotExpr(state.MustEvalAsExpr(instr.X)))
		return nil
	case token.SUB:
		if !isExprType(instr.X.Type()) {
			return unsupported("negation of %s", instr.X.Type())
		}
		x := state.MustEvalAsExpr(instr.X)
		state.Frame().bind(instr, NewBinaryExpr(SUB, NewConstantExpr(0, ExprWidth(x)), x))
		return nil
	case token.ARROW:
		return unsupported("channels")
	case token.MUL:
		return e.load(state, instr, state.MustEvalAsExpr(instr.X), instr.Type())
	default:
		return errors.New("invalid UnOp operator")
	}
}

// Sizes returns the type layout of the target architecture.
func (e *Executor) Sizes() types.Sizes {
	return types.SizesFor("gc", e.Arch)
}

// Sizeof returns the size of typ in bits.
func (e *Executor) Sizeof(typ types.Type) uint {
	return uint(e.Sizes().Sizeof(typ)) * 8
}

// Widthof returns the width of the expression bound to a value of typ.
// Booleans are one bit wide while occupying a byte in memory.
func (e *Executor) Widthof(typ types.Type) uint {
	if basic, ok := typ.Underlying().(*types.Basic); ok && basic.Info()&types.IsBoolean != 0 {
		return WidthBool
	}
	return e.Sizeof(typ)
}

// PointerWidth returns the pointer size in bits.
func (e *Executor) PointerWidth() uint {
	return e.Sizeof(types.Typ[types.UnsafePointer])
}

// IsLittleEndian returns true if the target architecture is little endian.
func (e *Executor) IsLittleEndian() bool {
	switch e.Arch {
	case "ppc64", "mips", "mips64", "s390x":
		return false
	default:
		return true
	}
}

// typeID returns the identifier stored in interface values of dynamic type typ.
func (e *Executor) typeID(typ types.Type) uint64 {
	if id, ok := e.typeIDs.At(typ).(uint64); ok {
		return id
	}
	e.typesByID = append(e.typesByID, typ)
	id := uint64(len(e.typesByID))
	e.typeIDs.Set(typ, id)
	return id
}

func (e *Executor) typeByID(id uint64) types.Type {
	if id == 0 || id > uint64(len(e.typesByID)) {
		return nil
	}
	return e.typesByID[id-1]
}

// funcID returns the value stored for a reference to fn. Never zero.
func (e *Executor) funcID(fn *ssa.Function) uint64 {
	if id, ok := e.funcIDs[fn]; ok {
		return id
	}
	e.funcsByID = append(e.funcsByID, fn)
	id := uint64(len(e.funcsByID))
	e.funcIDs[fn] = id
	return id
}

func (e *Executor) funcByID(id uint64) *ssa.Function {
	if id == 0 || id > uint64(len(e.funcsByID)) {
		return nil
	}
	return e.funcsByID[id-1]
}

// FunctionHandler represents special execution of an SSA function call.
//
// Once registered with the Executor, all invocations of the function will be
// delegated to the FunctionHandler.
type FunctionHandler func(state *ExecutionState, instr *ssa.Call) error

// funcKey represents a key for registering a FunctionHandler with the Executor.
type funcKey struct {
	path string // package name
	name string // function name
}

func structFields(typ *types.Struct) []*types.Var {
	a := make([]*types.Var, typ.NumFields())
	for i := range a {
		a[i] = typ.Field(i)
	}
	return a
}

// basicBlockIndex returns the index of v within a. Returns -1 if v is not in a.
func basicBlockIndex(a []*ssa.BasicBlock, v *ssa.BasicBlock) int {
	for i := range a {
		if a[i] == v {
			return i
		}
	}
	return -1
}

// deref returns the underlying data type if typ is a pointer. Otherwise returns typ.
func deref(typ types.Type) types.Type {
	if p, ok := typ.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return typ
}

// isSigned returns true if typ is a signed integer type.
func isSigned(typ types.Type) bool {
	basic, ok := typ.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsInteger != 0 && basic.Info()&types.IsUnsigned == 0
}

// Solver represents a logical constraint solver.
type Solver interface {
	// Returns the satisfiability of the set of constraints. If the formula
	// is satisfiable, a valid value is returned for each array passed in.
	Solve(contraints []Expr, arrays []*Array) (satisfiable bool, values [][]byte, err error)
}
