package glee

import (
	"bytes"
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/go/ssa"
)

// heapBase is the address of the first allocation. Address zero is nil.
const heapBase = 0x1000

// ExecutionState representing a path under exploration.
type ExecutionState struct {
	id int

	// Executor this is executed within.
	executor *Executor

	// Call stack
	stack []*StackFrame

	// Shows whether state is running, finished, or terminated by error state.
	status      ExecutionStatus
	reason      string
	errorReason ErrorReason
	result      Binding // entry function's return value

	// Heap memory address space. Maps base address to *ObjectState.
	heap *immutable.SortedMap

	// Storage objects bound to package-level variables.
	globals map[*ssa.Global]*MemoryObject

	// Constraints collected so far during execution.
	constraints []Expr

	// Writes to tracked objects, in program order.
	writes   []MemoryWrite
	modified map[*MemoryObject]struct{}
}

func newExecutionState(executor *Executor, fn *ssa.Function) *ExecutionState {
	s := &ExecutionState{
		executor: executor,
		status:   ExecutionStatusRunning,
		heap:     immutable.NewSortedMap(&uint64Comparer{}),
		globals:  make(map[*ssa.Global]*MemoryObject),
		modified: make(map[*MemoryObject]struct{}),
	}
	s.Push(fn)
	return s
}

// ID returns an autoincrementing ID assigned by the executor.
func (s *ExecutionState) ID() int { return s.id }

// Executor returns the parent executor of this state.
func (s *ExecutionState) Executor() *Executor {
	return s.executor
}

// Constraints returns the path constraints of the state.
func (s *ExecutionState) Constraints() []Expr {
	return s.constraints
}

// Clone returns a copy of the state and including deep copies of the stack,
// constraints and write log. The heap is shared copy-on-write.
func (s *ExecutionState) Clone() *ExecutionState {
	stack := make([]*StackFrame, len(s.stack))
	for i := range s.stack {
		stack[i] = s.stack[i].Clone()
		if i > 0 {
			stack[i].caller = stack[i-1]
		}
	}

	globals := make(map[*ssa.Global]*MemoryObject, len(s.globals))
	for k, v := range s.globals {
		globals[k] = v
	}

	modified := make(map[*MemoryObject]struct{}, len(s.modified))
	for k := range s.modified {
		modified[k] = struct{}{}
	}

	return &ExecutionState{
		executor:    s.executor,
		status:      s.status,
		reason:      s.reason,
		errorReason: s.errorReason,
		result:      s.result,
		heap:        s.heap,
		globals:     globals,
		stack:       stack,
		constraints: append([]Expr(nil), s.constraints...),
		writes:      append([]MemoryWrite(nil), s.writes...),
		modified:    modified,
	}
}

// Status returns the current status of the state.
// See Reason() for additional information if status is in an error state.
func (s *ExecutionState) Status() ExecutionStatus {
	return s.status
}

// Reason returns additional information about the status of the state.
func (s *ExecutionState) Reason() string {
	return s.reason
}

// ErrorReason returns the tag of a failed or exited state.
func (s *ExecutionState) ErrorReason() ErrorReason {
	return s.errorReason
}

// Result returns the return value of the entry function. Panic if the state
// has not finished normally.
func (s *ExecutionState) Result() Binding {
	assert(s.status == ExecutionStatusFinished, "result of unfinished state: status=%s", s.status)
	return s.result
}

// Terminated returns true if the state completes execution of a path.
func (s *ExecutionState) Terminated() bool {
	return s.status != ExecutionStatusRunning
}

// Fail terminates the state with an error reason. ReasonExit marks the
// state as exited rather than failed.
func (s *ExecutionState) Fail(reason ErrorReason, format string, args ...interface{}) {
	s.status, s.errorReason = ExecutionStatusFailed, reason
	s.reason = fmt.Sprintf(format, args...)
	if reason == ReasonExit {
		s.status = ExecutionStatusExited
	}
}

// TerminateEarly marks the state as abandoned without a conclusive outcome.
func (s *ExecutionState) TerminateEarly(format string, args ...interface{}) {
	s.status = ExecutionStatusEarly
	s.reason = fmt.Sprintf(format, args...)
}

// finish marks the state as returned from the entry function.
func (s *ExecutionState) finish(result Binding) {
	s.status, s.result = ExecutionStatusFinished, result
}

// Position returns the position of the current instruction in the current file set.
func (s *ExecutionState) Position() token.Position {
	instr := s.Instr()
	if instr == nil {
		return token.Position{}
	}
	switch instr := instr.(type) {
	case *ssa.If:
		return s.executor.prog.Fset.Position(instr.Cond.Pos())
	default:
		return s.executor.prog.Fset.Position(instr.Pos())
	}
}

// Frame returns the current stack frame.
func (s *ExecutionState) Frame() *StackFrame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// CallerFrame returns the parent of the current stack frame.
func (s *ExecutionState) CallerFrame() *StackFrame {
	if len(s.stack) <= 1 {
		return nil
	}
	return s.stack[len(s.stack)-2]
}

// Depth returns the number of frames on the call stack.
func (s *ExecutionState) Depth() int { return len(s.stack) }

// Instr returns the current SSA instruction.
func (s *ExecutionState) Instr() ssa.Instruction {
	if frame := s.Frame(); frame != nil {
		return frame.Instr()
	}
	return nil
}

// Eval returns the expression or slice of expression bound to a given SSA value.
func (s *ExecutionState) Eval(value ssa.Value) Binding {
	switch value := value.(type) {
	case *ssa.Const:
		return s.evalConst(value)
	case *ssa.Function:
		return NewConstantExpr(s.executor.funcID(value), s.executor.PointerWidth())
	case *ssa.Global:
		return NewConstantExpr(s.Global(value).Address, s.executor.PointerWidth())
	default:
		if f := s.Frame(); f != nil {
			return f.bindings[value]
		}
		return nil
	}
}

func (s *ExecutionState) evalConst(value *ssa.Const) Binding {
	if value.Value == nil {
		if isExprType(value.Type()) {
			return NewConstantExpr(0, s.executor.Sizeof(value.Type()))
		}
		return NewZeroArray(s.executor.Sizeof(value.Type()) / 8)
	}

	switch value.Value.Kind() {
	case constant.Bool:
		return NewBoolConstantExpr(constant.BoolVal(value.Value))
	case constant.Int:
		width := s.executor.Sizeof(value.Type().Underlying())
		if v, isExact := constant.Int64Val(value.Value); isExact {
			return NewConstantExpr(uint64(v), width)
		}
		v, isExact := constant.Uint64Val(value.Value)
		assert(isExact, "inexact constant int")
		return NewConstantExpr(v, width)
	case constant.String:
		str := constant.StringVal(value.Value)
		array := NewArray(NextArrayID(), uint(len(str)))
		for i := 0; i < len(str); i++ {
			array.storeByte(NewConstantExpr64(uint64(i)), NewConstantExpr(uint64(str[i]), 8))
		}
		return array
	default:
		return nil // floats & complex numbers are rejected by the instruction handlers
	}
}

// MustEvalAsExpr is the same as Eval() except that it returns an Expr type.
// Panic if binding is Array or Tuple.
func (s *ExecutionState) MustEvalAsExpr(value ssa.Value) Expr {
	binding := s.Eval(value)
	if binding == nil {
		return nil
	} else if expr, ok := binding.(Expr); ok {
		return expr
	}
	panic(fmt.Sprintf("glee: binding must be an Expr: %T", binding))
}

// EvalAsConstantExpr is the same as Eval() except that it returns an ConstantExpr type.
func (s *ExecutionState) EvalAsConstantExpr(value ssa.Value) (*ConstantExpr, bool) {
	if binding := s.Eval(value); binding == nil {
		return nil, true
	} else if expr, ok := binding.(*ConstantExpr); ok {
		return expr, true
	}
	return nil, false
}

// ExtractCall returns the underlying function reference and arg bindings.
// The function is nil for builtins.
func (s *ExecutionState) ExtractCall(instr ssa.CallInstruction) (fn *ssa.Function, args []Binding, err error) {
	common := instr.Common()

	switch callee := common.Value.(type) {
	case *ssa.Builtin:
	case *ssa.Function:
		fn = callee
	default:
		if common.IsInvoke() {
			iface, ok := s.Eval(common.Value).(*Array)
			if !ok {
				return nil, nil, fmt.Errorf("glee: interface value not bound: %s", common.Value.Name())
			}
			typeID, ok := s.selectIntAt(iface, 0).(*ConstantExpr)
			if !ok {
				return nil, nil, unsupported("method call on symbolic interface")
			}
			typ := s.executor.typeByID(typeID.Value)
			if typ == nil {
				return nil, nil, &RuntimeError{Reason: ReasonPtr, Message: "invalid memory address or nil pointer dereference"}
			}
			fn = s.executor.prog.LookupMethod(typ, common.Method.Pkg(), common.Method.Name())

			// Receivers wider than a word are boxed.
			var recv Binding = s.selectIntAt(iface, 1)
			if !isExprType(typ) {
				addr, ok := recv.(*ConstantExpr)
				if !ok {
					return nil, nil, unsupported("method call on symbolic interface data")
				}
				os := s.ObjectAt(addr.Value)
				if os == nil {
					return nil, nil, &RuntimeError{Reason: ReasonPtr, Message: "interface data not found"}
				}
				recv = os.Array
			}
			args = append(args, recv)
		} else {
			addr, ok := s.EvalAsConstantExpr(common.Value)
			if !ok || addr == nil {
				return nil, nil, unsupported("call through symbolic function value")
			}
			if fn = s.executor.funcByID(addr.Value); fn == nil {
				return nil, nil, &RuntimeError{Reason: ReasonPtr, Message: "invalid memory address or nil pointer dereference"}
			}
		}
	}

	for _, arg := range common.Args {
		args = append(args, s.Eval(arg))
	}
	return fn, args, nil
}

// Push adds a frame to the top of the stack and allocates its locals.
func (s *ExecutionState) Push(fn *ssa.Function) {
	f := NewStackFrame(s.Frame(), fn)

	f.locals = make([]*MemoryObject, len(fn.Locals))
	for i, instr := range fn.Locals {
		size := s.executor.Sizeof(deref(instr.Type())) / 8
		mo := s.Alloc(instr.Comment, size)
		mo.local = true

		f.locals[i] = mo
		f.bind(instr, NewConstantExpr(mo.Address, s.executor.PointerWidth()))
	}

	s.stack = append(s.stack, f)
}

// Pop removes the current frame from the stack and releases its locals.
func (s *ExecutionState) Pop() {
	f := s.Frame()
	for _, mo := range f.locals {
		s.heap = s.heap.Delete(mo.Address)
	}
	s.stack[len(s.stack)-1] = nil
	s.stack = s.stack[:len(s.stack)-1]
}

// BindParam binds a value to the i-th parameter of the current frame.
func (s *ExecutionState) BindParam(i int, b Binding) {
	f := s.Frame()
	f.bind(f.fn.Params[i], b)
}

// Bind assigns a binding to an SSA value of the current frame.
func (s *ExecutionState) Bind(value ssa.Value, b Binding) {
	s.Frame().bind(value, b)
}

// Values computes initial values for all symbolic arrays referenced by the
// path constraints and by exprs.
func (s *ExecutionState) Values(exprs ...Expr) ([]*Array, [][]byte, error) {
	arrays := FindArrays(append(append([]Expr(nil), s.constraints...), exprs...)...)

	satisfiable, values, err := s.executor.Solver.Solve(s.constraints, arrays)
	if err != nil {
		return nil, nil, err
	} else if !satisfiable {
		return nil, nil, errors.New("unsatisfiable")
	}
	return arrays, values, nil
}

// AddConstraint adds a constraint to the state. Panic if expr is a constant false.
func (s *ExecutionState) AddConstraint(expr Expr) {
	if expr, ok := expr.(*ConstantExpr); ok {
		assert(expr.IsTrue(), "invalid false constraint")
		return
	}
	s.constraints = AddConstraint(s.constraints, expr)
}

// AddConstraint adds expr to constraints and returns the new constraint list.
// If expr is a binary AND expression then its LHS & RHS are split into
// independent constraints.
func AddConstraint(a []Expr, expr Expr) []Expr {
	if expr, ok := expr.(*BinaryExpr); ok && expr.Op == AND && ExprWidth(expr) == WidthBool {
		a = AddConstraint(a, expr.LHS)
		a = AddConstraint(a, expr.RHS)
		return a
	}
	return append(a, expr)
}

// Alloc allocates a zero-initialized object on the heap.
func (s *ExecutionState) Alloc(name string, size uint) *MemoryObject {
	return s.AllocArray(name, NewZeroArray(size))
}

// AllocArray allocates an object on the heap holding array.
func (s *ExecutionState) AllocArray(name string, array *Array) *MemoryObject {
	mo := &MemoryObject{
		ID:      s.executor.nextObjectID(),
		Address: s.nextAddr(),
		Size:    array.Size,
		Name:    name,
	}
	s.heap = s.heap.Set(mo.Address, &ObjectState{Object: mo, Array: array})
	return mo
}

// nextAddr returns the next available address on the heap. Allocations are
// word aligned and never overlap, including zero-sized ones.
func (s *ExecutionState) nextAddr() uint64 {
	itr := s.heap.Iterator()
	itr.Last()
	if k, v := itr.Prev(); k != nil {
		end := k.(uint64) + uint64(v.(*ObjectState).Object.Size) + 1
		return (end + 7) &^ 7
	}
	return heapBase
}

// ObjectAt returns the object state whose base address is addr.
func (s *ExecutionState) ObjectAt(addr uint64) *ObjectState {
	if value, _ := s.heap.Get(addr); value != nil {
		return value.(*ObjectState)
	}
	return nil
}

// ObjectContaining returns the object state whose bounds include addr.
func (s *ExecutionState) ObjectContaining(addr uint64) *ObjectState {
	// Seek to the given address or the next available address.
	itr := s.heap.Iterator()
	if itr.Seek(addr); itr.Done() {
		itr.Last()
	}

	// Move backwards until address range too low.
	for !itr.Done() {
		k, v := itr.Prev()
		key, os := k.(uint64), v.(*ObjectState)

		if os.Object.Contains(addr) {
			return os
		} else if addr >= key+uint64(os.Object.Size) {
			break // target address above allocation, exit
		}
	}
	return nil
}

// Objects returns all live object states ordered by address.
func (s *ExecutionState) Objects() []*ObjectState {
	var a []*ObjectState
	itr := s.heap.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		a = append(a, v.(*ObjectState))
	}
	return a
}

// Contents returns the current contents of an object. Returns nil if the
// object is not live in this state.
func (s *ExecutionState) Contents(mo *MemoryObject) *Array {
	if os := s.ObjectAt(mo.Address); os != nil && os.Object == mo {
		return os.Array
	}
	return nil
}

// SetContents replaces the contents of an object without recording a write.
func (s *ExecutionState) SetContents(mo *MemoryObject, array *Array) {
	assert(array.Size == mo.Size, "contents size mismatch: %d != %d", array.Size, mo.Size)
	s.heap = s.heap.Set(mo.Address, &ObjectState{Object: mo, Array: array})
}

// write stores value into an object at offset and records the write if the
// object is tracked. Read-only checks are the caller's responsibility.
func (s *ExecutionState) write(mo *MemoryObject, offset Expr, value Binding) {
	array := s.Contents(mo)
	assert(array != nil, "write: object not live: %s", mo)
	offset = newZExtExpr(offset, Width64)

	switch value := value.(type) {
	case *Array:
		s.SetContents(mo, array.StoreArray(offset, value))
		if mo.Tracked() {
			for i := uint(0); i < value.Size; i++ {
				s.recordWrite(mo, newAddExpr(offset, NewConstantExpr64(uint64(i))), value.SelectByte(i))
			}
		}
	case Expr:
		s.SetContents(mo, array.Store(offset, value, s.executor.IsLittleEndian()))
		if mo.Tracked() {
			s.recordWrite(mo, offset, value)
		}
	default:
		panic(fmt.Sprintf("glee: unexpected write value: %T", value))
	}
}

func (s *ExecutionState) recordWrite(mo *MemoryObject, offset, value Expr) {
	s.writes = append(s.writes, MemoryWrite{Object: mo, Offset: offset, Value: value})
	s.modified[mo] = struct{}{}
}

// Writes returns the ordered log of writes to tracked objects.
func (s *ExecutionState) Writes() []MemoryWrite {
	return s.writes
}

// Modified returns the tracked objects written on this path, in order of
// their first write.
func (s *ExecutionState) Modified() []*MemoryObject {
	a := make([]*MemoryObject, 0, len(s.modified))
	seen := make(map[*MemoryObject]struct{}, len(s.modified))
	for _, w := range s.writes {
		if _, ok := seen[w.Object]; !ok {
			seen[w.Object] = struct{}{}
			a = append(a, w.Object)
		}
	}
	return a
}

// ApplyWrite stores value into an object as though the program wrote it.
// Used when replaying effects recorded by another run.
func (s *ExecutionState) ApplyWrite(mo *MemoryObject, offset Expr, value Binding) {
	s.write(mo, offset, value)
}

// Global returns the storage object for a package-level variable. Globals
// without an explicit binding are lazily allocated as unconstrained storage
// whose contents are the same symbolic array in every state of the executor.
func (s *ExecutionState) Global(g *ssa.Global) *MemoryObject {
	if mo := s.globals[g]; mo != nil {
		return mo
	}
	mo := s.AllocArray(g.Name(), s.executor.lazyGlobal(g))
	if s.executor.TrackLazyGlobals {
		mo.Global = g
	}
	s.globals[g] = mo
	return mo
}

// BindGlobal allocates storage for a package-level variable holding array.
func (s *ExecutionState) BindGlobal(g *ssa.Global, array *Array, readOnly, tracked bool) *MemoryObject {
	mo := s.AllocArray(g.Name(), array)
	mo.ReadOnly = readOnly
	if tracked {
		mo.Global = g
	}
	s.globals[g] = mo
	return mo
}

// IsGlobalBound returns true if g already has storage in this state.
func (s *ExecutionState) IsGlobalBound(g *ssa.Global) bool {
	_, ok := s.globals[g]
	return ok
}

// selectIntAt returns the i-th pointer-width expression selected from an array.
func (s *ExecutionState) selectIntAt(array *Array, i int) Expr {
	pointerWidth := s.executor.PointerWidth()
	return array.Select(NewConstantExpr32(uint64(i)*uint64(pointerWidth/8)), pointerWidth, s.executor.IsLittleEndian())
}

// storeIntAt returns a new array with the i-th pointer-width element updated.
func (s *ExecutionState) storeIntAt(array *Array, i int, value Expr) *Array {
	pointerWidth := s.executor.PointerWidth()
	return array.Store(NewConstantExpr64(uint64(i)*uint64(pointerWidth/8)), newZExtExpr(value, pointerWidth), s.executor.IsLittleEndian())
}

// newHeader returns an array of pointer-width words, e.g. a slice header.
func (s *ExecutionState) newHeader(words ...Expr) *Array {
	hdr := NewZeroArray(uint(len(words)) * s.executor.PointerWidth() / 8)
	for i, w := range words {
		hdr = s.storeIntAt(hdr, i, w)
	}
	return hdr
}

// Dump returns the contents of the state and frames as a string.
func (s *ExecutionState) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "EXECUTION STATE")
	fmt.Fprintln(&buf, "===============")
	fmt.Fprintf(&buf, "status=%s\n", s.status)
	fmt.Fprintf(&buf, "reason=%s\n", s.reason)
	if s.errorReason != ReasonNone {
		fmt.Fprintf(&buf, "error=%s\n", s.errorReason)
	}
	fmt.Fprintln(&buf, "")
	for i := len(s.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&buf, "== FRAME #%d\n", i)
		fmt.Fprintln(&buf, s.stack[i].Dump())
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== HEAP")
	for _, os := range s.Objects() {
		fmt.Fprintf(&buf, "%08d %s %s\n", os.Object.Address, os.Object, os.Array)
		for upd := os.Array.Updates; upd != nil; upd = upd.Next {
			fmt.Fprintf(&buf, "  + UPD: I=%s; V=%s\n", upd.Index.String(), upd.Value.String())
		}
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== CONSTRAINTS")
	for i, expr := range s.constraints {
		fmt.Fprintf(&buf, "%d. %s\n", i, expr.String())
	}
	return buf.String()
}

// ExecutionStatus represents the current status of the execution state.
// The state will also include a reason if the status is not running.
type ExecutionStatus string

const (
	ExecutionStatusRunning  = ExecutionStatus("running")  // has future states
	ExecutionStatusFinished = ExecutionStatus("finished") // returned from entry function
	ExecutionStatusExited   = ExecutionStatus("exited")   // process exited
	ExecutionStatusFailed   = ExecutionStatus("failed")   // runtime error, see ErrorReason()
	ExecutionStatusEarly    = ExecutionStatus("early")    // abandoned, inconclusive
)

// StackFrame represents the state of a call into a function.
type StackFrame struct {
	fn       *ssa.Function
	caller   *StackFrame
	locals   []*MemoryObject
	bindings map[ssa.Value]Binding
	visits   map[ssa.Instruction]int

	block *ssa.BasicBlock
	prev  *ssa.BasicBlock
	pc    int
}

// NewStackFrame returns a new instance of StackFrame for a given function.
func NewStackFrame(caller *StackFrame, fn *ssa.Function) *StackFrame {
	return &StackFrame{
		fn:       fn,
		caller:   caller,
		bindings: make(map[ssa.Value]Binding),
		visits:   make(map[ssa.Instruction]int),
		block:    fn.Blocks[0],
		pc:       -1,
	}
}

// Fn returns the function executing in the frame.
func (f *StackFrame) Fn() *ssa.Function { return f.fn }

// Instr returns the current instruction.
func (f *StackFrame) Instr() ssa.Instruction {
	if f.block == nil || f.pc < 0 || f.pc >= len(f.block.Instrs) {
		return nil
	}
	return f.block.Instrs[f.pc]
}

// NextInstr moves the current execution to the next instruction.
func (f *StackFrame) NextInstr() {
	if f.block != nil && f.pc < len(f.block.Instrs) {
		f.pc++
	}
}

// visit increments and returns the visit count of the current instruction.
func (f *StackFrame) visit() int {
	instr := f.Instr()
	f.visits[instr]++
	return f.visits[instr]
}

// jump moves to dst from the current block.
func (f *StackFrame) jump(dst *ssa.BasicBlock) {
	f.prev, f.block, f.pc = f.block, dst, -1
}

// bind assigns the expression or slice of expressions to a given SSA value.
func (f *StackFrame) bind(value ssa.Value, b Binding) {
	f.bindings[value] = b
}

// Clone returns a copy of the stack frame.
func (f *StackFrame) Clone() *StackFrame {
	other := *f

	other.bindings = make(map[ssa.Value]Binding, len(f.bindings))
	for k := range f.bindings {
		other.bindings[k] = f.bindings[k]
	}

	other.visits = make(map[ssa.Instruction]int, len(f.visits))
	for k, v := range f.visits {
		other.visits[k] = v
	}

	other.locals = make([]*MemoryObject, len(f.locals))
	copy(other.locals, f.locals)

	return &other
}

// BoundValues returns all bound values, sorted by name.
func (f *StackFrame) BoundValues() []ssa.Value {
	a := make([]ssa.Value, 0, len(f.bindings))
	for value := range f.bindings {
		a = append(a, value)
	}

	sort.Slice(a, func(i, j int) bool {
		x, _ := strconv.Atoi(strings.TrimPrefix(a[i].Name(), "t"))
		y, _ := strconv.Atoi(strings.TrimPrefix(a[j].Name(), "t"))
		if x != y {
			return x < y
		}
		return a[i].Name() < a[j].Name()
	})

	return a
}

// Dump returns the contents of the frame as a string.
func (f *StackFrame) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "fn=%s\n", f.fn.String())
	for _, value := range f.BoundValues() {
		binding := f.bindings[value]
		fmt.Fprintf(&buf, "%s (%s)\n%s\n\n", value.Name(), value.Type().String(), binding)
	}
	return buf.String()
}

// Binding represents an object that can be bound to an SSA value.
// This can be either an Expr, an Array or a Tuple.
type Binding interface {
	binding()
	String() string
}

func (*BinaryExpr) binding()       {}
func (*CastExpr) binding()         {}
func (*ConcatExpr) binding()       {}
func (*ConstantExpr) binding()     {}
func (*ExtractExpr) binding()      {}
func (*NotExpr) binding()          {}
func (*NotOptimizedExpr) binding() {}
func (*SelectExpr) binding()       {}
func (*Array) binding()            {}
func (Tuple) binding()             {}

// isExprType returns true if values of typ are bound as an Expr rather than
// an Array. Applies to booleans, integers and pointer-like values.
func isExprType(typ types.Type) bool {
	switch typ := typ.Underlying().(type) {
	case *types.Basic:
		info := typ.Info()
		return info&types.IsBoolean != 0 || info&types.IsInteger != 0 || typ.Kind() == types.UnsafePointer
	case *types.Pointer, *types.Signature, *types.Chan, *types.Map:
		return true
	default:
		return false
	}
}

// IsExprType reports whether values of typ are represented as expressions.
func IsExprType(typ types.Type) bool { return isExprType(typ) }
