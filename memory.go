package glee

import (
	"errors"
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// MemoryObject represents the identity of a single allocation. Objects are
// shared by pointer between all states of a run; their contents are not.
type MemoryObject struct {
	ID       int
	Address  uint64
	Size     uint // in bytes
	Name     string
	ReadOnly bool

	// Tracking tags. Writes to an object with either tag set are recorded
	// on the state so they can be reported as effects of the path.
	Global     *ssa.Global
	Param      *ssa.Parameter
	ParamIndex int

	local bool // stack slot, released on return
}

// Tracked returns true if writes to the object are recorded.
func (mo *MemoryObject) Tracked() bool {
	return mo.Global != nil || mo.Param != nil
}

// String returns a string representation of the object.
func (mo *MemoryObject) String() string {
	return fmt.Sprintf("(object #%d %s @%d %d)", mo.ID, mo.Name, mo.Address, mo.Size)
}

// Contains returns true if the concrete address falls inside the object.
func (mo *MemoryObject) Contains(addr uint64) bool {
	return addr >= mo.Address && addr < mo.Address+uint64(mo.Size)
}

// InBounds returns an expression that is true when an access of n bytes at
// addr stays within the object.
func (mo *MemoryObject) InBounds(addr Expr, n uint) Expr {
	if n > mo.Size {
		return NewBoolConstantExpr(false)
	}
	width := ExprWidth(addr)
	offset := newSubExpr(addr, NewConstantExpr(mo.Address, width))
	return newUleExpr(offset, NewConstantExpr(uint64(mo.Size-n), width))
}

// ObjectState represents the contents of an object within one state.
// Object states are never modified in place; writes produce a new one.
type ObjectState struct {
	Object *MemoryObject
	Array  *Array
}

// MemoryWrite records a single write to a tracked object.
type MemoryWrite struct {
	Object *MemoryObject
	Offset Expr
	Value  Expr
}

// String returns a string representation of the write.
func (w MemoryWrite) String() string {
	return fmt.Sprintf("(write %s %s %s)", w.Object.Name, w.Offset, w.Value)
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

// memoryTarget is one resolution of an address to an object.
type memoryTarget struct {
	state  *ExecutionState
	object *MemoryObject
	offset Expr
}

// resolve maps addr to the objects an access of n bytes may touch. States
// are forked so each target state is constrained to its object. A state
// whose address matches no object fails with a pointer error.
func (e *Executor) resolve(state *ExecutionState, addr Expr, n uint) ([]memoryTarget, error) {
	addr = newZExtExpr(addr, Width64)

	if caddr, ok := addr.(*ConstantExpr); ok {
		os := state.ObjectContaining(caddr.Value)
		if os == nil || caddr.Value+uint64(n) > os.Object.Address+uint64(os.Object.Size) {
			state.Fail(ReasonPtr, "invalid memory address or nil pointer dereference")
			return nil, nil
		}
		return []memoryTarget{{state: state, object: os.Object, offset: NewConstantExpr64(caddr.Value - os.Object.Address)}}, nil
	}

	// Try the object pointed to by a model of the constraints first.
	if os, err := e.resolveOne(state, addr); err != nil {
		return e.resolveError(state, nil, err)
	} else if os != nil {
		if ok, err := e.MustBeTrue(state, os.Object.InBounds(addr, n)); err != nil {
			return e.resolveError(state, nil, err)
		} else if ok {
			return []memoryTarget{{state: state, object: os.Object, offset: objectOffset(os.Object, addr)}}, nil
		}
	}

	var targets []memoryTarget
	cur := state
	for _, os := range state.Objects() {
		t, f, err := e.Fork(cur, os.Object.InBounds(addr, n))
		if err != nil {
			return e.resolveError(cur, targets, err)
		}
		if t != nil {
			targets = append(targets, memoryTarget{state: t, object: os.Object, offset: objectOffset(os.Object, addr)})
		}
		if cur = f; cur == nil {
			break
		}
	}
	if cur != nil {
		cur.Fail(ReasonPtr, "memory error: out of bound pointer")
	}
	return targets, nil
}

// resolveOne returns the object containing the value of addr in some model
// of the state's constraints.
func (e *Executor) resolveOne(state *ExecutionState, addr Expr) (*ObjectState, error) {
	arrays := FindArrays(append(state.constraints[:len(state.constraints):len(state.constraints)], addr)...)
	satisfiable, values, err := e.Solver.Solve(state.constraints, arrays)
	if err != nil || !satisfiable {
		return nil, err
	}

	ee := NewExprEvaluator(arrays, values)
	ee.AllowUnbound = true
	value, err := ee.Evaluate(addr)
	if err != nil {
		return nil, nil
	}
	return state.ObjectContaining(value.Value), nil
}

// resolveError terminates state early on a solver timeout and returns the
// targets found so far. Other errors are passed through.
func (e *Executor) resolveError(state *ExecutionState, targets []memoryTarget, err error) ([]memoryTarget, error) {
	if !errors.Is(err, ErrSolverTimeout) {
		return nil, err
	}
	state.TerminateEarly("solver timeout while resolving address")
	return targets, nil
}

func objectOffset(mo *MemoryObject, addr Expr) Expr {
	return newSubExpr(addr, NewConstantExpr64(mo.Address))
}

// load binds the value of typ read from addr to instr on every target state.
func (e *Executor) load(state *ExecutionState, instr ssa.Value, addr Expr, typ types.Type) error {
	if containsString(typ) {
		return unsupported("load of string from memory")
	}

	n := e.Sizeof(typ) / 8
	targets, err := e.resolve(state, addr, n)
	if err != nil {
		return err
	}
	for _, t := range targets {
		contents := t.state.Contents(t.object)
		if isExprType(typ) {
			t.state.Frame().bind(instr, contents.Select(t.offset, e.Widthof(typ), e.IsLittleEndian()))
		} else {
			t.state.Frame().bind(instr, contents.Slice(t.offset, n))
		}
	}
	return nil
}

// store writes value of typ to addr on every target state.
func (e *Executor) store(state *ExecutionState, addr Expr, value Binding, typ types.Type) error {
	if containsString(typ) {
		return unsupported("store of string to memory")
	}

	n := e.Sizeof(typ) / 8
	if array, ok := value.(*Array); ok && array.Size != n {
		return unsupported("store of %d bytes into %s", array.Size, typ)
	}

	targets, err := e.resolve(state, addr, n)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t.object.ReadOnly {
			t.state.Fail(ReasonReadOnly, "write to read-only object: %s", t.object.Name)
			continue
		}
		t.state.write(t.object, t.offset, value)
	}
	return nil
}

// containsString returns true if values of typ hold a string directly.
func containsString(typ types.Type) bool {
	switch typ := typ.Underlying().(type) {
	case *types.Basic:
		return typ.Info()&types.IsString != 0
	case *types.Array:
		return containsString(typ.Elem())
	case *types.Struct:
		for i := 0; i < typ.NumFields(); i++ {
			if containsString(typ.Field(i).Type()) {
				return true
			}
		}
	}
	return false
}
