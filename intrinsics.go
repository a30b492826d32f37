package glee

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// PackagePath is the import path of the intrinsic functions below.
const PackagePath = "github.com/glee-cse/glee"

// Assert restricts the current path to executions where cond holds.
func Assert(cond bool) {}

// execAssert represents a function handler for adding an assumption to the current state.
func execAssert(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	cond, ok := args[0].(Expr)
	if !ok {
		return fmt.Errorf("glee.Assert(): unable to assert non-expression: %T", args[0])
	}

	if ok, err := state.Executor().MayBeTrue(state, cond); err != nil {
		return err
	} else if !ok {
		state.TerminateEarly("infeasible assumption")
		return nil
	}
	state.AddConstraint(cond)
	return nil
}

// Check reports an assertion failure on every path where cond does not hold.
func Check(cond bool) {}

func execCheck(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	cond, ok := args[0].(Expr)
	if !ok {
		return fmt.Errorf("glee.Check(): unable to check non-expression: %T", args[0])
	}

	_, f, err := state.Executor().Fork(state, cond)
	if err != nil {
		return err
	} else if f != nil {
		f.Fail(ReasonAssert, "assertion failed")
	}
	return nil
}

// Report marks the current path as reaching an application-level error.
func Report(msg string) {}

func execReport(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	msg, ok := ConcreteString(args[0].(*Array))
	if !ok {
		msg = "reported error"
	}
	return &RuntimeError{Reason: ReasonReportError, Message: msg}
}

// Byte returns a symbolic byte.
func Byte() byte { return 0 }

// Int returns a symbolic signed integer with the current execution engine's integer width.
func Int() int { return 0 }

// Int8 returns a symbolic 8-bit signed integer.
func Int8() int8 { return 0 }

// Int16 returns a symbolic 16-bit signed integer.
func Int16() int16 { return 0 }

// Int32 returns a symbolic 32-bit signed integer.
func Int32() int32 { return 0 }

// Int64 returns a symbolic 64-bit signed integer.
func Int64() int64 { return 0 }

func Uint() uint     { return 0 }
func Uint8() uint8   { return 0 }
func Uint16() uint16 { return 0 }
func Uint32() uint32 { return 0 }
func Uint64() uint64 { return 0 }

// execInt represents a function handler for all int & uint special functions.
func execInt(state *ExecutionState, instr *ssa.Call) error {
	fn := instr.Call.StaticCallee()
	width := state.Executor().Sizeof(instr.Type())
	array := NewSymbolicArray(fmt.Sprintf("%s_%d_%d", fn.Name(), state.ID(), NextArrayID()), width/8)
	state.Frame().bind(instr, array.Select(NewConstantExpr64(0), width, state.Executor().IsLittleEndian()))
	return nil
}

// String returns a symbolic string that is n bytes long.
func String(n int) string { return "" }

// execString represents a function handler for the String() function.
func execString(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	n, ok := args[0].(*ConstantExpr)
	if !ok {
		return &RuntimeError{Reason: ReasonUser, Message: "glee.String(): only constant size allowed"}
	}
	state.Frame().bind(instr, NewSymbolicArray(fmt.Sprintf("string_%d", state.ID()), uint(n.Value)))
	return nil
}

// ByteSlice returns a symbolic byte slice that is n bytes long.
func ByteSlice(n int) []byte { return nil }

// execByteSlice represents a function handler for the ByteSlice() function.
func execByteSlice(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	n, ok := args[0].(*ConstantExpr)
	if !ok {
		return &RuntimeError{Reason: ReasonUser, Message: "glee.ByteSlice(): only constant size allowed"}
	}

	// Allocate underlying byte array & bind a header pointing to it.
	pointerWidth := state.Executor().PointerWidth()
	data := state.AllocArray("[]byte", NewSymbolicArray(fmt.Sprintf("bytes_%d", state.ID()), uint(n.Value)))
	length := NewConstantExpr(n.Value, pointerWidth)
	state.Frame().bind(instr, state.newHeader(NewConstantExpr(data.Address, pointerWidth), length, length))
	return nil
}

// execCopy represents a function handler for the builtin copy() function.
// Both slices must have concrete data pointers & lengths.
func execCopy(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}

	dstType := instr.Call.Args[0].Type().Underlying().(*types.Slice)
	elemSize := uint64(state.Executor().Sizeof(dstType.Elem()) / 8)

	dst, dstOffset, dstLen, err := concreteSlice(state, args[0].(*Array))
	if err != nil {
		return err
	}

	// For a slice the source is its data object. For a string it's the raw data.
	var src *Array
	var srcOffset, srcLen uint64
	switch instr.Call.Args[1].Type().Underlying().(type) {
	case *types.Slice:
		var obj *ObjectState
		if obj, srcOffset, srcLen, err = concreteSlice(state, args[1].(*Array)); err != nil {
			return err
		} else if obj != nil {
			src = obj.Array
		}
	default:
		src = args[1].(*Array)
		srcLen = uint64(src.Size)
	}

	// Copy min(len(dst), len(src)) elements.
	n := dstLen
	if srcLen < n {
		n = srcLen
	}
	if n > 0 {
		chunk := src.Slice(NewConstantExpr64(srcOffset), uint(n*elemSize))
		state.write(dst.Object, NewConstantExpr64(dstOffset), chunk)
	}
	state.Frame().bind(instr, NewConstantExpr(n, state.Executor().Sizeof(instr.Type())))
	return nil
}

// concreteSlice returns the data object, byte offset & length of a slice header.
// The object is nil for an empty slice.
func concreteSlice(state *ExecutionState, hdr *Array) (obj *ObjectState, offset, length uint64, err error) {
	data, ok := state.selectIntAt(hdr, 0).(*ConstantExpr)
	if !ok {
		return nil, 0, 0, unsupported("copy() with symbolic slice data address")
	}
	n, ok := state.selectIntAt(hdr, 1).(*ConstantExpr)
	if !ok {
		return nil, 0, 0, unsupported("copy() with symbolic slice length")
	} else if n.Value == 0 {
		return nil, 0, 0, nil
	}

	if obj = state.ObjectContaining(data.Value); obj == nil {
		return nil, 0, 0, &RuntimeError{Reason: ReasonPtr, Message: fmt.Sprintf("slice data not found: %d", data.Value)}
	}
	return obj, data.Value - obj.Object.Address, n.Value, nil
}

// execLen represents a function handler for the builtin len() function.
func execLen(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}
	width := state.Executor().Sizeof(instr.Type())

	switch typ := instr.Call.Args[0].Type().Underlying().(type) {
	case *types.Slice:
		state.Frame().bind(instr, state.selectIntAt(args[0].(*Array), 1))
	case *types.Basic:
		state.Frame().bind(instr, NewConstantExpr(uint64(args[0].(*Array).Size), width))
	case *types.Array:
		state.Frame().bind(instr, NewConstantExpr(uint64(typ.Len()), width))
	case *types.Pointer:
		state.Frame().bind(instr, NewConstantExpr(uint64(typ.Elem().Underlying().(*types.Array).Len()), width))
	default:
		return unsupported("len() of %s", typ)
	}
	return nil
}

// execCap represents a function handler for the builtin cap() function.
func execCap(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}
	width := state.Executor().Sizeof(instr.Type())

	switch typ := instr.Call.Args[0].Type().Underlying().(type) {
	case *types.Slice:
		state.Frame().bind(instr, state.selectIntAt(args[0].(*Array), 2))
	case *types.Array:
		state.Frame().bind(instr, NewConstantExpr(uint64(typ.Len()), width))
	case *types.Pointer:
		state.Frame().bind(instr, NewConstantExpr(uint64(typ.Elem().Underlying().(*types.Array).Len()), width))
	default:
		return unsupported("cap() of %s", typ)
	}
	return nil
}

// execExit represents a function handler for os.Exit().
func execExit(state *ExecutionState, instr *ssa.Call) error {
	_, args, err := state.ExtractCall(instr)
	if err != nil {
		return err
	}
	state.Fail(ReasonExit, "exit(%s)", args[0])
	return nil
}

// ConcreteString returns the string held by a fully concrete array.
func ConcreteString(a *Array) (string, bool) {
	if a == nil {
		return "", false
	}
	buf := make([]byte, a.Size)
	for i := range buf {
		b, ok := a.SelectByte(uint(i)).(*ConstantExpr)
		if !ok {
			return "", false
		}
		buf[i] = byte(b.Value)
	}
	return string(buf), true
}
