package glee

import (
	"fmt"
	"sync/atomic"
)

// arrayIDSeq hands out process-wide array identifiers. Solvers name arrays
// by ID so identifiers must never be reused across executor runs.
var arrayIDSeq uint64

// NextArrayID returns a new process-unique array identifier.
func NextArrayID() uint64 {
	return atomic.AddUint64(&arrayIDSeq, 1)
}

// Array represents an array of symbolic or concrete bytes.
type Array struct {
	ID      uint64       // unique id
	Name    string       // optional symbolic name
	Size    uint         // width, in bytes
	Updates *ArrayUpdate // linked list of symbolic updates
}

// NewArray returns a new Array of the given size.
func NewArray(id uint64, size uint) *Array {
	return &Array{
		ID:   id,
		Size: size,
	}
}

// NewSymbolicArray returns an unconstrained array with a fresh identifier.
func NewSymbolicArray(name string, size uint) *Array {
	return &Array{
		ID:   NextArrayID(),
		Name: name,
		Size: size,
	}
}

// NewZeroArray returns a fully concrete array of zero bytes.
func NewZeroArray(size uint) *Array {
	a := NewArray(NextArrayID(), size)
	a.zero()
	return a
}

// NewBytesArray returns a fully concrete array holding the little-endian bytes of value.
func NewBytesArray(value Expr) *Array {
	a := NewArray(NextArrayID(), minBytes(ExprWidth(value)))
	for i := uint(0); i < a.Size; i++ {
		a.storeByte(NewConstantExpr64(uint64(i)), NewExtractExpr(newZExtExpr(value, a.Size*8), i*8, Width8))
	}
	return a
}

// String returns a string representation of the array.
func (a *Array) String() string {
	if a.Name != "" {
		return fmt.Sprintf("(array %s#%d %d)", a.Name, a.ID, a.Size)
	} else if a.ID != 0 {
		return fmt.Sprintf("(array #%d %d)", a.ID, a.Size)
	}
	return fmt.Sprintf("(array %d)", a.Size)
}

// Clone returns a copy of the array. The update list is shared.
func (a *Array) Clone() *Array {
	other := *a
	return &other
}

// zero initializes all bytes to zero in-place. Panic if updates already exist.
func (a *Array) zero() {
	assert(a.Updates == nil, "glee.Array: cannot zero-initialize array with updates")
	for i := uint((0)); i < a.Size; i++ {
		a.storeByte(NewConstantExpr64(uint64(i)), NewConstantExpr(0, 8))
	}
}

// Select reads a value from the array.
func (a *Array) Select(offset Expr, width uint, isLittleEndian bool) Expr {
	assert(width > 0, "select: invalid width")

	offset = newZExtExpr(offset, Width64)

	if width == WidthBool {
		return NewExtractExpr(a.selectByte(offset), 0, WidthBool)
	}

	var result Expr
	for i, n := uint64(0), uint64(width)/8; i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = (n - i - 1)
		}

		value := a.selectByte(NewBinaryExpr(ADD, offset, NewConstantExpr64(byteOffset)))
		if i == 0 {
			result = value
		} else {
			result = NewConcatExpr(value, result)
		}
	}
	return result
}

// SelectByte reads the byte at a constant offset.
func (a *Array) SelectByte(i uint) Expr {
	return a.selectByte(NewConstantExpr64(uint64(i)))
}

// selectByte reads a single byte from the array.
//
// Attempts to find a concrete value by traversing the array update history.
// Falls back to a select expression if either the selected index or an update's
// index is symbolic.
func (a *Array) selectByte(index Expr) Expr {
	assert(ExprWidth(index) == 64, "selectByte: invalid array index width: %d", ExprWidth(index))
	for upd := a.Updates; upd != nil; upd = upd.Next {
		cond, ok := NewBinaryExpr(EQ, index, upd.Index).(*ConstantExpr)
		if !ok {
			break // found symbolic index, exit
		} else if cond.IsTrue() {
			return upd.Value
		}
	}
	return NewSelectExpr(a, index)
}

// Store writes a value at an offset. Returns a new copy of the array.
func (a *Array) Store(offset, value Expr, isLittleEndian bool) *Array {
	other := a.Clone()

	offset = newZExtExpr(offset, Width64)

	// Bool is the only non-byte sized write allowed.
	width := ExprWidth(value)
	assert(width > 0, "store: invalid width")
	if width == WidthBool {
		other.storeByte(offset, value)
		return other
	}

	for i, n := uint64(0), uint64(width)/8; i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = (n - i - 1)
		}

		other.storeByte(NewBinaryExpr(ADD, offset, NewConstantExpr64(uint64(byteOffset))), NewExtractExpr(value, uint(i*8), Width8))
	}
	return other
}

// StoreArray copies every byte of src into the array starting at offset.
// Returns a new copy of the array.
func (a *Array) StoreArray(offset Expr, src *Array) *Array {
	other := a.Clone()
	offset = newZExtExpr(offset, Width64)
	for i := uint(0); i < src.Size; i++ {
		other.storeByte(newAddExpr(offset, NewConstantExpr64(uint64(i))), src.SelectByte(i))
	}
	return other
}

// Slice returns a new array holding n bytes read from offset.
func (a *Array) Slice(offset Expr, n uint) *Array {
	offset = newZExtExpr(offset, Width64)
	other := NewArray(NextArrayID(), n)
	for i := uint(0); i < n; i++ {
		other.storeByte(NewConstantExpr64(uint64(i)), a.selectByte(newAddExpr(offset, NewConstantExpr64(uint64(i)))))
	}
	return other
}

// storeByte writes a single byte to the array.
//
// Update nodes may be shared with arrays held by other states so the chain
// is never modified in place. Earlier writes to the same concrete index are
// dropped by copying the concrete prefix of the chain.
func (a *Array) storeByte(index, value Expr) {
	assert(ExprWidth(index) == 64, "storeByte: invalid array index width: %d", ExprWidth(index))

	cindex, isConst := index.(*ConstantExpr)
	if isConst {
		assert(cindex.Value < uint64(a.Size), "storeByte: index out of bounds: %d < %d", cindex.Value, a.Size)
	}

	if !isConst {
		a.Updates = NewArrayUpdate(index, value, a.Updates)
		return
	}

	// Copy updates until the first symbolic index, skipping matching indices.
	var prefix []*ArrayUpdate
	tail := a.Updates
	for ; tail != nil; tail = tail.Next {
		updIndex, ok := tail.Index.(*ConstantExpr)
		if !ok {
			break
		} else if updIndex.Value != cindex.Value {
			prefix = append(prefix, tail)
		}
	}
	for i := len(prefix) - 1; i >= 0; i-- {
		tail = &ArrayUpdate{Index: prefix[i].Index, Value: prefix[i].Value, Next: tail}
	}
	a.Updates = NewArrayUpdate(index, value, tail)
}

// IsSymbolic returns true if any bytes in the array are symbolic.
func (a *Array) IsSymbolic() bool {
	// Mark all bytes with concrete values.
	bytes := make([]bool, a.Size)
	for upd := a.Updates; upd != nil; upd = upd.Next {
		if index, ok := upd.Index.(*ConstantExpr); !ok {
			return true // found symbolic index
		} else if _, ok := upd.Value.(*ConstantExpr); ok && index.Value < uint64(a.Size) {
			bytes[index.Value] = true // index & value are concrete
		}
	}

	for _, isConcrete := range bytes {
		if !isConcrete {
			return true
		}
	}
	return false
}

// readsBase returns true if some byte of the array may still read from the
// array's initial contents rather than from an update.
func (a *Array) readsBase() bool {
	written := make([]bool, a.Size)
	for upd := a.Updates; upd != nil; upd = upd.Next {
		index, ok := upd.Index.(*ConstantExpr)
		if !ok {
			return true
		} else if index.Value < uint64(a.Size) {
			written[index.Value] = true
		}
	}
	for _, ok := range written {
		if !ok {
			return true
		}
	}
	return false
}

// Equal returns a boolean expression stating if a is equal to other.
func (a *Array) Equal(other *Array) Expr {
	// Length is known at runtime so verify first.
	if a.Size != other.Size {
		return NewBoolConstantExpr(false)
	} else if a.Size == 0 {
		return NewBoolConstantExpr(true)
	}

	// Exit early if any concrete byte is unequal.
	var cond Expr
	for i := uint(0); i < a.Size; i++ {
		expr := newEqExpr(a.SelectByte(i), other.SelectByte(i))
		if IsConstantFalse(expr) {
			return NewBoolConstantExpr(false)
		}

		if i == 0 {
			cond = expr
		} else {
			cond = newAndExpr(cond, expr)
		}
	}
	return cond
}

// NotEqual returns a boolean expression stating if a is not equal to other.
func (a *Array) NotEqual(other *Array) Expr {
	// Length is known at runtime so verify first.
	if a.Size != other.Size {
		return NewBoolConstantExpr(true)
	} else if a.Size == 0 {
		return NewBoolConstantExpr(false)
	}

	// Exit early if any concrete byte is unequal.
	var cond Expr
	for i := uint(0); i < a.Size; i++ {
		expr := NewNotExpr(newEqExpr(a.SelectByte(i), other.SelectByte(i)))
		if IsConstantTrue(expr) {
			return NewBoolConstantExpr(true)
		}

		if i == 0 {
			cond = expr
		} else {
			cond = newOrExpr(cond, expr)
		}
	}
	return cond
}

// CompareArray returns an integer comparing two arrays.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArray(a, b *Array) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if a.ID < b.ID {
		return -1
	} else if a.ID > b.ID {
		return 1
	}

	if a.Size < b.Size {
		return -1
	} else if a.Size > b.Size {
		return 1
	}

	return CompareArrayUpdate(a.Updates, b.Updates)
}

// ArrayUpdate represents a symbolic update to an array.
type ArrayUpdate struct {
	Index Expr // byte index of update
	Value Expr // byte value to update

	Next *ArrayUpdate // linked list of next update
}

// NewArrayUpdate returns a new instance of ArrayUpdate.
func NewArrayUpdate(index, value Expr, next *ArrayUpdate) *ArrayUpdate {
	return &ArrayUpdate{
		Index: newZExtExpr(index, Width64),
		Value: newZExtExpr(value, Width8),
		Next:  next,
	}
}

// CompareArrayUpdate returns an integer comparing two array updates.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArrayUpdate(a, b *ArrayUpdate) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if cmp := CompareExpr(a.Index, b.Index); cmp != 0 {
		return cmp
	} else if cmp := CompareExpr(a.Value, b.Value); cmp != 0 {
		return cmp
	}
	return CompareArrayUpdate(a.Next, b.Next)
}
