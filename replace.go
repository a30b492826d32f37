package glee

import (
	"fmt"
)

// ArrayReplacer rewrites expressions so that reads of selected arrays read
// from replacement arrays instead. Expressions are rebuilt rather than
// mutated so the inputs may be shared with other states.
//
// A replacement only substitutes the initial contents of an array. Updates
// applied on top of the original array are rewritten and applied on top of
// the replacement.
type ArrayReplacer struct {
	// When set, arrays without a replacement are renamed to fresh
	// identifiers so repeated instantiations of the same expressions do not
	// share unconstrained inputs.
	Refresh bool

	roots   map[uint64]*Array
	fresh   map[uint64]*Array
	arrays  map[*Array]*Array
	updates map[*ArrayUpdate]*ArrayUpdate
	exprs   map[Expr]Expr
}

// NewArrayReplacer returns a new instance of ArrayReplacer.
func NewArrayReplacer() *ArrayReplacer {
	return &ArrayReplacer{
		roots:   make(map[uint64]*Array),
		fresh:   make(map[uint64]*Array),
		arrays:  make(map[*Array]*Array),
		updates: make(map[*ArrayUpdate]*ArrayUpdate),
		exprs:   make(map[Expr]Expr),
	}
}

// Replace substitutes the initial contents of the array identified by id.
// Must be called before any rewriting.
func (r *ArrayReplacer) Replace(id uint64, with *Array) {
	assert(len(r.arrays) == 0 && len(r.exprs) == 0, "replace after rewrite")
	r.roots[id] = with
}

// Binding rewrites an expression, array or tuple.
func (r *ArrayReplacer) Binding(b Binding) Binding {
	switch b := b.(type) {
	case nil:
		return nil
	case *Array:
		return r.Array(b)
	case Tuple:
		other := make(Tuple, len(b))
		for i := range b {
			other[i] = r.Binding(b[i])
		}
		return other
	case Expr:
		return r.Expr(b)
	default:
		panic(fmt.Sprintf("glee: unexpected binding: %T", b))
	}
}

// Array returns the rewritten form of a.
func (r *ArrayReplacer) Array(a *Array) *Array {
	if a == nil {
		return nil
	} else if other, ok := r.arrays[a]; ok {
		return other
	}

	base := r.base(a)
	other := &Array{ID: base.ID, Name: base.Name, Size: a.Size}
	other.Updates = r.rewriteUpdates(a.Updates, base.Updates)

	// Keep the original when nothing changed.
	if other.ID == a.ID && other.Updates == a.Updates {
		other = a
	}
	r.arrays[a] = other
	return other
}

// base returns the array whose initial contents a reads from after rewriting.
func (r *ArrayReplacer) base(a *Array) *Array {
	if with, ok := r.roots[a.ID]; ok {
		assert(with.Size == a.Size, "replacement size mismatch: %d != %d", with.Size, a.Size)
		return with
	} else if !r.Refresh || a.ID == 0 {
		return &Array{ID: a.ID, Name: a.Name, Size: a.Size}
	}

	if fresh, ok := r.fresh[a.ID]; ok {
		return fresh
	}
	fresh := NewSymbolicArray(a.Name, a.Size)
	r.fresh[a.ID] = fresh
	return fresh
}

// rewriteUpdates rewrites an update chain on top of base. Chains are shared
// between arrays of the same lineage so rewritten nodes are memoized.
func (r *ArrayReplacer) rewriteUpdates(upd, base *ArrayUpdate) *ArrayUpdate {
	if upd == nil {
		return base
	} else if other, ok := r.updates[upd]; ok {
		return other
	}

	next := r.rewriteUpdates(upd.Next, base)
	index, value := r.Expr(upd.Index), r.Expr(upd.Value)

	other := upd
	if next != upd.Next || index != upd.Index || value != upd.Value {
		other = NewArrayUpdate(index, value, next)
	}
	r.updates[upd] = other
	return other
}

// Expr returns the rewritten form of expr. Rewritten expressions are rebuilt
// through the expression constructors so they fold where possible.
func (r *ArrayReplacer) Expr(expr Expr) Expr {
	if expr == nil {
		return nil
	} else if other, ok := r.exprs[expr]; ok {
		return other
	}

	var other Expr
	switch expr := expr.(type) {
	case *ConstantExpr:
		other = expr
	case *BinaryExpr:
		lhs, rhs := r.Expr(expr.LHS), r.Expr(expr.RHS)
		if lhs == expr.LHS && rhs == expr.RHS {
			other = expr
		} else {
			other = NewBinaryExpr(expr.Op, lhs, rhs)
		}
	case *CastExpr:
		if src := r.Expr(expr.Src); src == expr.Src {
			other = expr
		} else {
			other = NewCastExpr(src, expr.Width, expr.Signed)
		}
	case *ConcatExpr:
		msb, lsb := r.Expr(expr.MSB), r.Expr(expr.LSB)
		if msb == expr.MSB && lsb == expr.LSB {
			other = expr
		} else {
			other = NewConcatExpr(msb, lsb)
		}
	case *ExtractExpr:
		if src := r.Expr(expr.Expr); src == expr.Expr {
			other = expr
		} else {
			other = NewExtractExpr(src, expr.Offset, expr.Width)
		}
	case *NotExpr:
		if src := r.Expr(expr.Expr); src == expr.Expr {
			other = expr
		} else {
			other = NewNotExpr(src)
		}
	case *NotOptimizedExpr:
		if src := r.Expr(expr.Src); src == expr.Src {
			other = expr
		} else {
			other = NewNotOptimizedExpr(src)
		}
	case *SelectExpr:
		array, index := r.Array(expr.Array), r.Expr(expr.Index)
		if array == expr.Array && index == expr.Index {
			other = expr
		} else {
			other = array.selectByte(newZExtExpr(index, Width64))
		}
	default:
		panic(fmt.Sprintf("glee: unexpected expression: %T", expr))
	}

	r.exprs[expr] = other
	return other
}
