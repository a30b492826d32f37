package glee_test

import (
	"testing"

	"github.com/glee-cse/glee"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprWidth(t *testing.T) {
	c8, c16, c32 := glee.NewConstantExpr(0, 8), glee.NewConstantExpr(0, 16), glee.NewConstantExpr(0, 32)
	for _, tt := range []struct {
		name  string
		expr  glee.Expr
		width uint
	}{
		{"ConstantExpr", c8, 8},
		{"NotOptimizedExpr", &glee.NotOptimizedExpr{Src: c8}, 8},
		{"SelectExpr", &glee.SelectExpr{}, 8},
		{"ConcatExpr", &glee.ConcatExpr{MSB: c8, LSB: c16}, 24},
		{"ExtractExpr", &glee.ExtractExpr{Expr: c32, Offset: 8, Width: 16}, 16},
		{"NotExpr", &glee.NotExpr{Expr: c8}, 8},
		{"CastExpr", &glee.CastExpr{Src: c8, Width: 16}, 16},
		{"CompareExpr", &glee.BinaryExpr{Op: glee.EQ, LHS: c8, RHS: c8}, 1},
		{"ArithmeticExpr", &glee.BinaryExpr{Op: glee.ADD, LHS: c16, RHS: c16}, 16},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.width, glee.ExprWidth(tt.expr))
		})
	}
}

func TestBinaryOp(t *testing.T) {
	assert.Equal(t, "add", glee.ADD.String())
	assert.Equal(t, "sge", glee.SGE.String())
	assert.Equal(t, "BinaryOp<1000>", glee.BinaryOp(1000).String())
	assert.True(t, glee.ADD.IsArithmetic())
	assert.False(t, glee.EQ.IsArithmetic())
	assert.True(t, glee.ULT.IsCompare())
	assert.False(t, glee.XOR.IsCompare())
}

func TestNewBinaryExpr_Constant(t *testing.T) {
	for _, tt := range []struct {
		op       glee.BinaryOp
		lhs, rhs uint64
		width    uint
		want     *glee.ConstantExpr
	}{
		{glee.ADD, 3, 4, 8, glee.NewConstantExpr(7, 8)},
		{glee.ADD, 0xFF, 1, 8, glee.NewConstantExpr(0, 8)},
		{glee.SUB, 3, 4, 8, glee.NewConstantExpr(0xFF, 8)},
		{glee.MUL, 3, 4, 16, glee.NewConstantExpr(12, 16)},
		{glee.UDIV, 13, 4, 32, glee.NewConstantExpr(3, 32)},
		{glee.UDIV, 13, 0, 32, glee.NewConstantExpr(0xFFFFFFFF, 32)},
		{glee.SDIV, 0xF8, 2, 8, glee.NewConstantExpr(0xFC, 8)},
		{glee.UREM, 13, 4, 32, glee.NewConstantExpr(1, 32)},
		{glee.UREM, 13, 0, 32, glee.NewConstantExpr(13, 32)},
		{glee.SREM, 0xF9, 2, 8, glee.NewConstantExpr(0xFF, 8)},
		{glee.AND, 0x0F, 0x3C, 8, glee.NewConstantExpr(0x0C, 8)},
		{glee.OR, 0x0F, 0x30, 8, glee.NewConstantExpr(0x3F, 8)},
		{glee.XOR, 0x0F, 0x3C, 8, glee.NewConstantExpr(0x33, 8)},
		{glee.SHL, 0x01, 4, 8, glee.NewConstantExpr(0x10, 8)},
		{glee.LSHR, 0x80, 4, 8, glee.NewConstantExpr(0x08, 8)},
		{glee.ASHR, 0x80, 4, 8, glee.NewConstantExpr(0xF8, 8)},
		{glee.EQ, 5, 5, 32, glee.NewBoolConstantExpr(true)},
		{glee.NE, 5, 5, 32, glee.NewBoolConstantExpr(false)},
		{glee.ULT, 1, 0xFF, 8, glee.NewBoolConstantExpr(true)},
		{glee.SLT, 1, 0xFF, 8, glee.NewBoolConstantExpr(false)},
		{glee.UGE, 1, 0xFF, 8, glee.NewBoolConstantExpr(false)},
		{glee.SGE, 1, 0xFF, 8, glee.NewBoolConstantExpr(true)},
	} {
		t.Run(tt.op.String(), func(t *testing.T) {
			got := glee.NewBinaryExpr(tt.op, glee.NewConstantExpr(tt.lhs, tt.width), glee.NewConstantExpr(tt.rhs, tt.width))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestNewBinaryExpr_Symbolic(t *testing.T) {
	x := glee.NewArray(1, 4).Select(glee.NewConstantExpr64(0), 32, true)

	t.Run("AddZero", func(t *testing.T) {
		assert.Equal(t, x, glee.NewBinaryExpr(glee.ADD, x, glee.NewConstantExpr(0, 32)))
	})
	t.Run("SubSelf", func(t *testing.T) {
		assert.Equal(t, glee.NewConstantExpr(0, 32), glee.NewBinaryExpr(glee.SUB, x, x))
	})
	t.Run("EqSelf", func(t *testing.T) {
		assert.True(t, glee.IsConstantTrue(glee.NewBinaryExpr(glee.EQ, x, x)))
	})
	t.Run("Unfolded", func(t *testing.T) {
		expr, ok := glee.NewBinaryExpr(glee.ULT, x, glee.NewConstantExpr(10, 32)).(*glee.BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, glee.ULT, expr.Op)
	})
	t.Run("Reversed", func(t *testing.T) {
		expr, ok := glee.NewBinaryExpr(glee.UGT, x, glee.NewConstantExpr(10, 32)).(*glee.BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, glee.ULT, expr.Op)
		assert.Equal(t, glee.NewConstantExpr(10, 32), expr.LHS)
	})
}

func TestConjunction(t *testing.T) {
	x := glee.NewArray(1, 1).Select(glee.NewConstantExpr64(0), 1, true)

	assert.True(t, glee.IsConstantTrue(glee.Conjunction()))
	assert.Equal(t, x, glee.Conjunction(x))
	assert.True(t, glee.IsConstantFalse(glee.Conjunction(x, glee.NewBoolConstantExpr(false))))
}

func TestDisjunction(t *testing.T) {
	x := glee.NewArray(1, 1).Select(glee.NewConstantExpr64(0), 1, true)

	assert.True(t, glee.IsConstantFalse(glee.Disjunction()))
	assert.Equal(t, x, glee.Disjunction(x))
	assert.True(t, glee.IsConstantTrue(glee.Disjunction(x, glee.NewBoolConstantExpr(true))))
}

func TestCompareExpr(t *testing.T) {
	a, b := glee.NewConstantExpr(1, 8), glee.NewConstantExpr(2, 8)
	assert.Equal(t, 0, glee.CompareExpr(a, glee.NewConstantExpr(1, 8)))
	assert.Equal(t, -1, glee.CompareExpr(a, b))
	assert.Equal(t, 1, glee.CompareExpr(b, a))
}

func TestFindArrays(t *testing.T) {
	a, b := glee.NewArray(2, 1), glee.NewArray(1, 2)
	expr := glee.NewBinaryExpr(glee.ADD,
		glee.NewCastExpr(a.Select(glee.NewConstantExpr64(0), 8, true), 16, false),
		b.Select(glee.NewConstantExpr64(0), 16, true),
	)

	arrays := glee.FindArrays(expr, glee.NewBoolConstantExpr(true))
	require.Len(t, arrays, 2)
	assert.Equal(t, uint64(1), arrays[0].ID)
	assert.Equal(t, uint64(2), arrays[1].ID)

	// Fully concrete arrays hold no unknowns.
	assert.Empty(t, glee.FindArrays(glee.NewZeroArray(2).Select(glee.NewConstantExpr64(0), 16, true)))
}

func TestExprEvaluator_Evaluate(t *testing.T) {
	a := glee.NewArray(1, 2)
	x := a.Select(glee.NewConstantExpr64(0), 16, true)

	t.Run("OK", func(t *testing.T) {
		ee := glee.NewExprEvaluator([]*glee.Array{a}, [][]byte{{0x02, 0x01}})
		v, err := ee.Evaluate(glee.NewBinaryExpr(glee.ADD, x, glee.NewConstantExpr(1, 16)))
		require.NoError(t, err)
		assert.Equal(t, glee.NewConstantExpr(0x0103, 16), v)
	})

	t.Run("Update", func(t *testing.T) {
		b := a.Store(glee.NewConstantExpr64(1), glee.NewConstantExpr(0xFF, 8), true)
		ee := glee.NewExprEvaluator([]*glee.Array{a}, [][]byte{{0x02, 0x01}})
		v, err := ee.Evaluate(b.Select(glee.NewConstantExpr64(0), 16, true))
		require.NoError(t, err)
		assert.Equal(t, glee.NewConstantExpr(0xFF02, 16), v)
	})

	t.Run("ErrUnbound", func(t *testing.T) {
		_, err := glee.NewExprEvaluator(nil, nil).Evaluate(x)
		assert.Error(t, err)
	})

	t.Run("AllowUnbound", func(t *testing.T) {
		ee := glee.NewExprEvaluator(nil, nil)
		ee.AllowUnbound = true
		v, err := ee.Evaluate(x)
		require.NoError(t, err)
		assert.Equal(t, glee.NewConstantExpr(0, 16), v)
	})
}
