package cse

import (
	"testing"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/interval"
	"github.com/stretchr/testify/assert"
)

func TestRangeConstraints(t *testing.T) {
	x := glee.NewSymbolicArray("x", 1).Select(glee.NewConstantExpr64(0), 8, true)

	t.Run("Signed", func(t *testing.T) {
		assert.Equal(t, []glee.Expr{
			glee.NewBinaryExpr(glee.SLE, glee.NewConstantExpr(0xFB, 8), x),
			glee.NewBinaryExpr(glee.SLE, x, glee.NewConstantExpr(10, 8)),
		}, rangeConstraints(x, interval.New(-5, 10), false))
	})

	t.Run("Unsigned", func(t *testing.T) {
		assert.Equal(t, []glee.Expr{
			glee.NewBinaryExpr(glee.ULE, x, glee.NewConstantExpr(10, 8)),
		}, rangeConstraints(x, interval.New(-5, 10), true))
	})

	t.Run("Unrepresentable", func(t *testing.T) {
		assert.Equal(t, []glee.Expr{
			glee.NewBinaryExpr(glee.SLE, glee.NewConstantExpr(1, 8), x),
		}, rangeConstraints(x, interval.New(1, 300), false))
	})

	t.Run("Unbounded", func(t *testing.T) {
		assert.Empty(t, rangeConstraints(x, interval.New(interval.MIN, interval.MAX), false))
		assert.Equal(t, []glee.Expr{
			glee.NewBinaryExpr(glee.SLE, x, glee.NewConstantExpr(3, 8)),
		}, rangeConstraints(x, interval.New(interval.MIN, 3), false))
	})
}
