package cse_test

import (
	"context"
	"testing"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/cse"
	"github.com/glee-cse/glee/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Clamp(t *testing.T) {
	m := NewManager(t, cse.DefaultConfig())
	fn := MustFindFunction(t, m.Program(), "clamp")

	sum, err := m.Summary(context.Background(), fn)
	require.NoError(t, err)
	require.Len(t, sum.NormalPaths(), 3)
	assert.Empty(t, sum.ErrorPaths())

	arg, ok := sum.Arg(0)
	require.True(t, ok)
	x := arg.Array.Select(glee.NewConstantExpr64(0), 64, true)

	// Preconditions are pairwise exclusive and cover every input.
	paths := sum.NormalPaths()
	for i := range paths {
		for j := i + 1; j < len(paths); j++ {
			assert.False(t, m.Satisfiable(t, append(append([]glee.Expr(nil), paths[i].Precondition...), paths[j].Precondition...)...), "paths %d and %d overlap", i, j)
		}
	}
	assert.False(t, m.Satisfiable(t, glee.NewNotExpr(sum.Context())))

	// A model of each precondition reproduces the concrete result.
	returns := make(map[int64]bool)
	for _, p := range paths {
		values := m.MustEvaluate(t, p.Precondition, x, p.Value().(glee.Expr))
		input, result := int64(values[0]), int64(values[1])
		assert.Equal(t, clamp(input), result, "input %d", input)

		if _, ok := p.Value().(*glee.ConstantExpr); ok {
			returns[result] = true
		} else {
			assert.Equal(t, x, p.Value())
			returns[-1] = true
		}
	}
	assert.Equal(t, map[int64]bool{0: true, 100: true, -1: true}, returns)
}

func clamp(x int64) int64 {
	if x < 0 {
		return 0
	} else if x > 100 {
		return 100
	}
	return x
}

func TestExecutor_PointerArg(t *testing.T) {
	m := NewManager(t, cse.DefaultConfig())
	fn := MustFindFunction(t, m.Program(), "setOne")

	sum, err := m.Summary(context.Background(), fn)
	require.NoError(t, err)

	require.NotEmpty(t, sum.ErrorPaths())
	for _, p := range sum.ErrorPaths() {
		assert.Equal(t, glee.ReasonPtr, p.Reason)
	}

	arg, ok := sum.Arg(0)
	require.True(t, ok)
	require.True(t, arg.IsPointer())
	assert.Equal(t, "p_pointee", arg.Pointee.Name)

	require.NotEmpty(t, sum.NormalPaths())
	p := sum.NormalPaths()[0]
	assert.True(t, p.Void)
	require.Len(t, p.Effects, 1)
	assert.Equal(t, "*arg0", p.Effects[0].Target())

	// The pointee holds 1 on every model of the path.
	value := p.Effects[0].Contents.Select(glee.NewConstantExpr64(0), 64, true)
	cond := glee.NewBinaryExpr(glee.EQ, value, glee.NewConstantExpr(1, 64))
	assert.False(t, m.Satisfiable(t, append(append([]glee.Expr(nil), p.Precondition...), glee.NewNotExpr(cond))...))

	t.Run("ContextImpliesDomain", func(t *testing.T) {
		require.NotEmpty(t, sum.Domain())
		assert.False(t, m.Satisfiable(t, sum.Context(), glee.NewNotExpr(glee.Conjunction(sum.Domain()...))))
	})
}

func TestExecutor_Exit(t *testing.T) {
	m := NewManager(t, cse.DefaultConfig())
	sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "exitOnNegative"))
	require.NoError(t, err)

	require.Len(t, sum.ErrorPaths(), 1)
	assert.Equal(t, glee.ReasonExit, sum.ErrorPaths()[0].Reason)
	assert.Len(t, sum.NormalPaths(), 1)
}

func TestExecutor_LoopUnroll(t *testing.T) {
	config := cse.DefaultConfig()
	config.MaxLoopUnroll = 5

	m := NewManager(t, config)
	sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "loop"))
	require.NoError(t, err)

	require.NotEmpty(t, sum.NormalPaths())
	assert.LessOrEqual(t, len(sum.NormalPaths()), config.MaxLoopUnroll)
	assert.Empty(t, sum.ErrorPaths())

	// No path covers an input needing more iterations than the bound.
	arg, _ := sum.Arg(0)
	n := arg.Array.Select(glee.NewConstantExpr64(0), 64, true)
	bounded := glee.NewBinaryExpr(glee.SLE, n, glee.NewConstantExpr(uint64(config.MaxLoopUnroll), 64))
	for _, p := range sum.NormalPaths() {
		assert.False(t, m.Satisfiable(t, append(append([]glee.Expr(nil), p.Precondition...), glee.NewNotExpr(bounded))...))
	}
}

func TestExecutor_WriteLog(t *testing.T) {
	config := cse.DefaultConfig()
	config.Strategy = cse.StrategyTD

	m := NewManager(t, config)
	sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "bump"))
	require.NoError(t, err)
	require.Len(t, sum.NormalPaths(), 1)
	require.Len(t, sum.Globals(), 1)
	assert.Equal(t, "counter", sum.Globals()[0].Global.Name())

	effects := sum.NormalPaths()[0].Effects
	require.Len(t, effects, 1)
	assert.Equal(t, "counter", effects[0].Target())
	require.True(t, effects[0].IsWriteLog())

	arg, _ := sum.Arg(0)
	writes := effects[0].Writes
	require.Len(t, writes, 2)
	assert.Equal(t, glee.NewConstantExpr(1, 64), writes[0].Value)
	assert.Equal(t, arg.Array.Select(glee.NewConstantExpr64(0), 64, true), writes[1].Value)
	assert.Equal(t, glee.NewConstantExpr64(0), writes[0].Offset)
}

func TestExecutor_FinalValue(t *testing.T) {
	m := NewManager(t, cse.DefaultConfig())
	sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "bump"))
	require.NoError(t, err)
	require.Len(t, sum.NormalPaths(), 1)

	effects := sum.NormalPaths()[0].Effects
	require.Len(t, effects, 1)
	require.False(t, effects[0].IsWriteLog())

	arg, _ := sum.Arg(0)
	x := arg.Array.Select(glee.NewConstantExpr64(0), 64, true)
	final := effects[0].Contents.Select(glee.NewConstantExpr64(0), 64, true)
	assert.False(t, m.Satisfiable(t, glee.NewBinaryExpr(glee.NE, x, final)))
}

func TestExecutor_ConstantGlobal(t *testing.T) {
	m := NewManager(t, cse.DefaultConfig())
	sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "belowLimit"))
	require.NoError(t, err)
	assert.Empty(t, sum.Globals())
	require.Len(t, sum.NormalPaths(), 1)

	arg, _ := sum.Arg(0)
	x := arg.Array.Select(glee.NewConstantExpr64(0), 64, true)
	result := sum.NormalPaths()[0].Value().(glee.Expr)

	// The result is x < 100 for the initializer's value of limit.
	below := glee.NewBinaryExpr(glee.SLT, x, glee.NewConstantExpr(100, 64))
	assert.False(t, m.Satisfiable(t, result, glee.NewNotExpr(below)))
	assert.False(t, m.Satisfiable(t, glee.NewNotExpr(result), below))
}

func TestExecutor_ContextSensitive(t *testing.T) {
	config := cse.DefaultConfig()
	config.Strategy = cse.StrategyCTX

	prog := MustBuildProgram(t)
	fn := MustFindFunction(t, prog, "scale")
	m := NewManager(t, config, cse.WithIntervals(interval.Static{fn: {interval.New(0, 5)}}))

	sum, err := m.Summary(context.Background(), fn)
	require.NoError(t, err)
	assert.Len(t, sum.Domain(), 2)
	require.Len(t, sum.NormalPaths(), 1)
	assert.Equal(t, glee.NewConstantExpr(0, 64), sum.NormalPaths()[0].Value())

	t.Run("Top", func(t *testing.T) {
		m := NewManager(t, config, cse.WithIntervals(interval.Static{}))
		sum, err := m.Summary(context.Background(), fn)
		require.NoError(t, err)
		assert.Empty(t, sum.Domain())
		assert.Len(t, sum.NormalPaths(), 2)
	})
}

func TestExecutor_UnsupportedArg(t *testing.T) {
	m := NewManager(t, cse.DefaultConfig())
	sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "sliceLen"))
	require.NoError(t, err)
	assert.Empty(t, sum.NormalPaths())
	require.Len(t, sum.ErrorPaths(), 1)
	assert.Equal(t, glee.ReasonUnhandled, sum.ErrorPaths()[0].Reason)
	assert.False(t, m.Satisfiable(t, glee.NewNotExpr(sum.Context())))
}

func TestExecutor_HaltOn(t *testing.T) {
	config := cse.DefaultConfig()
	config.HaltOn = []string{"assert"}

	m := NewManager(t, config)
	fn := MustFindFunction(t, m.Program(), "checked")
	sum, err := m.Summary(context.Background(), fn)
	require.NoError(t, err)

	require.Len(t, sum.ErrorPaths(), 1)
	assert.Equal(t, glee.ReasonAssert, sum.ErrorPaths()[0].Reason)
	assert.Empty(t, sum.NormalPaths())
	assert.Equal(t, 1, m.Stats().Halted)

	// Partial summaries are still published.
	cached, ok := m.Lookup(fn)
	require.True(t, ok)
	assert.Same(t, sum, cached)
	assert.True(t, cached.Frozen())

	t.Run("Disabled", func(t *testing.T) {
		m := NewManager(t, cse.DefaultConfig())
		sum, err := m.Summary(context.Background(), fn)
		require.NoError(t, err)
		assert.Len(t, sum.ErrorPaths(), 2)
		assert.Len(t, sum.NormalPaths(), 1)
		assert.Equal(t, 0, m.Stats().Halted)
	})
}
