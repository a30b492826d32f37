package cse_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/cse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Compose(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		m := NewManager(t, cse.DefaultConfig())
		sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "callClamp"))
		require.NoError(t, err)
		require.Len(t, sum.NormalPaths(), 3)
		assert.Empty(t, sum.ErrorPaths())

		// The callee was summarized once and its paths reused.
		_, ok := m.Lookup(MustFindFunction(t, m.Program(), "clamp"))
		assert.True(t, ok)
		assert.Equal(t, 2, m.Stats().Runs)
		assert.GreaterOrEqual(t, m.Stats().Paths.Composed, 1)

		arg, _ := sum.Arg(0)
		y := arg.Array.Select(glee.NewConstantExpr64(0), 64, true)
		for _, p := range sum.NormalPaths() {
			values := m.MustEvaluate(t, p.Precondition, y, p.Value().(glee.Expr))
			assert.Equal(t, clamp(int64(values[0]))+1, int64(values[1]))
		}
		assert.False(t, m.Satisfiable(t, glee.NewNotExpr(sum.Context())))
	})

	t.Run("PointerArg", func(t *testing.T) {
		m := NewManager(t, cse.DefaultConfig())
		sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "callSetOne"))
		require.NoError(t, err)
		require.Len(t, sum.NormalPaths(), 1)
		assert.Empty(t, sum.ErrorPaths())
		assert.GreaterOrEqual(t, m.Stats().Paths.Composed, 1)

		p := sum.NormalPaths()[0]
		ret := p.Value().(glee.Expr)
		assert.False(t, m.Satisfiable(t, append(append([]glee.Expr(nil), p.Precondition...),
			glee.NewBinaryExpr(glee.NE, ret, glee.NewConstantExpr(1, 64)))...))
	})

	for _, strategy := range []cse.Strategy{cse.StrategyBU, cse.StrategyTD} {
		t.Run("Global/"+string(strategy), func(t *testing.T) {
			config := cse.DefaultConfig()
			config.Strategy = strategy

			m := NewManager(t, config)
			sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "callBump"))
			require.NoError(t, err)
			require.Len(t, sum.NormalPaths(), 1)
			assert.GreaterOrEqual(t, m.Stats().Paths.Composed, 1)

			p := sum.NormalPaths()[0]
			ret := p.Value().(glee.Expr)
			assert.False(t, m.Satisfiable(t, append(append([]glee.Expr(nil), p.Precondition...),
				glee.NewBinaryExpr(glee.NE, ret, glee.NewConstantExpr(7, 64)))...))

			require.Len(t, p.Effects, 1)
			assert.Equal(t, "counter", p.Effects[0].Target())
			if strategy == cse.StrategyTD {
				writes := p.Effects[0].Writes
				require.Len(t, writes, 2)
				assert.Equal(t, glee.NewConstantExpr(1, 64), writes[0].Value)
				assert.Equal(t, glee.NewConstantExpr(7, 64), writes[1].Value)
			}
		})
	}

	// A callee that stores its pointer argument is stepped into: the stored
	// address must name the caller's object.
	for _, compose := range []bool{false, true} {
		t.Run(fmt.Sprintf("EscapingPointer/compose=%v", compose), func(t *testing.T) {
			config := cse.DefaultConfig()
			config.Compose = compose

			m := NewManager(t, config)
			sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "callStorePtr"))
			require.NoError(t, err)
			require.Len(t, sum.NormalPaths(), 1)

			p := sum.NormalPaths()[0]
			ret := p.Value().(glee.Expr)
			assert.False(t, m.Satisfiable(t, append(append([]glee.Expr(nil), p.Precondition...),
				glee.NewBinaryExpr(glee.NE, ret, glee.NewConstantExpr(5, 64)))...))

			if compose {
				// keep() is still answered from its summary.
				assert.Equal(t, 1, m.Stats().Paths.Composed)
				_, ok := m.Lookup(MustFindFunction(t, m.Program(), "storePtr"))
				assert.True(t, ok)
			}
		})
	}

	t.Run("Disabled", func(t *testing.T) {
		config := cse.DefaultConfig()
		config.Compose = false

		m := NewManager(t, config)
		sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "callClamp"))
		require.NoError(t, err)
		assert.Len(t, sum.NormalPaths(), 3)
		assert.Equal(t, 1, m.Stats().Runs)
		assert.Equal(t, 0, m.Stats().Paths.Composed)
	})
}

func TestExecutor_CrossPackageGlobal(t *testing.T) {
	for _, tt := range []struct {
		strategy cse.Strategy
		compose  bool
	}{
		{cse.StrategyBU, false},
		{cse.StrategyBU, true},
		{cse.StrategyTD, false},
		{cse.StrategyTD, true},
	} {
		t.Run(fmt.Sprintf("%s/compose=%v", tt.strategy, tt.compose), func(t *testing.T) {
			config := cse.DefaultConfig()
			config.Strategy = tt.strategy
			config.Compose = tt.compose

			t.Run("Write", func(t *testing.T) {
				m := NewManager(t, config)
				sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "callOther"))
				require.NoError(t, err)

				require.Len(t, sum.Globals(), 1)
				assert.Equal(t, "G", sum.Globals()[0].Global.Name())
				require.Len(t, sum.NormalPaths(), 1)

				effects := sum.NormalPaths()[0].Effects
				require.Len(t, effects, 1)
				assert.Equal(t, "G", effects[0].Target())

				var value glee.Expr
				if effects[0].IsWriteLog() {
					require.Len(t, effects[0].Writes, 1)
					value = effects[0].Writes[0].Value
				} else {
					value = effects[0].Contents.Select(glee.NewConstantExpr64(0), 64, true)
				}
				assert.False(t, m.Satisfiable(t, glee.NewBinaryExpr(glee.NE, value, glee.NewConstantExpr(3, 64))))

				if tt.compose {
					pkg := m.Program().ImportedPackage("github.com/glee-cse/glee/cse/testdata/summarize/other")
					require.NotNil(t, pkg)
					_, ok := m.Lookup(pkg.Func("Set"))
					assert.True(t, ok)
				}
			})

			t.Run("Read", func(t *testing.T) {
				m := NewManager(t, config)
				sum, err := m.Summary(context.Background(), MustFindFunction(t, m.Program(), "readOther"))
				require.NoError(t, err)

				require.Len(t, sum.Globals(), 1)
				require.Len(t, sum.NormalPaths(), 1)
				assert.Empty(t, sum.NormalPaths()[0].Effects)

				arg, _ := sum.Arg(0)
				x := arg.Array.Select(glee.NewConstantExpr64(0), 64, true)
				g := sum.Globals()[0].Array.Select(glee.NewConstantExpr64(0), 64, true)
				ret := sum.NormalPaths()[0].Value().(glee.Expr)
				assert.False(t, m.Satisfiable(t, glee.NewBinaryExpr(glee.NE, ret, glee.NewBinaryExpr(glee.ADD, g, x))))
			})
		})
	}
}
