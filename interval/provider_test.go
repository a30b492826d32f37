package interval_test

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/glee-cse/glee/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const callSitesSource = `package p

func Entry() int {
	return helper(3) + helper(10) + loop(0) + narrow(100)
}

func Exported(z int) int { return z }

func helper(x int) int { return x * 2 }

func chain(y int) int { return helper(y + 1) }

func loop(n int) int {
	if n > 100 {
		return n
	}
	return loop(n + 1)
}

func narrow(v int8) int { return wrap(v + 100) }

func wrap(v int8) int { return int(v) }

func escaped(w int) int { return w }

var F = escaped

func pair(a, b int) int { return a - b }

func Pairs(k int) int { return pair(k, 1) + pair(2, 3*4) }
`

func TestCallSites(t *testing.T) {
	pkg := MustBuildPackage(t, callSitesSource)
	p := interval.NewCallSites(pkg.Prog)

	t.Run("Joined", func(t *testing.T) {
		assert.Equal(t, interval.New(3, 10), p.ArgRange(pkg.Func("helper"), 0))
	})
	t.Run("Exported", func(t *testing.T) {
		assert.True(t, p.ArgRange(pkg.Func("Exported"), 0).IsTop())
	})
	t.Run("NoCallers", func(t *testing.T) {
		assert.True(t, p.ArgRange(pkg.Func("chain"), 0).IsTop())
	})
	t.Run("Widened", func(t *testing.T) {
		assert.Equal(t, interval.New(0, interval.MAX), p.ArgRange(pkg.Func("loop"), 0))
	})
	t.Run("Overflow", func(t *testing.T) {
		assert.True(t, p.ArgRange(pkg.Func("wrap"), 0).IsTop())
	})
	t.Run("Escaped", func(t *testing.T) {
		assert.True(t, p.ArgRange(pkg.Func("escaped"), 0).IsTop())
	})
	t.Run("CallerParam", func(t *testing.T) {
		assert.True(t, p.ArgRange(pkg.Func("pair"), 0).IsTop())
		assert.Equal(t, interval.New(1, 12), p.ArgRange(pkg.Func("pair"), 1))
	})
	t.Run("OutOfRange", func(t *testing.T) {
		assert.True(t, p.ArgRange(pkg.Func("helper"), 5).IsTop())
	})
}

func TestStatic(t *testing.T) {
	pkg := MustBuildPackage(t, callSitesSource)
	fn := pkg.Func("helper")

	p := interval.Static{fn: {interval.New(0, 7), interval.Bot()}}
	assert.Equal(t, interval.New(0, 7), p.ArgRange(fn, 0))
	assert.True(t, p.ArgRange(fn, 1).IsTop())
	assert.True(t, p.ArgRange(pkg.Func("loop"), 0).IsTop())
}

// MustBuildPackage type checks and builds a single-file package without imports.
func MustBuildPackage(tb testing.TB, source string) *ssa.Package {
	tb.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", source, parser.ParseComments)
	require.NoError(tb, err)

	pkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, types.NewPackage("p", ""), []*ast.File{f}, ssa.SanityCheckFunctions)
	require.NoError(tb, err)
	return pkg
}
