package summary_test

import (
	"bytes"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const src = `package p

var counter int

func clamp(x int) int {
	if x < 0 {
		return 0
	}
	return x
}

func touch(p *int) {
	*p = 1
	counter++
}
`

func TestSummary(t *testing.T) {
	pkg := MustBuildPackage(t, src)
	fn := pkg.Func("clamp")

	s := summary.New(fn)
	assert.Same(t, fn, s.Function())
	assert.Equal(t, summary.Fingerprint(fn), s.Fingerprint())
	assert.True(t, glee.IsConstantFalse(s.Context()))
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Stale(fn))
	assert.True(t, s.Stale(pkg.Func("touch")))

	x := glee.NewSymbolicArray("arg_clamp_0", 8).Select(glee.NewConstantExpr64(0), 64, true)
	neg := glee.NewBinaryExpr(glee.SLT, x, glee.NewConstantExpr64(0))
	pos := glee.NewBinaryExpr(glee.SLE, glee.NewConstantExpr64(0), x)

	s.AddNormalPath(&summary.NormalPath{Precondition: []glee.Expr{neg}, Return: glee.NewConstantExpr64(0)})
	assert.Equal(t, neg, s.Context())

	s.AddNormalPath(&summary.NormalPath{Precondition: []glee.Expr{pos}, Return: x})
	assert.Equal(t, glee.NewBinaryExpr(glee.OR, neg, pos), s.Context())
	assert.Equal(t, 2, s.Len())
	assert.Len(t, s.NormalPaths(), 2)
	assert.Empty(t, s.ErrorPaths())

	s.Freeze()
	assert.True(t, s.Frozen())
	assert.Panics(t, func() {
		s.AddErrorPath(&summary.ErrorPath{Reason: glee.ReasonAbort})
	})
}

func TestSummary_Context(t *testing.T) {
	s := summary.New(MustBuildPackage(t, src).Func("clamp"))

	// A path without constraints covers the entire domain.
	s.AddErrorPath(&summary.ErrorPath{Reason: glee.ReasonExit})
	assert.True(t, glee.IsConstantTrue(s.Context()))
}

func TestSummary_Arg(t *testing.T) {
	fn := MustBuildPackage(t, src).Func("touch")
	s := summary.New(fn)

	s.AddArg(summary.FormalArg{Index: 0, Param: fn.Params[0], Array: glee.NewSymbolicArray("arg_touch_0", 8), Pointee: glee.NewSymbolicArray("p_pointee", 8)})
	s.SetDomain([]glee.Expr{glee.NewBoolConstantExpr(true)})

	arg, ok := s.Arg(0)
	require.True(t, ok)
	assert.True(t, arg.IsPointer())
	_, ok = s.Arg(1)
	assert.False(t, ok)
	assert.Len(t, s.Domain(), 1)
}

func TestSummary_Copies(t *testing.T) {
	fn := MustBuildPackage(t, src).Func("touch")
	s := summary.New(fn)
	s.AddArg(summary.FormalArg{Index: 0, Param: fn.Params[0], Array: glee.NewSymbolicArray("arg_touch_0", 8)})
	s.AddNormalPath(&summary.NormalPath{Void: true})
	s.AddErrorPath(&summary.ErrorPath{Reason: glee.ReasonAbort})
	s.SetDomain([]glee.Expr{glee.NewBoolConstantExpr(true)})
	s.Freeze()

	normal, errs := s.NormalPaths(), s.ErrorPaths()
	normal[0], errs[0] = nil, nil
	args, domain := s.Args(), s.Domain()
	args[0].Index, domain[0] = 7, nil

	require.Len(t, s.NormalPaths(), 1)
	assert.NotNil(t, s.NormalPaths()[0])
	assert.NotNil(t, s.ErrorPaths()[0])
	arg, ok := s.Arg(0)
	require.True(t, ok)
	assert.Equal(t, 0, arg.Index)
	assert.NotNil(t, s.Domain()[0])
}

func TestNormalPath_Value(t *testing.T) {
	p := &summary.NormalPath{Return: glee.NewConstantExpr(1, 8)}
	assert.Equal(t, glee.NewConstantExpr(1, 8), p.Value())

	void := &summary.NormalPath{Void: true}
	assert.Panics(t, func() { void.Value() })
}

func TestEffect_Target(t *testing.T) {
	pkg := MustBuildPackage(t, src)
	g := pkg.Var("counter")

	assert.Equal(t, "counter", summary.Effect{Global: g, Arg: -1}.Target())
	assert.Equal(t, "*arg2", summary.Effect{Arg: 2}.Target())
	assert.True(t, summary.Effect{Arg: 0}.IsWriteLog())
	assert.False(t, summary.Effect{Arg: 0, Contents: glee.NewZeroArray(1)}.IsWriteLog())
}

func TestReport(t *testing.T) {
	pkg := MustBuildPackage(t, src)
	fn := pkg.Func("touch")

	pointee := glee.NewSymbolicArray("p_pointee", 8)
	s := summary.New(fn)
	s.AddArg(summary.FormalArg{Index: 0, Param: fn.Params[0], Array: glee.NewSymbolicArray("arg_touch_0", 8), Pointee: pointee})
	s.AddGlobal(summary.FormalGlobal{Global: pkg.Var("counter"), Array: glee.NewSymbolicArray("global_counter", 8)})
	s.AddNormalPath(&summary.NormalPath{
		Void: true,
		Effects: []summary.Effect{
			{Arg: 0, Contents: pointee.Store(glee.NewConstantExpr64(0), glee.NewConstantExpr64(1), true)},
			{Global: pkg.Var("counter"), Arg: -1, Writes: []summary.Write{{Offset: glee.NewConstantExpr64(0), Value: glee.NewConstantExpr64(1)}}},
		},
	})
	s.AddErrorPath(&summary.ErrorPath{Reason: glee.ReasonPtr, Message: "invalid memory address or nil pointer dereference"})
	s.Freeze()

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, summary.NewReport(s).WriteYAML(&buf))

		out := buf.String()
		assert.Contains(t, out, "function: p.touch")
		assert.Contains(t, out, "reason: ptr")
		assert.Contains(t, out, "*arg0")
		assert.Contains(t, out, "target: counter")
		assert.Contains(t, out, "normal_paths:")
	})

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, summary.WriteTable(&buf, s))

		out := buf.String()
		assert.Contains(t, out, "normal")
		assert.Contains(t, out, "ptr")
		assert.Contains(t, out, "*arg0, counter")
	})
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
