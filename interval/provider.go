package interval

import (
	"go/constant"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Provider reports the range of values a function argument may take.
// Implementations return Top when nothing is known.
type Provider interface {
	ArgRange(fn *ssa.Function, i int) Interval
}

// Static is a provider backed by an explicit table of argument ranges.
type Static map[*ssa.Function][]Interval

// ArgRange returns the table entry for the i-th argument of fn, or Top.
func (p Static) ArgRange(fn *ssa.Function, i int) Interval {
	if ranges := p[fn]; i >= 0 && i < len(ranges) && !ranges[i].IsBot() {
		return ranges[i]
	}
	return Top()
}

// Number of rounds over the call graph before widening kicks in, and the
// round limit after which every unresolved range falls back to Top.
const (
	widenAfter = 3
	maxRounds  = 32
)

// CallSites is a provider that joins the values passed at every static call
// site of a function. Only functions that cannot be reached from outside the
// program's call graph are narrowed: unexported functions that are never
// used as a value. Everything else reports Top.
type CallSites struct {
	ranges map[*ssa.Function][]Interval
}

// NewCallSites analyzes every function in prog.
func NewCallSites(prog *ssa.Program) *CallSites {
	a := &analysis{
		ranges:  make(map[*ssa.Function][]Interval),
		sites:   make(map[*ssa.Function][]site),
		escaped: make(map[*ssa.Function]bool),
	}

	fns := make([]*ssa.Function, 0)
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Blocks != nil {
			fns = append(fns, fn)
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })

	for _, fn := range fns {
		a.scan(fn)
	}
	for _, fn := range fns {
		if a.tracked(fn) {
			a.ranges[fn] = fill(len(fn.Params), Bot())
		}
	}
	a.solve(fns)

	return &CallSites{ranges: a.ranges}
}

// ArgRange returns the joined range of the i-th argument of fn. Functions
// that are never called report Top.
func (p *CallSites) ArgRange(fn *ssa.Function, i int) Interval {
	ranges := p.ranges[fn]
	if i < 0 || i >= len(ranges) || ranges[i].IsBot() {
		return Top()
	}
	return ranges[i]
}

// site is a static call from caller.
type site struct {
	caller *ssa.Function
	args   []ssa.Value
}

type analysis struct {
	ranges  map[*ssa.Function][]Interval
	sites   map[*ssa.Function][]site
	escaped map[*ssa.Function]bool
}

// scan records the static call sites in fn and any function used as a value.
func (a *analysis) scan(fn *ssa.Function) {
	var operands []*ssa.Value
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			var common *ssa.CallCommon
			if call, ok := instr.(ssa.CallInstruction); ok {
				common = call.Common()
				if callee := common.StaticCallee(); callee != nil && !common.IsInvoke() {
					a.sites[callee] = append(a.sites[callee], site{caller: fn, args: common.Args})
				}
			}

			operands = instr.Operands(operands[:0])
			for _, op := range operands {
				if op == nil || *op == nil {
					continue
				} else if common != nil && op == &common.Value {
					continue
				}
				if other, ok := (*op).(*ssa.Function); ok {
					a.escaped[other] = true
				}
			}
		}
	}
}

// tracked returns true if every caller of fn is visible as a static call site.
func (a *analysis) tracked(fn *ssa.Function) bool {
	switch {
	case fn.Object() == nil, fn.Parent() != nil, fn.Signature.Recv() != nil:
		return false
	case fn.Object().Exported(), fn.Name() == "main", fn.Name() == "init":
		return false
	default:
		return !a.escaped[fn]
	}
}

func (a *analysis) solve(fns []*ssa.Function) {
	for round := 0; round < maxRounds; round++ {
		var changed bool
		for _, fn := range fns {
			prev, ok := a.ranges[fn]
			if !ok {
				continue
			}

			next := fill(len(prev), Bot())
			for _, s := range a.sites[fn] {
				for i, arg := range s.args {
					if i < len(next) {
						next[i] = next[i].Join(a.eval(s.caller, arg))
					}
				}
			}

			for i := range next {
				if round >= widenAfter {
					next[i] = prev[i].Widen(next[i])
				}
				if !next[i].Equal(prev[i]) {
					changed = true
				}
			}
			a.ranges[fn] = next
		}

		if !changed {
			return
		}
	}

	for fn, ranges := range a.ranges {
		a.ranges[fn] = fill(len(ranges), Top())
	}
}

// eval returns the range of v as seen from inside fn.
func (a *analysis) eval(fn *ssa.Function, v ssa.Value) Interval {
	bounds, ok := integerBounds(v.Type())
	if !ok {
		return Top()
	}

	var result Interval
	switch v := v.(type) {
	case *ssa.Const:
		if v.Value == nil || v.Value.Kind() != constant.Int {
			return Top()
		}
		n, exact := constant.Int64Val(v.Value)
		if !exact {
			return Top()
		}
		result = Const(n)

	case *ssa.Parameter:
		ranges, ok := a.ranges[fn]
		if !ok {
			return Top()
		}
		for i, p := range fn.Params {
			if p == v {
				return ranges[i]
			}
		}
		return Top()

	case *ssa.BinOp:
		x, y := a.eval(fn, v.X), a.eval(fn, v.Y)
		switch v.Op {
		case token.ADD:
			result = x.Add(y)
		case token.SUB:
			result = x.Sub(y)
		case token.MUL:
			result = x.Mul(y)
		case token.QUO:
			result = x.Div(y)
		default:
			return Top()
		}

	default:
		return Top()
	}

	// Results that may wrap around are unknown.
	if !result.Leq(bounds) {
		return Top()
	}
	return result
}

// integerBounds returns the range representable by an integer type.
func integerBounds(typ types.Type) (Interval, bool) {
	basic, ok := typ.Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsInteger == 0 {
		return Interval{}, false
	}

	switch basic.Kind() {
	case types.Int8:
		return New(-1<<7, 1<<7-1), true
	case types.Int16:
		return New(-1<<15, 1<<15-1), true
	case types.Int32:
		return New(-1<<31, 1<<31-1), true
	case types.Uint8:
		return New(0, 1<<8-1), true
	case types.Uint16:
		return New(0, 1<<16-1), true
	case types.Uint32:
		return New(0, 1<<32-1), true
	case types.Uint, types.Uint64, types.Uintptr:
		return New(0, MAX), true
	default:
		return Top(), true
	}
}

func fill(n int, v Interval) []Interval {
	a := make([]Interval, n)
	for i := range a {
		a[i] = v
	}
	return a
}
