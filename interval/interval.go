// Package interval provides integer ranges for function arguments. The
// context-sensitive summarization strategy narrows the initial domain of a
// function with the ranges reported by a Provider.
package interval

import (
	"fmt"
	"math"
	"strconv"
)

// Bounds of the domain. Values beyond them are clamped so that sums and
// differences of two bounds never overflow.
const (
	MIN = math.MinInt64 >> 1
	MAX = math.MaxInt64 >> 1
)

// Interval is a closed range of signed integers. An interval whose lower
// bound exceeds its upper bound is the empty interval (Bot). The zero value
// is the single value zero.
type Interval struct {
	lo, hi int64
}

// New returns the interval [lo, hi] clamped to [MIN, MAX].
func New(lo, hi int64) Interval {
	return Interval{lo: clamp(lo), hi: clamp(hi)}
}

// Bot returns the empty interval.
func Bot() Interval { return Interval{lo: 1, hi: 0} }

// Top returns the interval holding every value.
func Top() Interval { return Interval{lo: MIN, hi: MAX} }

// Const returns the interval holding only v.
func Const(v int64) Interval { return New(v, v) }

// Lower returns the lower bound.
func (a Interval) Lower() int64 { return a.lo }

// Upper returns the upper bound.
func (a Interval) Upper() int64 { return a.hi }

// IsBot returns true if the interval is empty.
func (a Interval) IsBot() bool { return a.lo > a.hi }

// IsTop returns true if the interval is unbounded on both sides.
func (a Interval) IsTop() bool { return a.lo == MIN && a.hi == MAX }

// Equal returns true if a and b hold the same values.
func (a Interval) Equal(b Interval) bool {
	return (a.IsBot() && b.IsBot()) || (a.lo == b.lo && a.hi == b.hi)
}

// Leq returns true if a is contained in b.
func (a Interval) Leq(b Interval) bool {
	return a.IsBot() || b.IsTop() || (a.lo >= b.lo && a.hi <= b.hi)
}

// Add returns the interval of sums.
func (a Interval) Add(b Interval) Interval {
	if a.IsBot() || b.IsBot() {
		return Bot()
	} else if a.IsTop() || b.IsTop() {
		return Top()
	}
	return New(a.lo+b.lo, a.hi+b.hi)
}

// Sub returns the interval of differences.
func (a Interval) Sub(b Interval) Interval {
	if a.IsBot() || b.IsBot() {
		return Bot()
	} else if a.IsTop() || b.IsTop() {
		return Top()
	}
	return New(a.lo-b.hi, a.hi-b.lo)
}

// Mul returns the interval of products.
func (a Interval) Mul(b Interval) Interval {
	if a.IsBot() || b.IsBot() {
		return Bot()
	} else if a.IsTop() || b.IsTop() {
		return Top()
	}
	return span(mul(a.lo, b.lo), mul(a.lo, b.hi), mul(a.hi, b.lo), mul(a.hi, b.hi))
}

// Div returns the interval of truncated quotients. Divisors that may be
// zero produce Top.
func (a Interval) Div(b Interval) Interval {
	if a.IsBot() || b.IsBot() {
		return Bot()
	} else if a.IsTop() || b.IsTop() {
		return Top()
	} else if b.lo <= 0 && b.hi >= 0 {
		return Top()
	}

	x, y := 1.0/float64(b.hi), 1.0/float64(b.lo)
	return span(
		int64(float64(a.lo)*x),
		int64(float64(a.lo)*y),
		int64(float64(a.hi)*x),
		int64(float64(a.hi)*y),
	)
}

// Meet returns the intersection of a and b.
func (a Interval) Meet(b Interval) Interval {
	if a.IsBot() || b.IsBot() {
		return Bot()
	} else if a.IsTop() {
		return b
	} else if b.IsTop() {
		return a
	}
	return New(max64(a.lo, b.lo), min64(a.hi, b.hi))
}

// Join returns the smallest interval containing a and b.
func (a Interval) Join(b Interval) Interval {
	if a.IsBot() {
		return b
	} else if b.IsBot() {
		return a
	} else if a.IsTop() || b.IsTop() {
		return Top()
	}
	return New(min64(a.lo, b.lo), max64(a.hi, b.hi))
}

// Widen extrapolates a towards b: a bound that moved is pushed to infinity.
func (a Interval) Widen(b Interval) Interval {
	if a.IsBot() {
		return b
	} else if b.IsBot() {
		return a
	}

	lo, hi := a.lo, a.hi
	if a.lo > b.lo {
		lo = MIN
	}
	if a.hi < b.hi {
		hi = MAX
	}
	return New(lo, hi)
}

// String returns the interval in the form [lo,hi]. Infinite bounds print as
// -oo and +oo and the empty interval prints as _|_.
func (a Interval) String() string {
	if a.IsBot() {
		return "_|_"
	}

	lo, hi := "-oo", "+oo"
	if a.lo != MIN {
		lo = strconv.FormatInt(a.lo, 10)
	}
	if a.hi != MAX {
		hi = strconv.FormatInt(a.hi, 10)
	}
	return fmt.Sprintf("[%s,%s]", lo, hi)
}

// span returns the smallest interval holding every value.
func span(values ...int64) Interval {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = min64(lo, v), max64(hi, v)
	}
	return New(lo, hi)
}

// mul returns the product of x and y, saturated on overflow.
func mul(x, y int64) int64 {
	if x == 0 || y == 0 {
		return 0
	}
	if p := x * y; p/y == x && !(x == -1 && y == math.MinInt64) && !(y == -1 && x == math.MinInt64) {
		return p
	}
	if (x < 0) != (y < 0) {
		return math.MinInt64
	}
	return math.MaxInt64
}

func clamp(v int64) int64 {
	if v < MIN {
		return MIN
	} else if v > MAX {
		return MAX
	}
	return v
}

func min64(x, y int64) int64 {
	if x < y {
		return x
	}
	return y
}

func max64(x, y int64) int64 {
	if x > y {
		return x
	}
	return y
}
