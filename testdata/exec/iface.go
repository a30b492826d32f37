package exec

import (
	"github.com/glee-cse/glee"
)

type Adder int

func (t Adder) Add(i int) int { return int(t) + i }
func (t Adder) Sub(i int) int { return int(t) - i }

type AddSubber interface {
	Add(i int) int
	Sub(i int) int
}

type Addable interface {
	Add(i int) int
}

func changeInterface() int {
	x := glee.Int()
	var u AddSubber = Adder(x)
	var v Addable = u

	if v.Add(10) == 100 {
		return 1
	}
	return 0
}

type X1 int

func (x X1) Val() int { return int(x) + 10 }

type Y1 int

func (y Y1) Val() int { return int(y) + 20 }

type Valuer interface {
	Val() int
}

func sliceInterface() bool {
	x, y := glee.Int(), glee.Int()
	a := make([]Valuer, 2)
	a[0] = X1(x)
	a[1] = Y1(y)
	return a[0].Val() == a[1].Val()
}

func funcValue() int {
	f := double
	return f(glee.Int())
}

func double(i int) int { return i * 2 }
