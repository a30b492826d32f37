package exec

import (
	"github.com/glee-cse/glee"
)

func stringConcat() bool {
	a := glee.String(2)
	return a+"!" == "hi!"
}

func stringLookup() byte {
	a := glee.String(3)
	return a[glee.Int()]
}

func stringLess() bool {
	a := glee.String(3)
	b := glee.String(3)
	glee.Assert(a[0] == b[0])
	glee.Assert(a[1] < b[1])
	return a < b
}

func stringShortLess() bool {
	a := glee.String(2)
	b := glee.String(3)
	glee.Assert(a[0] == b[0])
	glee.Assert(a[1] == b[1])
	return a >= b
}

func stringSliceOutOfRange() string {
	a := "abc"
	i := 5
	return a[1:i]
}
