package exec

import (
	"github.com/glee-cse/glee"
)

func caller() int32 {
	x := glee.Int8()
	y := glee.Int16()
	z := callee(x, y)
	if z == 0xAABB {
		return 1
	}
	return 0
}

func callee(a int8, b int16) int32 {
	x := int32(a) * int32(b)
	if x > 10 {
		return x + 1
	}
	return x - 1
}

func divmod(a, b int) (int, int) {
	return a / 3, b % 5
}

func tuple() int {
	q, r := divmod(glee.Int(), glee.Int())
	return q + r
}

func fib(n int) int {
	if n < 2 {
		return n
	}
	return fib(n-1) + fib(n-2)
}

func recurse() int {
	return fib(glee.Int())
}
