package summarize

import (
	"os"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/cse/testdata/summarize/other"
)

var counter int

var limit = 100

var gp *int

func clamp(x int) int {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

func setOne(p *int) {
	*p = 1
}

func exitOnNegative(x int) int {
	if x < 0 {
		os.Exit(1)
	}
	return x + 1
}

func loop(n int) int {
	var sum int
	for i := 0; i < n; i++ {
		sum += i
	}
	return sum
}

func bump(x int) {
	counter = 1
	counter = x
}

func belowLimit(x int) bool {
	return x < limit
}

func scale(x int) int {
	if x > 10 {
		return 1
	}
	return 0
}

func checked(x int) int {
	glee.Check(x != 1)
	glee.Check(x != 2)
	return x
}

func sliceLen(b []byte) int {
	return len(b)
}

func callClamp(y int) int {
	return clamp(y) + 1
}

func callSetOne() int {
	x := 5
	setOne(&x)
	return x
}

func callBump() int {
	bump(7)
	return counter
}

func keep(p *int) {}

func storePtr(p *int) {
	gp = p
}

func callStorePtr() int {
	y := 9
	keep(&y)
	x := 5
	storePtr(&x)
	return *gp
}

func callOther() {
	other.Set(3)
}

func readOther(x int) int {
	return other.Get() + x
}
