package exec

import (
	"os"

	"github.com/glee-cse/glee"
)

func divide() int {
	return 100 / glee.Int()
}

func abort() int {
	x := glee.Int()
	if x == 42 {
		panic("boom")
	}
	return x
}

func check() {
	x := glee.Uint8()
	glee.Check(x < 200)
}

func report() {
	if glee.Int() < 0 {
		glee.Report("negative input")
	}
}

func exit() {
	if glee.Int() == 1 {
		os.Exit(1)
	}
}

func nilDeref() int {
	var p *int
	if glee.Int() > 0 {
		p = new(int)
	}
	return *p
}

func mapAccess() int {
	m := map[int]int{}
	return m[glee.Int()]
}

func loop() int {
	n := glee.Int()
	sum := 0
	for i := 0; i < n; i++ {
		sum += i
	}
	return sum
}
