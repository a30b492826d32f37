package exec

import (
	"github.com/glee-cse/glee"
)

type T struct {
	A    int8
	B, C int
	D    int32
}

func structField() int {
	var t T
	t.A = 5
	t.B = glee.Int()
	t.C = 7
	t.D = 8

	if int(t.A)+t.B == t.C {
		return t.B
	}
	return 0
}

func structValue() bool {
	var t T
	t.B = glee.Int()
	u := t
	return u.B == 3
}
