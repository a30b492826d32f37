package exec

import (
	"github.com/glee-cse/glee"
)

func sliceByteSlice() bool {
	a := glee.ByteSlice(4)
	b := a[1:3]
	s := string(b)
	return s == "XY"
}

func byteSliceIndexAddr() bool {
	a := glee.ByteSlice(4)
	b := make([]byte, 2, 3)
	b[0] = a[2]
	b[1] = a[1]
	return string(b) == "XY"
}

func byteSliceMake() bool {
	i, j := 2, 3
	b := make([]byte, i, j)
	b[0] = glee.Byte()
	b[1] = glee.Byte()
	return string(b) == "XY"
}

func arraySlice() bool {
	a := glee.ByteSlice(4)
	var b [4]byte
	n := copy(b[:], a)
	return n == 4 && string(b[1:3]) == "XY"
}

func indexOutOfRange() byte {
	a := glee.ByteSlice(4)
	i := glee.Int()
	return a[i]
}

func sliceLen() int {
	a := glee.ByteSlice(4)
	return len(a[1:]) + cap(a[:2])
}
