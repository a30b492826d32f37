package other

var G int

func Set(x int) {
	G = x
}

func Get() int {
	return G
}
