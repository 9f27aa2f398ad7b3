package b

import "fmt"

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func greet(name string) {
	fmt.Println("hello", name)
}
