package main

import (
	"bufio"
	"fmt"
	"os"
)

func readCount() int {
	var n int
	fmt.Scan(&n)
	return n
}

func openInput(name string) *os.File {
	f, err := os.Open(name)
	if err != nil {
		return nil
	}
	return f
}

func countLines(f *os.File) int {
	reader := bufio.NewReader(f)
	lines := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		_ = line
		lines++
	}
	return lines
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

type counter struct {
	n int
}

func (c *counter) read() {
	var delta int
	fmt.Sscan("1", &delta)
	c.n += delta
}

func main() {
	c := &counter{}
	c.read()

	f := openInput(os.Args[1])
	fmt.Println(readCount(), countLines(f), sum([]int{1, 2, 3}), c.n)
}
