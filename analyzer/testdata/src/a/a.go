package a

import (
	"bufio"
	"fmt"
	"os"
)

func readCount() int {
	var n int // want `input-influenced variable n in readCount`
	fmt.Scan(&n)
	return n
}

func openInput(name string) *os.File {
	f, err := os.Open(name) // want `input-influenced variable f in openInput`
	if err != nil {
		return nil
	}
	return f
}

func firstLine(f *os.File) string {
	reader := bufio.NewReader(f) // want `input-influenced variable reader in firstLine`
	line, _ := reader.ReadString('\n')
	return line
}

func double(x int) int {
	y := x * 2
	return y
}
