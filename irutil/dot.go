package irutil

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/picatz/seminal/ir"
)

// WriteDOT writes the control-flow graph of fn to w in the DOT format, which
// can be rendered with Graphviz. Each node lists the instructions of its
// block; loop headers are filled so loop-condition seeds are easy to spot.
func WriteDOT(w io.Writer, fn *ir.Function) error {
	if fn == nil {
		return fmt.Errorf("write dot: nil function")
	}

	headers := make(map[ir.BlockID]bool)
	for _, l := range ir.Loops(fn) {
		headers[l.Header] = true
	}

	b := bufio.NewWriter(w)

	fmt.Fprintf(b, "digraph %q {\n", fn.Name)
	b.WriteString("\tgraph [fontname=\"Helvetica\"];\n")
	b.WriteString("\tnode [fontname=\"Helvetica\", shape=box];\n")
	b.WriteString("\tedge [fontname=\"Helvetica\"];\n")

	for _, blk := range fn.Blocks {
		var label strings.Builder
		label.WriteString(blk.Name + ":\\l")
		for _, id := range blk.Instrs {
			label.WriteString(dotEscape(fn.Format(fn.Value(id))))
			label.WriteString("\\l")
		}

		attrs := ""
		if headers[blk.ID] {
			attrs = ", style=filled, fillcolor=\"#fde2e4\""
		}
		fmt.Fprintf(b, "\t\"b%d\" [label=\"%s\"%s];\n", blk.ID, label.String(), attrs)
	}

	for _, blk := range fn.Blocks {
		for i, s := range blk.Succs {
			edge := ""
			if len(blk.Succs) == 2 {
				edge = fmt.Sprintf(" [label=%q]", [...]string{"T", "F"}[i])
			}
			fmt.Fprintf(b, "\t\"b%d\" -> \"b%d\"%s;\n", blk.ID, s, edge)
		}
	}

	b.WriteString("}\n")

	return b.Flush()
}

func dotEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\t", " ", "\n", `\l`)
	return r.Replace(s)
}
