package seminal

import (
	"fmt"

	"github.com/picatz/seminal/ir"
)

var ErrStopWalk = fmt.Errorf("seminal: stop walk")

// WalkIR walks the definitions of v backwards through fn with a visitor
// function that can be used to inspect each value reached. Each value is
// visited at most once, so the walk terminates on cyclic value graphs. The
// visitor function should return an error if it wants to stop the walk;
// ErrStopWalk stops it without reporting an error.
//
// From a load the walk continues to the loaded address; from a store to the
// stored value, then the address; from a call to its arguments in order; and
// from any other instruction to its operands in order. Constants, parameters
// and globals end the walk.
func WalkIR(fn *ir.Function, v ir.ValueID, visit func(v *ir.Value) error) error {
	err := walkIR(fn, v, visit, make(valueSet))
	if err == ErrStopWalk {
		return nil
	}
	return err
}

func walkIR(fn *ir.Function, id ir.ValueID, visit func(v *ir.Value) error, visited valueSet) error {
	v := fn.Value(id)
	if v == nil {
		return nil
	}

	if visited == nil {
		visited = make(valueSet)
	}

	if visited.includes(id) {
		return nil
	}

	visited.add(id)

	if err := visit(v); err != nil {
		return err
	}

	if !v.IsInstruction() {
		return nil
	}

	switch v.Kind {
	case ir.KindLoad:
		return walkIR(fn, v.Addr(), visit, visited)
	case ir.KindStore:
		if err := walkIR(fn, v.Stored(), visit, visited); err != nil {
			return err
		}
		return walkIR(fn, v.Addr(), visit, visited)
	case ir.KindCall:
		// The call's own result is v itself, already visited above.
		for _, arg := range v.Args() {
			if err := walkIR(fn, arg, visit, visited); err != nil {
				return err
			}
		}
	default:
		for _, opr := range v.Operands {
			if err := walkIR(fn, opr, visit, visited); err != nil {
				return err
			}
		}
	}

	return nil
}
