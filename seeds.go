package seminal

import (
	"github.com/picatz/seminal/ir"
)

// traverse walks the definitions of v, recording every variable read by a
// load along the way into catalog. visited may be shared between calls to
// skip values already walked from an earlier seed.
func (d *Detector) traverse(fn *ir.Function, v ir.ValueID, visited valueSet, catalog Catalog) {
	switch {
	case fn == nil:
		d.log().Error("traverse: nil function")
		return
	case visited == nil:
		d.log().Error("traverse: %s: nil visited set", fn.Name)
		return
	case catalog == nil:
		d.log().Error("traverse: %s: nil catalog", fn.Name)
		return
	case !fn.Valid(v):
		d.log().Error("traverse: %s: invalid value %d", fn.Name, v)
		return
	}

	_ = walkIR(fn, v, func(val *ir.Value) error {
		if val.Kind != ir.KindLoad {
			return nil
		}
		if r, ok := Resolve(fn, val.Addr()); ok {
			d.log().Trace("%s: %s reads %s (line %d)", fn.Name, fn.Ref(val.ID), r.Name, r.Line)
			catalog.Record(r)
		}
		return nil
	}, visited)
}

// seedLoops traverses the operands of the condition of every conditional
// branch in a loop header.
func (d *Detector) seedLoops(fn *ir.Function, visited valueSet, catalog Catalog) {
	for _, l := range ir.Loops(fn) {
		header := fn.Block(l.Header)
		for _, id := range header.Instrs {
			br := fn.Value(id)
			if !br.IsConditional() {
				continue
			}
			cond := fn.Value(br.Cond())
			if !cond.IsInstruction() {
				continue
			}
			d.log().Trace("%s: loop %s exits on %s", fn.Name, header.Name, fn.Ref(cond.ID))
			for _, opr := range cond.Operands {
				d.traverse(fn, opr, visited, catalog)
			}
		}
	}
}

// seedVariables records every declared allocation and traverses both sides
// of every store, in block then instruction order.
func (d *Detector) seedVariables(fn *ir.Function, visited valueSet, catalog Catalog) {
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		switch v.Kind {
		case ir.KindAlloc:
			if r, ok := Resolve(fn, v.ID); ok {
				catalog.Record(r)
			}
		case ir.KindStore:
			d.traverse(fn, v.Stored(), visited, catalog)
			d.traverse(fn, v.Addr(), visited, catalog)
		}
		return true
	})
}
