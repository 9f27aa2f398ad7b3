package seminal

import (
	"github.com/picatz/seminal/ir"
)

// Resolve finds the declaration that binds storage to a source variable in
// fn. It scans every instruction of fn in block order and returns the first
// declaration whose address is storage. Nothing is cached, so repeated calls
// on an unchanged function return the same record.
//
// Resolve returns false when fn is nil, storage is not a value of fn, or no
// declaration binds it.
func Resolve(fn *ir.Function, storage ir.ValueID) (VariableRecord, bool) {
	if fn == nil || !fn.Valid(storage) {
		return VariableRecord{}, false
	}

	var (
		record VariableRecord
		found  bool
	)
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		if v.Kind != ir.KindDeclare || v.Addr() != storage || v.Var == "" {
			return true
		}
		record = VariableRecord{Name: v.Var, Line: v.Line}
		if record.Line <= 0 {
			record.Line = NoLine
		}
		found = true
		return false
	})

	return record, found
}

// resolve is Resolve with diagnostics for invalid arguments.
func (d *Detector) resolve(fn *ir.Function, storage ir.ValueID) (VariableRecord, bool) {
	switch {
	case fn == nil:
		d.log().Error("resolve: nil function")
		return VariableRecord{}, false
	case !fn.Valid(storage):
		d.log().Error("resolve: %s: invalid value %d", fn.Name, storage)
		return VariableRecord{}, false
	}
	return Resolve(fn, storage)
}

// resolveStorage resolves an argument that refers to a variable either
// directly, by its address, or by a load of the variable's address.
func (d *Detector) resolveStorage(fn *ir.Function, arg ir.ValueID) (VariableRecord, bool) {
	if r, ok := d.resolve(fn, arg); ok {
		return r, true
	}
	if v := fn.Value(arg); v != nil && v.Kind == ir.KindLoad {
		return Resolve(fn, v.Addr())
	}
	return VariableRecord{}, false
}
