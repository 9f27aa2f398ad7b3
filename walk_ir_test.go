package seminal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picatz/seminal/ir"
)

// cyclicFunction builds a value graph where a phi-like operation and an
// increment refer to each other, and both feed a store back into the
// variable they were loaded from.
func cyclicFunction() (*ir.Function, ir.ValueID) {
	fn := ir.NewFunction("cycle")
	entry := fn.NewBlock("entry")
	x := entry.Alloc("x", 2)
	entry.Declare(x, "x", 2)
	lx := entry.Load(x)
	phi := entry.Op("phi", lx)
	inc := entry.Op("add", phi, fn.Const("1"))
	fn.Value(phi).Operands = append(fn.Value(phi).Operands, inc)
	st := entry.Store(inc, x)
	entry.Return()
	return fn, st
}

func TestWalkIRTerminatesOnCycles(t *testing.T) {
	fn, st := cyclicFunction()

	seen := map[ir.ValueID]int{}
	err := WalkIR(fn, st, func(v *ir.Value) error {
		seen[v.ID]++
		return nil
	})
	require.NoError(t, err)

	for id, n := range seen {
		assert.Equal(t, 1, n, "value %d visited more than once", id)
	}
	// store, add, phi, load, alloca, const
	assert.Len(t, seen, 6)
}

func TestWalkIROrder(t *testing.T) {
	fn := ir.NewFunction("order")
	entry := fn.NewBlock("entry")
	a := entry.Alloc("a", 1)
	b := entry.Alloc("b", 2)
	call := entry.Call("g", false, entry.Load(a), entry.Load(b))
	st := entry.Store(call, a)
	entry.Return()

	var kinds []string
	err := WalkIR(fn, st, func(v *ir.Value) error {
		kinds = append(kinds, v.Kind.String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "call", "load", "alloca", "load", "alloca"}, kinds)
}

func TestWalkIRStop(t *testing.T) {
	fn, st := cyclicFunction()

	n := 0
	err := WalkIR(fn, st, func(v *ir.Value) error {
		n++
		if v.Kind == ir.KindOther {
			return ErrStopWalk
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	boom := errors.New("boom")
	err = WalkIR(fn, st, func(v *ir.Value) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, WalkIR(fn, ir.NoValue, func(v *ir.Value) error { return boom }))
}

func TestTraverseRecordsLoadsOnly(t *testing.T) {
	fn, st := cyclicFunction()

	catalog := Catalog{}
	visited := make(valueSet)
	NewDetector().traverse(fn, st, visited, catalog)

	assert.Equal(t, Catalog{"x": {Name: "x", Line: 2}}, catalog)

	// A shared visited set skips values already walked.
	before := len(visited)
	NewDetector().traverse(fn, st, visited, catalog)
	assert.Equal(t, before, len(visited))
}

func TestResolve(t *testing.T) {
	fn := scanfFunction("f", "x")
	x := ir.ValueID(0)

	r1, ok1 := Resolve(fn, x)
	r2, ok2 := Resolve(fn, x)
	require.True(t, ok1)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, VariableRecord{Name: "x", Line: 3}, r1)

	_, ok := Resolve(fn, ir.ValueID(1)) // the declaration itself
	assert.False(t, ok)
	_, ok = Resolve(nil, x)
	assert.False(t, ok)
	_, ok = Resolve(fn, ir.NoValue)
	assert.False(t, ok)
}

func TestResolveWithoutLine(t *testing.T) {
	fn := ir.NewFunction("f")
	entry := fn.NewBlock("entry")
	x := entry.Alloc("x", 0)
	entry.Declare(x, "x", 0)
	entry.Declare(x, "shadow", 9)
	entry.Return()

	r, ok := Resolve(fn, x)
	require.True(t, ok)
	assert.Equal(t, VariableRecord{Name: "x", Line: NoLine}, r)
}

func TestCatalogOverwrite(t *testing.T) {
	c := Catalog{}
	c.Record(VariableRecord{Name: "n", Line: 4})
	c.Record(VariableRecord{Name: "m", Line: 2})
	c.Record(VariableRecord{Name: "n", Line: 7})

	r, ok := c.Lookup("n")
	require.True(t, ok)
	assert.Equal(t, 7, r.Line)
	assert.Len(t, c, 2)
	assert.Equal(t, []VariableRecord{{Name: "m", Line: 2}, {Name: "n", Line: 7}}, c.Records())
}
