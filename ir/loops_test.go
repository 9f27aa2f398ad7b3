package ir

import (
	"testing"
)

func TestLoopsNone(t *testing.T) {
	fn := NewFunction("straight")
	entry := fn.NewBlock("entry")
	next := fn.NewBlock("next")
	entry.Jump(next)
	next.Return()

	if loops := Loops(fn); len(loops) != 0 {
		t.Fatalf("expected no loops, got %d", len(loops))
	}
}

// while (i < n) { i++; }
func TestLoopsWhile(t *testing.T) {
	fn := NewFunction("while")
	entry := fn.NewBlock("entry")
	cond := fn.NewBlock("while.cond")
	body := fn.NewBlock("while.body")
	end := fn.NewBlock("while.end")

	i := entry.Alloc("i", 2)
	entry.Jump(cond)

	li := cond.Load(i)
	cmp := cond.Op("icmp slt", li, fn.Param("n"))
	cond.If(cmp, body, end)

	li2 := body.Load(i)
	inc := body.Op("add", li2, fn.Const("1"))
	body.Store(inc, i)
	body.Jump(cond)

	end.Return()

	loops := Loops(fn)
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(loops))
	}

	l := loops[0]
	if l.Header != cond.ID {
		t.Fatalf("expected header %d, got %d", cond.ID, l.Header)
	}
	if len(l.Latches) != 1 || l.Latches[0] != body.ID {
		t.Fatalf("unexpected latches %v", l.Latches)
	}
	if !l.Contains(cond.ID) || !l.Contains(body.ID) {
		t.Fatalf("expected loop to contain header and body, got %v", l.Blocks)
	}
	if l.Contains(entry.ID) || l.Contains(end.ID) {
		t.Fatalf("loop should not contain entry or exit, got %v", l.Blocks)
	}
}

func TestLoopsNestedAndSelf(t *testing.T) {
	fn := NewFunction("nested")
	entry := fn.NewBlock("entry")
	outer := fn.NewBlock("outer")
	inner := fn.NewBlock("inner")
	latch := fn.NewBlock("latch")
	spin := fn.NewBlock("spin")
	exit := fn.NewBlock("exit")

	c := fn.Param("c")

	entry.Jump(outer)
	outer.If(c, inner, spin)
	inner.If(c, inner, latch) // self loop
	latch.Jump(outer)
	spin.If(c, spin, exit) // self loop
	exit.Return()

	loops := Loops(fn)
	if len(loops) != 3 {
		t.Fatalf("expected 3 loops, got %d", len(loops))
	}

	headers := []BlockID{loops[0].Header, loops[1].Header, loops[2].Header}
	want := []BlockID{outer.ID, inner.ID, spin.ID}
	for i := range want {
		if headers[i] != want[i] {
			t.Fatalf("expected headers %v, got %v", want, headers)
		}
	}

	if !loops[0].Contains(inner.ID) || !loops[0].Contains(latch.ID) {
		t.Fatalf("outer loop should contain the inner loop, got %v", loops[0].Blocks)
	}
	if len(loops[1].Blocks) != 1 {
		t.Fatalf("inner self loop should only contain itself, got %v", loops[1].Blocks)
	}
}

func TestLoopsUnreachableCycle(t *testing.T) {
	fn := NewFunction("dead")
	entry := fn.NewBlock("entry")
	a := fn.NewBlock("a")
	b := fn.NewBlock("b")

	entry.Return()
	a.Jump(b)
	b.Jump(a)

	if loops := Loops(fn); len(loops) != 0 {
		t.Fatalf("expected unreachable cycle to be ignored, got %d loops", len(loops))
	}
}
