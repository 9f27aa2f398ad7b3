package ir

import (
	"strings"
	"testing"
)

// buildScanf builds:
//
//	int x;           // line 3
//	scanf("%d", &x);
func buildScanf() (*Function, ValueID) {
	fn := NewFunction("f")
	entry := fn.NewBlock("entry")
	x := entry.Alloc("x", 3)
	entry.Declare(x, "x", 3)
	format := fn.Const(`"%d"`)
	entry.Call("scanf", false, format, x)
	entry.Return()
	return fn, x
}

func TestBuilder(t *testing.T) {
	fn, x := buildScanf()

	if err := fn.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if got := fn.Value(x).Kind; got != KindAlloc {
		t.Fatalf("expected alloca, got %s", got)
	}

	var kinds []string
	fn.Instrs(func(b *Block, v *Value) bool {
		kinds = append(kinds, v.Kind.String())
		return true
	})

	want := "alloca declare call ret"
	if got := strings.Join(kinds, " "); got != want {
		t.Fatalf("expected instructions %q, got %q", want, got)
	}

	if fn.Value(NoValue) != nil {
		t.Fatal("expected nil for NoValue")
	}
	if fn.Value(ValueID(fn.Len())) != nil {
		t.Fatal("expected nil for out of range value")
	}
}

func TestInstrsStops(t *testing.T) {
	fn, _ := buildScanf()

	n := 0
	fn.Instrs(func(b *Block, v *Value) bool {
		n++
		return v.Kind != KindDeclare
	})
	if n != 2 {
		t.Fatalf("expected iteration to stop after 2 instructions, got %d", n)
	}
}

func TestBranchEdges(t *testing.T) {
	fn := NewFunction("g")
	entry := fn.NewBlock("entry")
	then := fn.NewBlock("then")
	done := fn.NewBlock("done")

	c := fn.Const("true")
	br := entry.If(c, then, done)
	then.Jump(done)
	done.Return()

	if !fn.Value(br).IsConditional() {
		t.Fatal("expected conditional branch")
	}
	if fn.Value(br).Cond() != c {
		t.Fatal("unexpected branch condition")
	}
	if len(done.Preds) != 2 {
		t.Fatalf("expected 2 predecessors of done, got %d", len(done.Preds))
	}
	if !entry.Terminated() || !then.Terminated() || !done.Terminated() {
		t.Fatal("expected all blocks to be terminated")
	}
}

func TestValidate(t *testing.T) {
	fn := NewFunction("bad")
	entry := fn.NewBlock("entry")
	entry.Load(ValueID(42))
	entry.Return()

	if err := fn.Validate(); err == nil {
		t.Fatal("expected validation error for dangling operand")
	}
}

func TestWriteTo(t *testing.T) {
	fn, _ := buildScanf()
	fn.File = "scan.c"
	fn.Line = 2

	out := fn.String()

	for _, want := range []string{
		"define @f() ; scan.c:2 {",
		"entry:",
		"%x.addr0 = alloca\t; line 3",
		`declare %x.addr0, "x"`,
		`%3 = call @scanf("%d", %x.addr0)`,
		"ret void",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestProgramLookup(t *testing.T) {
	var prog Program
	f, _ := buildScanf()
	prog.Add(f)
	prog.Add(NewFunction("g"))

	if prog.Lookup("g") == nil {
		t.Fatal("expected to find g")
	}
	if prog.Lookup("h") != nil {
		t.Fatal("did not expect to find h")
	}
}
