package seminal

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
)

// scanfFunction builds
//
//	void f() {
//	  int x;              // line 3
//	  scanf("%d", &x);
//	}
func scanfFunction(name, variable string) *ir.Function {
	fn := ir.NewFunction(name)
	entry := fn.NewBlock("entry")
	x := entry.Alloc(variable, 3)
	entry.Declare(x, variable, 3)
	entry.Call("__isoc99_scanf", false, fn.Const(`"%d"`), x)
	entry.Return()
	return fn
}

func TestScalarReader(t *testing.T) {
	fr, ok := NewDetector().AnalyzeFunction(scanfFunction("f", "x"))
	require.True(t, ok)

	assert.Equal(t, &FunctionReport{
		Function: "f",
		ImportantVariables: []ImportantVariable{
			{Type: "IO", Name: "x", Line: 3},
		},
	}, fr)
}

// fopenFunction builds
//
//	FILE *fp;                  // line 5
//	FILE *copy;                // line 6
//	fp = fopen("in.txt", "r"); // stored to fp, then to copy
//	fp = tmpfile();
func fopenFunction() *ir.Function {
	fn := ir.NewFunction("open")
	entry := fn.NewBlock("entry")
	fp := entry.Alloc("fp", 5)
	entry.Declare(fp, "fp", 5)
	cp := entry.Alloc("copy", 6)
	entry.Declare(cp, "copy", 6)

	call := entry.Call("fopen", false, fn.Const(`"in.txt"`), fn.Const(`"r"`))
	entry.Store(call, fp)
	entry.Store(call, cp)

	other := entry.Call("tmpfile", false)
	entry.Store(other, fp)
	entry.Return()
	return fn
}

func TestFileOpenFirstStoreWins(t *testing.T) {
	in := NewDetector().Inspect(fopenFunction())

	assert.Equal(t, []string{"fp"}, in.IO.Names())
	require.NotNil(t, in.Report)
	assert.Equal(t, []ImportantVariable{{Type: "IO", Name: "fp", Line: 5}}, in.Report.ImportantVariables)

	_, ok := in.Catalog.Lookup("copy")
	assert.True(t, ok, "copy is cataloged as a declared allocation")
}

func TestFileOpenSkipsUndeclaredStore(t *testing.T) {
	fn := ir.NewFunction("open")
	entry := fn.NewBlock("entry")
	tmp := entry.Alloc("", ir.NoLine)
	fp := entry.Alloc("fp", 4)
	entry.Declare(fp, "fp", 4)

	call := entry.Call("fopen", false, fn.Const(`"in.txt"`), fn.Const(`"r"`))
	entry.Store(call, tmp)
	entry.Store(call, fp)
	entry.Return()

	in := NewDetector().Inspect(fn)
	assert.Equal(t, []string{"fp"}, in.IO.Names())
}

// getcLoopFunction builds
//
//	int count(FILE *fp) {  // fp spilled at line 2
//	  int c;               // line 3
//	  int i = 0;           // line 4
//	  while (i != (c = getc(fp)))
//	    i++;
//	  return i;
//	}
func getcLoopFunction() *ir.Function {
	fn := ir.NewFunction("count")
	entry := fn.NewBlock("entry")
	cond := fn.NewBlock("while.cond")
	body := fn.NewBlock("while.body")
	end := fn.NewBlock("while.end")

	fp := entry.Alloc("fp", 2)
	entry.Declare(fp, "fp", 2)
	entry.Store(fn.Param("fp"), fp)
	c := entry.Alloc("c", 3)
	entry.Declare(c, "c", 3)
	i := entry.Alloc("i", 4)
	entry.Declare(i, "i", 4)
	entry.Store(fn.Const("0"), i)
	entry.Jump(cond)

	li := cond.Load(i)
	ch := cond.Call("getc", false, cond.Load(fp))
	cond.Store(ch, c)
	cmp := cond.Op("icmp ne", li, ch)
	cond.If(cmp, body, end)

	body.Store(body.Op("add", body.Load(i), fn.Const("1")), i)
	body.Jump(cond)

	end.Return(end.Load(i))
	return fn
}

func TestStreamReaderInLoopCondition(t *testing.T) {
	d := NewDetector()
	fn := getcLoopFunction()

	// The loop condition alone reaches the counter and the stream.
	catalog := Catalog{}
	d.seedLoops(fn, make(valueSet), catalog)
	_, ok := catalog.Lookup("i")
	assert.True(t, ok, "loop counter should be reached from the loop condition")
	_, ok = catalog.Lookup("fp")
	assert.True(t, ok, "getc stream should be reached from the loop condition")

	in := d.Inspect(fn)
	assert.Len(t, in.Catalog, 3)
	assert.Equal(t, []string{"fp"}, in.IO.Names())
	require.NotNil(t, in.Report)
	assert.Equal(t, []ImportantVariable{{Type: "IO", Name: "fp", Line: 2}}, in.Report.ImportantVariables)
}

func TestNoInputCalls(t *testing.T) {
	fn := getcLoopFunction()
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		if v.Kind == ir.KindCall {
			v.Callee = "compute"
		}
		return true
	})

	in := NewDetector().Inspect(fn)
	assert.NotEmpty(t, in.Catalog)
	assert.Empty(t, in.IO)
	assert.Nil(t, in.Report)

	report, err := NewDetector().Analyze(context.Background(), []*ir.Function{fn})
	require.NoError(t, err)
	assert.Zero(t, report.Len())
}

func TestIndirectCallsIgnored(t *testing.T) {
	fn := scanfFunction("f", "x")
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		if v.Kind == ir.KindCall {
			v.Callee = ""
		}
		return true
	})

	_, ok := NewDetector().AnalyzeFunction(fn)
	assert.False(t, ok)
}

func TestNoLeakAcrossFunctions(t *testing.T) {
	a := scanfFunction("a", "x")
	b := scanfFunction("b", "y")

	report, err := NewDetector().Analyze(context.Background(), []*ir.Function{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, report.Len())

	fr, ok := report.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, []ImportantVariable{{Type: "IO", Name: "y", Line: 3}}, fr.ImportantVariables)
	assert.Equal(t, "a", report.Functions[0].Function)
}

func TestAnalyzeFilterAndCancel(t *testing.T) {
	fns := []*ir.Function{scanfFunction("main.read", "x"), scanfFunction("util.read", "y")}

	d := NewDetector()
	d.Filter = regexp.MustCompile(`^main\.`)
	report, err := d.Analyze(context.Background(), fns)
	require.NoError(t, err)
	require.Equal(t, 1, report.Len())
	assert.Equal(t, "main.read", report.Functions[0].Function)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err = NewDetector().Analyze(ctx, fns)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Len())
}

func TestCustomSources(t *testing.T) {
	fn := scanfFunction("f", "x")
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		if v.Kind == ir.KindCall {
			v.Callee = "read_config"
		}
		return true
	})

	src, err := NewInputSource("glob:read_*", ScalarReader)
	require.NoError(t, err)

	d := NewDetector()
	d.Sources = append(d.Sources, src)

	fr, ok := d.AnalyzeFunction(fn)
	require.True(t, ok)
	assert.Equal(t, "x", fr.ImportantVariables[0].Name)
}

func TestSourceMatchOrder(t *testing.T) {
	srcs := DefaultInputSources()

	for callee, want := range map[string]SourceKind{
		"scanf":           ScalarReader,
		"myscanf_wrapper": ScalarReader,
		"fopen64":         FileOpen,
		"fgetc":           StreamReader,
		"getchar":         StreamReader,
	} {
		src, ok := srcs.Match(callee)
		if assert.True(t, ok, callee) {
			assert.Equal(t, want, src.Kind, callee)
		}
	}

	_, ok := srcs.Match("printf")
	assert.False(t, ok)
	_, ok = srcs.Match("")
	assert.False(t, ok)
}

func TestInvalidArgumentsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	d := NewDetector()
	d.Logger = irutil.NewLogger(irutil.LogLevelDebug, &buf)

	fn := scanfFunction("f", "x")
	catalog := Catalog{}

	d.traverse(fn, 0, make(valueSet), nil)
	d.traverse(fn, 0, nil, catalog)
	d.traverse(nil, 0, make(valueSet), catalog)
	d.traverse(fn, ir.ValueID(1000), make(valueSet), catalog)
	_, ok := d.resolve(fn, ir.NoValue)
	assert.False(t, ok)

	assert.Empty(t, catalog)
	assert.Contains(t, buf.String(), "nil catalog")
	assert.Contains(t, buf.String(), "nil visited set")
	assert.Contains(t, buf.String(), "nil function")
	assert.Contains(t, buf.String(), "invalid value 1000")

	in := d.Inspect(nil)
	assert.Nil(t, in.Report)
}
