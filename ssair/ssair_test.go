package ssair

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/ir"
)

const readers = "example.com/readers"

func loadReaders(t *testing.T) *ir.Program {
	t.Helper()

	pkgs, err := Load(context.Background(), "testdata/readers", "./...")
	require.NoError(t, err)

	fns := SourceFunctions(pkgs)
	require.NotEmpty(t, fns)

	prog, err := Program(fns)
	require.NoError(t, err)
	return prog
}

func TestSourceFunctions(t *testing.T) {
	prog := loadReaders(t)

	var names []string
	for _, fn := range prog.Functions {
		names = append(names, fn.Name)
	}

	assert.Equal(t, []string{
		readers + ".readCount",
		readers + ".openInput",
		readers + ".countLines",
		readers + ".sum",
		"(*" + readers + ".counter).read",
		readers + ".main",
	}, names)
}

func TestLower(t *testing.T) {
	prog := loadReaders(t)

	fn := prog.Lookup(readers + ".readCount")
	require.NotNil(t, fn)
	assert.NoError(t, fn.Validate())
	assert.Equal(t, 9, fn.Line)

	var (
		declared []string
		callees  []string
	)
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		switch v.Kind {
		case ir.KindDeclare:
			declared = append(declared, v.Var)
			assert.Equal(t, 10, v.Line)
			assert.Equal(t, ir.KindAlloc, fn.Value(v.Addr()).Kind)
		case ir.KindCall:
			callees = append(callees, v.Callee)
			if v.Callee == "fmt.Scan" {
				// &n is passed straight through the variadic slice.
				require.Len(t, v.Args(), 1)
				assert.Equal(t, ir.KindAlloc, fn.Value(v.Args()[0]).Kind)
			}
		}
		return true
	})

	assert.Equal(t, []string{"n"}, declared)
	assert.Contains(t, callees, "fmt.Scan")
}

func TestLowerTupleResult(t *testing.T) {
	prog := loadReaders(t)

	fn := prog.Lookup(readers + ".openInput")
	require.NotNil(t, fn)

	var open ir.ValueID = ir.NoValue
	stored := false
	fn.Instrs(func(_ *ir.Block, v *ir.Value) bool {
		if v.Kind == ir.KindCall && v.Callee == "os.Open" {
			open = v.ID
		}
		if v.Kind == ir.KindStore && open != ir.NoValue && v.Stored() == open {
			r, ok := seminal.Resolve(fn, v.Addr())
			require.True(t, ok)
			assert.Equal(t, "f", r.Name)
			stored = true
		}
		return true
	})
	assert.True(t, stored, "expected the first result of os.Open to be stored to f")
}

func TestLowerLoops(t *testing.T) {
	prog := loadReaders(t)

	for _, name := range []string{readers + ".countLines", readers + ".sum"} {
		fn := prog.Lookup(name)
		require.NotNil(t, fn, name)
		assert.NotEmpty(t, ir.Loops(fn), name)
	}
	assert.Empty(t, ir.Loops(prog.Lookup(readers+".readCount")))
}

func TestAnalyzeGo(t *testing.T) {
	prog := loadReaders(t)

	d := seminal.NewDetector()
	d.Sources = GoInputSources()

	report, err := d.Analyze(context.Background(), prog.Functions)
	require.NoError(t, err)

	want := map[string][]seminal.ImportantVariable{
		readers + ".readCount":           {{Type: "IO", Name: "n", Line: 10}},
		readers + ".openInput":           {{Type: "IO", Name: "f", Line: 16}},
		readers + ".countLines":          {{Type: "IO", Name: "reader", Line: 24}},
		"(*" + readers + ".counter).read": {{Type: "IO", Name: "delta", Line: 50}},
	}

	require.Equal(t, len(want), report.Len())
	for fn, vars := range want {
		fr, ok := report.Lookup(fn)
		if assert.True(t, ok, fn) {
			assert.Equal(t, vars, fr.ImportantVariables, fn)
		}
	}

	_, ok := report.Lookup(readers + ".sum")
	assert.False(t, ok)
}

func TestGoInputSources(t *testing.T) {
	srcs := GoInputSources()

	for callee, want := range map[string]seminal.SourceKind{
		"fmt.Scanln":                 seminal.ScalarReader,
		"os.Open":                    seminal.FileOpen,
		"(*bufio.Reader).ReadString": seminal.StreamReader,
		"(io.Reader).Read":           seminal.StreamReader,
		"__isoc99_scanf":             seminal.ScalarReader,
	} {
		src, ok := srcs.Match(callee)
		if assert.True(t, ok, callee) {
			assert.Equal(t, want, src.Kind, callee)
		}
	}

	_, ok := srcs.Match("os.Create")
	assert.False(t, ok)
}

func TestLowerErrors(t *testing.T) {
	_, err := Lower(nil)
	assert.Error(t, err)
}
