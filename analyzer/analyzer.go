// Package analyzer exposes the seminal input detector as a
// golang.org/x/tools/go/analysis Analyzer, so it can run under go vet,
// gopls or any other analysis driver.
package analyzer

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"reflect"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/ssa"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/config"
	"github.com/picatz/seminal/irutil"
	"github.com/picatz/seminal/ssair"
)

// Analyzer reports every variable influenced by an input function, at the
// line the variable is declared.
var Analyzer = &analysis.Analyzer{
	Name:       "seminal",
	Doc:        "reports variables influenced by input functions such as fmt.Scan or os.Open",
	Run:        run,
	ResultType: reflect.TypeOf(new(seminal.Report)),
}

var configPath string

func init() {
	Analyzer.Flags.StringVar(&configPath, "config", "", "path to a seminal YAML configuration file")
}

// detector returns the detector configured by the -config flag, or one
// matching the Go standard library input functions.
func detector() (*seminal.Detector, error) {
	if configPath == "" {
		d := seminal.NewDetector()
		d.Sources = ssair.GoInputSources()
		return d, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	base := seminal.DefaultInputSources()
	if cfg.GoSources {
		base = ssair.GoInputSources()
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return cfg.Detector(base, irutil.NewLogger(level, nil))
}

func run(pass *analysis.Pass) (interface{}, error) {
	d, err := detector()
	if err != nil {
		return nil, err
	}

	// The package is built again, rather than reusing buildssa, because
	// variable names and positions are only kept with GlobalDebug.
	prog := ssa.NewProgram(pass.Fset, ssair.BuildMode)
	for _, p := range pass.Pkg.Imports() {
		prog.CreatePackage(p, nil, nil, true)
	}
	ssapkg := prog.CreatePackage(pass.Pkg, pass.Files, pass.TypesInfo, false)
	ssapkg.Build()

	funcs := sourceFuncs(pass, prog)

	lowered, err := ssair.Program(funcs)
	if err != nil {
		return nil, fmt.Errorf("failed to lower %s: %w", pass.Pkg.Path(), err)
	}

	report, err := d.Analyze(context.Background(), lowered.Functions)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*ssa.Function, len(funcs))
	for _, fn := range funcs {
		byName[fn.String()] = fn
	}

	for _, fr := range report.Functions {
		fn, ok := byName[fr.Function]
		if !ok {
			continue
		}
		file := pass.Fset.File(fn.Pos())
		if file == nil {
			continue
		}
		for _, v := range fr.ImportantVariables {
			if v.Line <= 0 || v.Line > file.LineCount() {
				continue
			}
			pass.Reportf(file.LineStart(v.Line), "input-influenced variable %s in %s", v.Name, fn.Name())
		}
	}

	return report, nil
}

// sourceFuncs lists the functions declared in the package, each followed
// by its function literals, in source order.
func sourceFuncs(pass *analysis.Pass, prog *ssa.Program) []*ssa.Function {
	var funcs []*ssa.Function

	var addAnons func(f *ssa.Function)
	addAnons = func(f *ssa.Function) {
		funcs = append(funcs, f)
		for _, anon := range f.AnonFuncs {
			addAnons(anon)
		}
	}

	for _, f := range pass.Files {
		for _, decl := range f.Decls {
			fdecl, ok := decl.(*ast.FuncDecl)
			if !ok || fdecl.Body == nil {
				continue
			}
			obj, ok := pass.TypesInfo.Defs[fdecl.Name].(*types.Func)
			if !ok || obj == nil {
				continue
			}
			if fn := prog.FuncValue(obj); fn != nil && fn.Pos() != token.NoPos {
				addAnons(fn)
			}
		}
	}

	return funcs
}
