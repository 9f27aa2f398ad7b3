// Package ssair lowers Go programs into the ir form analyzed by package
// seminal, using golang.org/x/tools/go/ssa.
//
// Packages are built in naïve form with debug information, so local
// variables stay in memory as Alloc instructions read and written with
// explicit loads and stores, and each source variable keeps its name and
// declaration position.
package ssair

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"sort"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/picatz/seminal/irutil"
)

// BuildMode is the SSA builder mode the lowering expects.
const BuildMode = ssa.NaiveForm | ssa.GlobalDebug | ssa.InstantiateGenerics

const (
	loadMode = packages.NeedName |
		packages.NeedDeps |
		packages.NeedFiles |
		packages.NeedModule |
		packages.NeedTypes |
		packages.NeedImports |
		packages.NeedSyntax |
		packages.NeedTypesInfo

	parseMode = parser.SkipObjectResolution
)

// Load loads the packages matching patterns in dir and builds them in
// BuildMode. Packages that fail to type check are reported as an error
// unless at least one package could be built.
func Load(ctx context.Context, dir string, patterns ...string) ([]*ssa.Package, error) {
	log := irutil.FromContext(ctx)

	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	log.Debug("loading packages %v in %s", patterns, dir)

	pkgs, err := packages.Load(&packages.Config{
		Mode:    loadMode,
		Context: ctx,
		Env:     os.Environ(),
		Dir:     dir,
		Tests:   false,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			return parser.ParseFile(fset, filename, src, parseMode)
		},
	}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	})

	prog, ssaPkgs := ssautil.Packages(pkgs, BuildMode)
	if prog == nil {
		return nil, fmt.Errorf("failed to create new ssa program")
	}

	prog.Build()

	// Remove nil ssaPkgs
	built := ssaPkgs[:0]
	for _, p := range ssaPkgs {
		if p != nil {
			built = append(built, p)
		}
	}

	if len(built) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to build packages: %w", errors.Join(errs...))
		}
		return nil, fmt.Errorf("no packages matched %v in %s", patterns, dir)
	}
	for _, e := range errs {
		log.Warning("%v", e)
	}

	log.Step("Built SSA", fmt.Sprintf("%d packages", len(built)))

	return built, nil
}

// SourceFunctions returns the functions and methods declared in pkgs, each
// followed by the function literals it contains, ordered by position.
func SourceFunctions(pkgs []*ssa.Package) []*ssa.Function {
	var (
		srcFns []*ssa.Function
		seen   = make(map[*ssa.Function]bool)
	)

	var addAnons func(f *ssa.Function)
	addAnons = func(f *ssa.Function) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		srcFns = append(srcFns, f)
		for _, anon := range f.AnonFuncs {
			addAnons(anon)
		}
	}

	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}

		var top []*ssa.Function
		for _, mem := range pkg.Members {
			switch mem := mem.(type) {
			case *ssa.Function:
				if mem.Object() == nil || mem.Object().Name() == "_" {
					continue
				}
				top = append(top, mem)
			case *ssa.Type:
				if types.IsInterface(mem.Type()) {
					continue
				}
				for _, T := range []types.Type{mem.Type(), types.NewPointer(mem.Type())} {
					mset := pkg.Prog.MethodSets.MethodSet(T)
					for i := 0; i < mset.Len(); i++ {
						fn := pkg.Prog.MethodValue(mset.At(i))
						if fn == nil || fn.Pkg != pkg || fn.Synthetic != "" {
							continue
						}
						top = append(top, fn)
					}
				}
			}
		}

		sort.Slice(top, func(i, j int) bool {
			if top[i].Pos() != top[j].Pos() {
				return top[i].Pos() < top[j].Pos()
			}
			return top[i].String() < top[j].String()
		})

		for _, fn := range top {
			addAnons(fn)
		}
	}

	return srcFns
}
