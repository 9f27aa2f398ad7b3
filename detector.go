package seminal

import (
	"context"
	"regexp"

	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
)

// Detector finds input-influenced variables, one function at a time.
//
// The zero value is usable: it classifies calls with DefaultInputSources,
// analyzes every function and logs nothing.
type Detector struct {
	// Sources classifies input function calls. DefaultInputSources is used
	// when empty.
	Sources InputSources

	// Filter, when set, limits Analyze to functions whose names match.
	Filter *regexp.Regexp

	// Logger receives diagnostics. Nothing is logged when nil.
	Logger *irutil.Logger
}

// NewDetector returns a detector using the default input sources.
func NewDetector() *Detector {
	return &Detector{Sources: DefaultInputSources()}
}

func (d *Detector) log() *irutil.Logger {
	if d.Logger == nil {
		return irutil.Discard()
	}
	return d.Logger
}

func (d *Detector) sources() InputSources {
	if len(d.Sources) == 0 {
		return DefaultInputSources()
	}
	return d.Sources
}

// Inspection holds the intermediate state of the analysis of one function.
type Inspection struct {
	Function *ir.Function

	// Catalog holds every variable reached from a seed or bound to an
	// input function.
	Catalog Catalog

	// IO holds the names of the variables bound to an input function.
	IO IOSet

	// Report is the function's report, or nil when no cataloged variable is
	// input bound.
	Report *FunctionReport
}

// Inspect analyzes fn and returns the catalog and input set along with the
// report. Loop conditions are seeded first, then allocations and stores,
// sharing one visited set; input calls are classified last.
func (d *Detector) Inspect(fn *ir.Function) *Inspection {
	if fn == nil {
		d.log().Error("inspect: nil function")
		return &Inspection{Catalog: Catalog{}, IO: IOSet{}}
	}

	in := &Inspection{
		Function: fn,
		Catalog:  Catalog{},
		IO:       IOSet{},
	}

	visited := make(valueSet)
	d.seedLoops(fn, visited, in.Catalog)
	d.seedVariables(fn, visited, in.Catalog)
	d.classify(fn, in.Catalog, in.IO)

	in.Report = newFunctionReport(fn.Name, in.Catalog, in.IO)

	d.log().Debug("%s: %d variables, %d input bound", fn.Name, len(in.Catalog), len(in.IO))

	return in
}

// AnalyzeFunction analyzes fn and returns its report. It returns false when
// no variable of fn is input influenced.
func (d *Detector) AnalyzeFunction(fn *ir.Function) (*FunctionReport, bool) {
	in := d.Inspect(fn)
	return in.Report, in.Report != nil
}

// Analyze analyzes each function in order and collects their reports.
// Cancelling ctx stops the analysis between functions and returns the
// reports collected so far along with the context's error.
func (d *Detector) Analyze(ctx context.Context, fns []*ir.Function) (*Report, error) {
	report := NewReport()

	pt := irutil.NewProgressTracker(ctx, "Analyzing functions", len(fns))
	for _, fn := range fns {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if fn == nil {
			continue
		}
		if d.Filter != nil && !d.Filter.MatchString(fn.Name) {
			pt.Update(fn.Name + " (skipped)")
			continue
		}

		if fr, ok := d.AnalyzeFunction(fn); ok {
			report.Append(fr)
		}
		pt.Update(fn.Name)
	}
	pt.Complete()

	return report, nil
}
