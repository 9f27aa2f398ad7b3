package seminal

import (
	"fmt"
	"strings"

	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
)

// SourceKind says how an input function call binds input to variables.
type SourceKind int

const (
	// ScalarReader reads input into the variables its arguments point to,
	// like scanf.
	ScalarReader SourceKind = iota
	// FileOpen returns an input handle that is stored to a variable, like
	// fopen.
	FileOpen
	// StreamReader reads from a stream held in one of its arguments, like
	// getc.
	StreamReader
)

func (k SourceKind) String() string {
	switch k {
	case ScalarReader:
		return "scalar-reader"
	case FileOpen:
		return "file-open"
	case StreamReader:
		return "stream-reader"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// ParseSourceKind parses the name of a kind as returned by String.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar-reader", "scalar", "scanf":
		return ScalarReader, nil
	case "file-open", "file", "fopen":
		return FileOpen, nil
	case "stream-reader", "stream", "getc":
		return StreamReader, nil
	default:
		return 0, fmt.Errorf("unknown input source kind %q", s)
	}
}

// InputSource recognizes calls to one family of input functions by callee
// name.
type InputSource struct {
	Matcher *irutil.FunctionMatcher
	Kind    SourceKind
}

// NewInputSource parses pattern with irutil.ParseFunctionMatcher, so a bare
// pattern matches any callee name containing it.
func NewInputSource(pattern string, kind SourceKind) (InputSource, error) {
	m, err := irutil.ParseFunctionMatcher(pattern)
	if err != nil {
		return InputSource{}, fmt.Errorf("input source %q: %w", pattern, err)
	}
	return InputSource{Matcher: m, Kind: kind}, nil
}

func (s InputSource) String() string {
	return fmt.Sprintf("%s (%s)", s.Matcher, s.Kind)
}

// InputSources is an ordered table of input sources. The first source whose
// matcher accepts a callee name classifies the call.
type InputSources []InputSource

// DefaultInputSources returns the built-in table. Matching is by substring,
// so wrappers and variants such as fscanf, __isoc99_scanf or fgetc are
// classified too.
func DefaultInputSources() InputSources {
	return InputSources{
		{Matcher: irutil.MustFunctionMatcher("scanf", irutil.MatchFuzzy), Kind: ScalarReader},
		{Matcher: irutil.MustFunctionMatcher("fopen", irutil.MatchFuzzy), Kind: FileOpen},
		{Matcher: irutil.MustFunctionMatcher("getc", irutil.MatchFuzzy), Kind: StreamReader},
	}
}

// Match returns the first source matching callee. Unresolved callees never
// match.
func (s InputSources) Match(callee string) (InputSource, bool) {
	if callee == "" {
		return InputSource{}, false
	}
	for _, src := range s {
		if src.Matcher != nil && src.Matcher.Match(callee) {
			return src, true
		}
	}
	return InputSource{}, false
}

// classify marks the variables bound to input function calls in fn, adding
// them to both catalog and io.
func (d *Detector) classify(fn *ir.Function, catalog Catalog, io IOSet) {
	if fn == nil || catalog == nil || io == nil {
		d.log().Error("classify: missing function, catalog or input set")
		return
	}

	mark := func(r VariableRecord) {
		catalog.Record(r)
		io.Add(r.Name)
	}

	for _, b := range fn.Blocks {
		for i, id := range b.Instrs {
			call := fn.Value(id)
			if call.Kind != ir.KindCall {
				continue
			}
			if call.Callee == "" {
				d.log().Trace("%s: skipping indirect call %s", fn.Name, fn.Ref(id))
				continue
			}

			src, ok := d.sources().Match(call.Callee)
			if !ok {
				continue
			}
			d.log().Debug("%s: %s matches %s", fn.Name, call.Callee, src)

			switch src.Kind {
			case ScalarReader, StreamReader:
				for _, arg := range call.Args() {
					if r, ok := d.resolveStorage(fn, arg); ok {
						mark(r)
					}
				}
			case FileOpen:
				if r, ok := d.storedResult(fn, b, i); ok {
					mark(r)
				}
			}
		}
	}
}

// storedResult finds the first store after the call at b.Instrs[i] that
// writes the call's result to a declared variable.
func (d *Detector) storedResult(fn *ir.Function, b *ir.Block, i int) (VariableRecord, bool) {
	call := b.Instrs[i]
	for _, id := range b.Instrs[i+1:] {
		st := fn.Value(id)
		if st.Kind != ir.KindStore || st.Stored() != call {
			continue
		}
		if r, ok := d.resolve(fn, st.Addr()); ok {
			return r, true
		}
	}
	return VariableRecord{}, false
}
