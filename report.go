package seminal

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// DefaultOutput is the file a report is saved to unless configured
// otherwise.
const DefaultOutput = "seminal-values.json"

// VariableTypeIO tags a variable influenced by program input.
const VariableTypeIO = "IO"

// ImportantVariable is an input-influenced variable of a function.
type ImportantVariable struct {
	Type string `json:"type" yaml:"type" msgpack:"type"`
	Name string `json:"name" yaml:"name" msgpack:"name"`
	Line int    `json:"line" yaml:"line" msgpack:"line"`
}

// FunctionReport lists the input-influenced variables of one function.
type FunctionReport struct {
	Function           string              `json:"function" yaml:"function" msgpack:"function"`
	ImportantVariables []ImportantVariable `json:"important_variables" yaml:"important_variables" msgpack:"important_variables"`
}

// newFunctionReport keeps the cataloged variables that are input bound,
// ordered by line then name. It returns nil when there are none.
func newFunctionReport(function string, catalog Catalog, io IOSet) *FunctionReport {
	var vars []ImportantVariable
	for _, r := range catalog.Records() {
		if !io.Has(r.Name) {
			continue
		}
		vars = append(vars, ImportantVariable{Type: VariableTypeIO, Name: r.Name, Line: r.Line})
	}
	if len(vars) == 0 {
		return nil
	}
	return &FunctionReport{Function: function, ImportantVariables: vars}
}

// Report accumulates function reports in the order functions are analyzed.
type Report struct {
	Functions []*FunctionReport
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{Functions: []*FunctionReport{}}
}

// Append adds fr to the report. Reports without variables are dropped.
func (r *Report) Append(fr *FunctionReport) {
	if fr == nil || len(fr.ImportantVariables) == 0 {
		return
	}
	r.Functions = append(r.Functions, fr)
}

// Len returns the number of function reports.
func (r *Report) Len() int {
	return len(r.Functions)
}

// Lookup returns the report of the named function.
func (r *Report) Lookup(function string) (*FunctionReport, bool) {
	for _, fr := range r.Functions {
		if fr.Function == function {
			return fr, true
		}
	}
	return nil, false
}

// Format is a report serialization format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
	FormatCSV     Format = "csv"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mpk":
		return FormatMsgpack, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// FormatFromPath picks a format by file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return FormatJSON
	}
	return f
}

func (r *Report) functions() []*FunctionReport {
	if r == nil || r.Functions == nil {
		return []*FunctionReport{}
	}
	return r.Functions
}

// Encode writes the report to w in the given format. JSON is indented by
// four spaces; CSV has one row per variable.
func (r *Report) Encode(w io.Writer, format Format) error {
	fns := r.functions()

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(fns)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(fns); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(fns)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"function", "type", "name", "line"}); err != nil {
			return err
		}
		for _, fr := range fns {
			for _, v := range fr.ImportantVariables {
				if err := cw.Write([]string{fr.Function, v.Type, v.Name, strconv.Itoa(v.Line)}); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Save writes the report to path in the given format. The file is replaced
// as a whole; a failed save leaves any existing file untouched.
func (r *Report) Save(path string, format Format) error {
	var buf bytes.Buffer
	if err := r.Encode(&buf, format); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".seminal-*")
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Decode reads a report written by Encode in the JSON, YAML or MessagePack
// format.
func Decode(rd io.Reader, format Format) (*Report, error) {
	var fns []*FunctionReport

	var err error
	switch format {
	case FormatJSON, "":
		err = json.NewDecoder(rd).Decode(&fns)
	case FormatYAML:
		err = yaml.NewDecoder(rd).Decode(&fns)
	case FormatMsgpack:
		err = msgpack.NewDecoder(rd).Decode(&fns)
	default:
		return nil, fmt.Errorf("cannot decode %s reports", format)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode %s report: %w", format, err)
	}

	report := NewReport()
	for _, fr := range fns {
		report.Append(fr)
	}
	return report, nil
}

// LoadReport reads a saved report, picking the format by file extension.
func LoadReport(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	defer f.Close()

	return Decode(f, FormatFromPath(path))
}
