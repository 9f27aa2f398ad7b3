package seminal

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/picatz/seminal/ir"
)

// NoLine is the line of a variable without a known source position.
const NoLine = ir.NoLine

// VariableRecord is a source variable bound to a storage location.
type VariableRecord struct {
	Name string
	Line int
}

// Catalog maps variable names to the record most recently observed for them
// while analyzing a single function.
type Catalog map[string]VariableRecord

// Record stores r, replacing any earlier record with the same name.
func (c Catalog) Record(r VariableRecord) {
	c[r.Name] = r
}

// Lookup returns the record for name.
func (c Catalog) Lookup(name string) (VariableRecord, bool) {
	r, ok := c[name]
	return r, ok
}

// Records returns the records ordered by line, then name.
func (c Catalog) Records() []VariableRecord {
	records := make([]VariableRecord, 0, len(c))
	for _, r := range c {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Line != records[j].Line {
			return records[i].Line < records[j].Line
		}
		return records[i].Name < records[j].Name
	})
	return records
}

// IOSet is the set of variable names bound to an input function call.
type IOSet map[string]struct{}

// Add marks name as input bound.
func (s IOSet) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is input bound.
func (s IOSet) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s[name]
	return ok
}

// Names returns the sorted names in the set.
func (s IOSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// valueSet is a set of ir.ValueIDs that can be used to track
// the values that have been visited during a traversal. This
// is used to prevent infinite recursion, and to prevent
// visiting the same value multiple times.
type valueSet map[ir.ValueID]struct{}

// includes returns true if the value is in the set.
func (v valueSet) includes(id ir.ValueID) bool {
	if v == nil {
		return false
	}
	_, ok := v[id]
	return ok
}

// add adds the value to the set.
func (v valueSet) add(id ir.ValueID) {
	v[id] = struct{}{}
}
