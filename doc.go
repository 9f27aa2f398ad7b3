// Package seminal finds "seminal inputs": program variables whose values are
// influenced by externally supplied input, such as values read with scanf,
// streams opened with fopen, or characters read with getc.
//
// The analysis runs over the arena IR of package ir, one function at a time.
// For each function it walks the definition/use chains of loop exit
// conditions and of every store, recording each named variable it passes
// through, then classifies calls to input functions and marks the variables
// bound to their arguments or results. Variables that are both recorded and
// marked are reported:
//
//	d := seminal.NewDetector()
//	report, err := d.Analyze(ctx, prog.Functions)
//	...
//	err = report.Save("seminal-values.json", seminal.FormatJSON)
//
// The analysis is a best-effort heuristic. It does not follow values across
// function boundaries, and it matches pointers only syntactically through
// loads and stores.
package seminal
