package ssair

import (
	"github.com/picatz/seminal"
	"github.com/picatz/seminal/irutil"
)

var goSources = []struct {
	pattern string
	kind    seminal.SourceKind
}{
	{"fmt.Scan", seminal.ScalarReader},
	{"fmt.Scanf", seminal.ScalarReader},
	{"fmt.Scanln", seminal.ScalarReader},
	{"fmt.Fscan", seminal.ScalarReader},
	{"fmt.Fscanf", seminal.ScalarReader},
	{"fmt.Fscanln", seminal.ScalarReader},
	{"fmt.Sscan", seminal.ScalarReader},
	{"fmt.Sscanf", seminal.ScalarReader},
	{"fmt.Sscanln", seminal.ScalarReader},

	{"os.Open", seminal.FileOpen},
	{"os.OpenFile", seminal.FileOpen},
	{"os.ReadFile", seminal.FileOpen},
	{"io.ReadAll", seminal.FileOpen},
	{"bufio.NewReader", seminal.FileOpen},
	{"bufio.NewScanner", seminal.FileOpen},

	{"(*bufio.Reader).ReadByte", seminal.StreamReader},
	{"(*bufio.Reader).ReadRune", seminal.StreamReader},
	{"(*bufio.Reader).ReadString", seminal.StreamReader},
	{"(*bufio.Reader).ReadLine", seminal.StreamReader},
	{"(*bufio.Reader).ReadBytes", seminal.StreamReader},
	{"(*bufio.Scanner).Scan", seminal.StreamReader},
	{"(io.Reader).Read", seminal.StreamReader},
	{"(io.ByteReader).ReadByte", seminal.StreamReader},
}

// GoInputSources returns the default input sources followed by the input
// functions of the Go standard library, matched by their exact SSA names.
func GoInputSources() seminal.InputSources {
	srcs := seminal.DefaultInputSources()
	for _, s := range goSources {
		srcs = append(srcs, seminal.InputSource{
			Matcher: irutil.MustFunctionMatcher(s.pattern, irutil.MatchExact),
			Kind:    s.kind,
		})
	}
	return srcs
}
