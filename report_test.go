package seminal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	r := NewReport()
	r.Append(&FunctionReport{
		Function: "main",
		ImportantVariables: []ImportantVariable{
			{Type: VariableTypeIO, Name: "fp", Line: 5},
			{Type: VariableTypeIO, Name: "n", Line: NoLine},
		},
	})
	r.Append(&FunctionReport{Function: "empty"})
	r.Append(nil)
	return r
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, FormatJSON))

	want := `[
    {
        "function": "main",
        "important_variables": [
            {
                "type": "IO",
                "name": "fp",
                "line": 5
            },
            {
                "type": "IO",
                "name": "n",
                "line": -1
            }
        ]
    }
]
`
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, NewReport().Encode(&buf, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	var nilReport *Report
	require.NoError(t, nilReport.Encode(&buf, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, FormatCSV))
	assert.Equal(t, "function,type,name,line\nmain,IO,fp,5\nmain,IO,n,-1\n", buf.String())
}

func TestReportSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()

	for _, name := range []string{DefaultOutput, "report.yaml", "report.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, report.Save(path, FormatFromPath(path)))

			loaded, err := LoadReport(path)
			require.NoError(t, err)
			assert.Equal(t, report.Functions, loaded.Functions)
		})
	}

	_, err := LoadReport(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestReportSaveFailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))

	err := sampleReport().Save(path, Format("xml"))
	require.Error(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(b))
}

func TestFormats(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("seminal-values.json"))
	assert.Equal(t, FormatYAML, FormatFromPath("out.yml"))
	assert.Equal(t, FormatCSV, FormatFromPath("out.CSV"))
	assert.Equal(t, FormatJSON, FormatFromPath("out"))

	_, err := ParseFormat("xml")
	assert.Error(t, err)

	_, err = Decode(bytes.NewReader(nil), FormatCSV)
	assert.Error(t, err)
}
