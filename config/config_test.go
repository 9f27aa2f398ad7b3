package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/irutil"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "seminal-values.json", cfg.Output)
	assert.True(t, cfg.GoSources)
	assert.Nil(t, cfg.FunctionFilterRegex())

	f, err := cfg.ReportFormat()
	require.NoError(t, err)
	assert.Equal(t, seminal.FormatJSON, f)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, irutil.LogLevelInfo, lvl)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "testdata/config.yaml", cfg.SourceFile())
	assert.Equal(t, "out/values.yaml", cfg.Output)
	assert.False(t, cfg.GoSources)

	f, err := cfg.ReportFormat()
	require.NoError(t, err)
	assert.Equal(t, seminal.FormatYAML, f)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, irutil.LogLevelDebug, lvl)

	require.NotNil(t, cfg.FunctionFilterRegex())
	assert.True(t, cfg.FunctionFilterRegex().MatchString("main.run"))

	srcs, err := cfg.Sources(seminal.DefaultInputSources())
	require.NoError(t, err)
	require.Len(t, srcs, 5)

	src, ok := srcs.Match("load_settings")
	require.True(t, ok)
	assert.Equal(t, seminal.FileOpen, src.Kind)

	// Built-in sources come first.
	src, ok = srcs.Match("read_line_scanf")
	require.True(t, ok)
	assert.Equal(t, seminal.ScalarReader, src.Kind)

	d, err := cfg.Detector(nil, irutil.Discard())
	require.NoError(t, err)
	assert.Len(t, d.Sources, 2)
	assert.NotNil(t, d.Filter)
}

func TestLoadPartial(t *testing.T) {
	cfg, err := Load("testdata/partial.yaml")
	require.NoError(t, err)

	assert.Equal(t, seminal.DefaultOutput, cfg.Output)
	assert.True(t, cfg.GoSources)

	f, err := cfg.ReportFormat()
	require.NoError(t, err)
	assert.Equal(t, seminal.FormatCSV, f)
}

func TestLoadErrors(t *testing.T) {
	for _, file := range []string{
		"testdata/missing.yaml",
		"testdata/bad-kind.yaml",
		"testdata/bad-filter.yaml",
	} {
		t.Run(file, func(t *testing.T) {
			_, err := Load(file)
			assert.Error(t, err)
		})
	}
}
