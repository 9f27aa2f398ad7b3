// Package config loads the YAML configuration of the seminal tools.
//
// A configuration file looks like:
//
//	output: seminal-values.json
//	format: json
//	log-level: info
//	function-filter: "^main\\."
//	go-sources: true
//	input-sources:
//	  - pattern: read_line
//	    kind: stream-reader
//	  - pattern: "exact:load_settings"
//	    kind: file-open
//
// Every key is optional.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/irutil"
)

// SourceSpec configures an additional input source. Pattern uses the syntax
// of irutil.ParseFunctionMatcher and Kind the names of seminal.SourceKind.
type SourceSpec struct {
	Pattern string `yaml:"pattern"`
	Kind    string `yaml:"kind"`
}

// Config holds the options of an analysis run.
// If some field is not defined in the config file, it keeps its default.
type Config struct {
	sourceFile string

	// Output is the file the report is saved to.
	Output string `yaml:"output"`

	// Format is the report format. When empty it is picked from the
	// extension of Output.
	Format string `yaml:"format"`

	// LogLevel is one of silent, info, debug or trace.
	LogLevel string `yaml:"log-level"`

	// FunctionFilter is a regular expression selecting the functions to
	// analyze by name. Empty selects all functions.
	FunctionFilter string `yaml:"function-filter"`

	// InputSources are matched after the built-in sources.
	InputSources []SourceSpec `yaml:"input-sources"`

	// GoSources adds the Go standard library input functions when
	// analyzing Go code.
	GoSources bool `yaml:"go-sources"`

	functionFilterRegex *regexp.Regexp
}

// NewDefault returns the default configuration.
func NewDefault() *Config {
	return &Config{
		Output:       seminal.DefaultOutput,
		LogLevel:     irutil.LogLevelInfo.String(),
		InputSources: []SourceSpec{},
		GoSources:    true,
	}
}

// Load reads a config from filename. Unset keys keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return cfg, nil
}

// Validate checks every option and compiles the function filter.
func (c *Config) Validate() error {
	if c.Output == "" {
		c.Output = seminal.DefaultOutput
	}
	if _, err := c.ReportFormat(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Sources(nil); err != nil {
		return err
	}

	c.functionFilterRegex = nil
	if c.FunctionFilter != "" {
		r, err := regexp.Compile(c.FunctionFilter)
		if err != nil {
			return fmt.Errorf("function-filter: %w", err)
		}
		c.functionFilterRegex = r
	}
	return nil
}

// SourceFile returns the file the config was loaded from, if any.
func (c *Config) SourceFile() string {
	return c.sourceFile
}

// ReportFormat returns the configured report format.
func (c *Config) ReportFormat() (seminal.Format, error) {
	if c.Format == "" {
		return seminal.FormatFromPath(c.Output), nil
	}
	return seminal.ParseFormat(c.Format)
}

// Level returns the configured log level.
func (c *Config) Level() (irutil.LogLevel, error) {
	return irutil.ParseLogLevel(c.LogLevel)
}

// FunctionFilterRegex returns the compiled function filter, or nil when
// every function is selected.
func (c *Config) FunctionFilterRegex() *regexp.Regexp {
	if c.functionFilterRegex == nil && c.FunctionFilter != "" {
		c.functionFilterRegex, _ = regexp.Compile(c.FunctionFilter)
	}
	return c.functionFilterRegex
}

// Sources returns base followed by the configured input sources.
func (c *Config) Sources(base seminal.InputSources) (seminal.InputSources, error) {
	srcs := append(seminal.InputSources{}, base...)
	for i, spec := range c.InputSources {
		kind, err := seminal.ParseSourceKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("input-sources[%d]: %w", i, err)
		}
		src, err := seminal.NewInputSource(spec.Pattern, kind)
		if err != nil {
			return nil, fmt.Errorf("input-sources[%d]: %w", i, err)
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// Detector returns a detector configured with base followed by the
// configured input sources, the function filter and logger.
func (c *Config) Detector(base seminal.InputSources, logger *irutil.Logger) (*seminal.Detector, error) {
	srcs, err := c.Sources(base)
	if err != nil {
		return nil, err
	}
	return &seminal.Detector{
		Sources: srcs,
		Filter:  c.FunctionFilterRegex(),
		Logger:  logger,
	}, nil
}
