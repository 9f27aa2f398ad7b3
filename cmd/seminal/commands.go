package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/config"
	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
)

// settings are the options shared by every command: the configuration
// file, overridden by flags.
type settings struct {
	cfg    *config.Config
	logger *irutil.Logger
	lang   language
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()

	cfg := config.NewDefault()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	override := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	override("log-level", &cfg.LogLevel)
	override("output", &cfg.Output)
	override("format", &cfg.Format)
	override("filter", &cfg.FunctionFilter)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	langFlag, _ := flags.GetString("lang")
	lang, err := parseLanguage(langFlag)
	if err != nil {
		return nil, err
	}

	return &settings{
		cfg:    cfg,
		logger: irutil.NewLogger(level, cmd.ErrOrStderr()),
		lang:   lang,
	}, nil
}

func (s *settings) detector(t *target) (*seminal.Detector, error) {
	return s.cfg.Detector(t.baseSources(s.cfg.GoSources), s.logger)
}

// loadProgram resolves and lowers the target named by arg.
func loadProgram(cmd *cobra.Command, s *settings, arg string, patterns ...string) (*target, *ir.Program, error) {
	ctx := irutil.WithLogger(cmd.Context(), s.logger)

	t, err := resolveTarget(ctx, arg, s.lang)
	if err != nil {
		return nil, nil, err
	}
	if t.remote != "" {
		s.logger.Step("Cloned "+t.remote, t.path, t.head)
	}

	prog, err := t.load(ctx, patterns...)
	if err != nil {
		return nil, nil, err
	}
	return t, prog, nil
}

// selectFunctions returns the functions of prog matching pattern, which
// uses the syntax of irutil.ParseFunctionMatcher. An exact name always
// wins over other matches.
func selectFunctions(prog *ir.Program, pattern string) ([]*ir.Function, error) {
	if fn := prog.Lookup(pattern); fn != nil {
		return []*ir.Function{fn}, nil
	}

	m, err := irutil.ParseFunctionMatcher(pattern)
	if err != nil {
		return nil, err
	}

	var fns []*ir.Function
	for _, fn := range prog.Functions {
		if m.Match(fn.Name) {
			fns = append(fns, fn)
		}
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("no function matches %s", m)
	}
	return fns, nil
}

// writeReport renders a report for the terminal.
func writeReport(w io.Writer, report *seminal.Report) {
	if report.Len() == 0 {
		fmt.Fprintln(w, styleSubtle.Render("no input-influenced variables found"))
		return
	}

	for _, fr := range report.Functions {
		fmt.Fprintln(w, styleFunction(fr.Function))
		for _, v := range fr.ImportantVariables {
			fmt.Fprintf(w, "  %s %s %s %s\n",
				styleArrow.Render("→"),
				styleVariable.Render(v.Name),
				styleSubtle.Render("line"),
				styleNumber.Render(fmt.Sprint(v.Line)),
			)
		}
	}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <target> [patterns...]",
		Short: "Analyze a C file, a directory or a Go module and save the report",
		Long: strings.TrimSpace(`
Analyze lowers every function of the target and reports the variables bound
to input functions. The target is a C file, a directory of C files, a Go
module or a GitHub repository URL. Patterns select Go packages (default ./...).`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			t, prog, err := loadProgram(cmd, s, args[0], args[1:]...)
			if err != nil {
				return err
			}

			d, err := s.detector(t)
			if err != nil {
				return err
			}

			ctx := irutil.WithLogger(cmd.Context(), s.logger)
			report, err := d.Analyze(ctx, prog.Functions)
			if err != nil {
				return err
			}

			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				writeReport(cmd.OutOrStdout(), report)
			}

			format, err := s.cfg.ReportFormat()
			if err != nil {
				return err
			}
			if err := report.Save(s.cfg.Output, format); err != nil {
				return err
			}

			s.logger.Step("Saved report", s.cfg.Output, fmt.Sprintf("%d functions", report.Len()))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", seminal.DefaultOutput, "file to save the report to")
	cmd.Flags().StringP("format", "f", "", "report format: json, yaml, msgpack or csv (default from the output extension)")
	cmd.Flags().String("filter", "", "regular expression selecting the functions to analyze")
	cmd.Flags().BoolP("quiet", "q", false, "do not print the report")

	return cmd
}

func newIRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ir <target> [function]",
		Short: "Print the lowered IR of a target",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			_, prog, err := loadProgram(cmd, s, args[0])
			if err != nil {
				return err
			}

			fns := prog.Functions
			if len(args) == 2 {
				fns, err = selectFunctions(prog, args[1])
				if err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			for i, fn := range fns {
				if i > 0 {
					fmt.Fprintln(w)
				}
				if _, err := fn.WriteTo(w); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDOTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dot <target> <function>",
		Short: "Print the control flow graph of a function in DOT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			_, prog, err := loadProgram(cmd, s, args[0])
			if err != nil {
				return err
			}

			fns, err := selectFunctions(prog, args[1])
			if err != nil {
				return err
			}
			if len(fns) > 1 {
				var names []string
				for _, fn := range fns {
					names = append(names, fn.Name)
				}
				return fmt.Errorf("%q matches %d functions: %s", args[1], len(fns), strings.Join(names, ", "))
			}

			return irutil.WriteDOT(cmd.OutOrStdout(), fns[0])
		},
	}
}
