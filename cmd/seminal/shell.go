package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
)

// session is the state of an interactive shell.
type session struct {
	settings *settings
	target   *target
	prog     *ir.Program
	report   *seminal.Report
}

func (s *session) functionNames() []string {
	if s.prog == nil {
		return nil
	}
	names := make([]string, 0, len(s.prog.Functions))
	for _, fn := range s.prog.Functions {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	return names
}

// makeRawTerminal returns a raw terminal and a function to restore the
// terminal to its previous state, which should be called when the terminal
// is no longer needed (typically in a defer).
func makeRawTerminal() (*term.Terminal, func(), error) {
	oldState, err := term.MakeRaw(0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w", err)
	}

	termWidth, termHeight, err := term.GetSize(0)
	if err != nil {
		term.Restore(0, oldState)
		return nil, nil, fmt.Errorf("%w", err)
	}

	termReadWriter := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}

	t := term.NewTerminal(termReadWriter, "") // Will set the prompt later.

	err = t.SetSize(termWidth, termHeight)
	if err != nil {
		term.Restore(0, oldState)
		return nil, nil, fmt.Errorf("%w", err)
	}

	return t, func() { term.Restore(0, oldState) }, nil
}

func clearScreen(bt *bufio.Writer) error {
	// Clear the screen, then move to the top left.
	if _, err := bt.WriteString("\033[2J\033[H"); err != nil {
		return fmt.Errorf("%w", err)
	}
	return bt.Flush()
}

type commandArg struct {
	name     string
	desc     string
	optional bool
}

type commandFlag struct {
	name string
	desc string
}

type commandFn func(
	ctx context.Context,
	s *session,
	bt *bufio.Writer,
	args []string,
	flags map[string]string,
) error

type command struct {
	name string
	desc string
	args []*commandArg

	flags []*commandFlag
	fn    commandFn

	// completesFunctions marks commands whose first argument is a function.
	completesFunctions bool
}

func (c *command) nRequiredArgs() int {
	var n int
	for _, arg := range c.args {
		if !arg.optional {
			n++
		}
	}
	return n
}

func (c *command) help() string {
	var help strings.Builder

	help.WriteString(styleCommand.Render(c.name) + " ")

	for _, arg := range c.args {
		if arg.optional {
			help.WriteString(styleArgument.Render("[") + styleFaint.Render(fmt.Sprintf("<%s>", arg.name)) + styleArgument.Render("] "))
			continue
		}
		help.WriteString(styleArgument.Render(fmt.Sprintf("<%s> ", arg.name)))
	}

	for _, flag := range c.flags {
		help.WriteString(styleFlag.Render(fmt.Sprintf("--%s ", flag.name)))
	}

	help.WriteString(styleFaint.Render(c.desc) + "\n")

	return help.String()
}

type commands []*command

func (c commands) help() string {
	var help strings.Builder
	for _, cmd := range c {
		help.WriteString(styleFaint.Render("- ") + cmd.help())
	}
	help.WriteString("\n")
	return help.String()
}

func (c commands) lookup(name string) *command {
	for _, cmd := range c {
		if cmd.name == name {
			return cmd
		}
	}
	return nil
}

func (c commands) eval(ctx context.Context, s *session, bt *bufio.Writer, input string) error {
	defer bt.Flush()

	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}

	cmd := c.lookup(fields[0])
	if cmd == nil {
		bt.WriteString("unknown command: " + fields[0] + "\n")
		return nil
	}

	flagSet := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	flagSet.SetOutput(bt)
	flagSet.Usage = func() {
		bt.WriteString("usage: " + cmd.help())
	}
	for _, f := range cmd.flags {
		flagSet.String(f.name, "", f.desc)
	}

	if err := flagSet.Parse(fields[1:]); err != nil {
		return nil
	}

	flags := make(map[string]string)
	flagSet.Visit(func(f *flag.Flag) {
		flags[f.Name] = f.Value.String()
	})

	if len(flagSet.Args()) < cmd.nRequiredArgs() {
		bt.WriteString("not enough arguments, expected " + styleNumber.Render(fmt.Sprintf("%d", cmd.nRequiredArgs())) + " but got " + styleNumber.Render(fmt.Sprintf("%d", len(flagSet.Args()))) + "\n")
		bt.WriteString("usage: " + cmd.help())
		return nil
	}

	return cmd.fn(ctx, s, bt, flagSet.Args(), flags)
}

func writeFailure(bt *bufio.Writer, msg string, err error) {
	bt.WriteString("✗ " + styleWarning.Render(msg))
	if err != nil {
		bt.WriteString(styleSubtle.Render(": ") + err.Error())
	}
	bt.WriteString("\n")
}

// requireProgram reports whether a program is loaded, telling the user
// when it is not.
func requireProgram(s *session, bt *bufio.Writer) bool {
	if s.prog == nil {
		bt.WriteString("no program is loaded, use " + styleCommand.Render("load") + " first\n")
		return false
	}
	return true
}

// shellFunctions resolves a function argument, printing candidates when
// nothing matches.
func shellFunctions(s *session, bt *bufio.Writer, pattern string) []*ir.Function {
	fns, err := selectFunctions(s.prog, pattern)
	if err != nil {
		writeFailure(bt, "no matching function", err)
		names := s.functionNames()
		for i, name := range names {
			if i >= 10 {
				bt.WriteString(styleSubtle.Render("  ... and ") + styleNumber.Render(fmt.Sprintf("%d", len(names)-10)) + styleSubtle.Render(" more") + "\n")
				break
			}
			bt.WriteString(styleSubtle.Render("  ") + styleFunction(name) + "\n")
		}
		return nil
	}
	return fns
}

var builtinCommandExit = &command{
	name: "exit",
	desc: "exit the shell",
	fn: func(context.Context, *session, *bufio.Writer, []string, map[string]string) error {
		return io.EOF
	},
}

var builtinCommandClear = &command{
	name: "clear",
	desc: "clear the screen",
	fn: func(_ context.Context, _ *session, bt *bufio.Writer, _ []string, _ map[string]string) error {
		return clearScreen(bt)
	},
}

var builtinCommandLoad = &command{
	name: "load",
	desc: "load a C file, a directory, a Go module or a GitHub repository",
	args: []*commandArg{
		{name: "target", desc: "the target to load"},
		{name: "patterns", desc: "comma separated Go package patterns (default ./...)", optional: true},
	},
	flags: []*commandFlag{
		{name: "lang", desc: "source language: auto, c or go"},
	},
	fn: func(ctx context.Context, s *session, bt *bufio.Writer, args []string, flags map[string]string) error {
		lang := s.settings.lang
		if v, ok := flags["lang"]; ok {
			l, err := parseLanguage(v)
			if err != nil {
				writeFailure(bt, "invalid language", err)
				return nil
			}
			lang = l
		}

		var patterns []string
		if len(args) > 1 {
			for _, p := range strings.Split(args[1], ",") {
				if p = strings.TrimSpace(p); p != "" {
					patterns = append(patterns, p)
				}
			}
		}

		ctx = irutil.WithLogger(ctx, s.settings.logger)

		t, err := resolveTarget(ctx, args[0], lang)
		if err != nil {
			writeFailure(bt, "failed to resolve target", err)
			return nil
		}
		if t.remote != "" {
			bt.WriteString("cloned " + styleNumber.Render(t.remote) + " to " + styleNumber.Render(t.path) + " at " + styleNumber.Render(t.head) + "\n")
			bt.Flush()
		}

		prog, err := t.load(ctx, patterns...)
		if err != nil {
			writeFailure(bt, "failed to load target", err)
			return nil
		}

		s.target = t
		s.prog = prog
		s.report = nil

		bt.WriteString("✓ " + styleSuccess.Render("loaded ") + styleNumber.Render(fmt.Sprintf("%d", len(prog.Functions))) + styleSuccess.Render(" functions") + styleSubtle.Render(" ("+t.lang.String()+")") + "\n")
		return nil
	},
}

var builtinCommandFuncs = &command{
	name: "funcs",
	desc: "list loaded functions",
	args: []*commandArg{
		{name: "pattern", desc: "only list functions matching the pattern", optional: true},
	},
	fn: func(_ context.Context, s *session, bt *bufio.Writer, args []string, _ map[string]string) error {
		if !requireProgram(s, bt) {
			return nil
		}

		fns := s.prog.Functions
		if len(args) > 0 {
			if fns = shellFunctions(s, bt, args[0]); fns == nil {
				return nil
			}
		}

		for _, fn := range fns {
			loc := ""
			if fn.File != "" {
				loc = styleSubtle.Render(fmt.Sprintf(" %s:%d", fn.File, fn.Line))
			}
			bt.WriteString(styleFunction(fn.Name) + loc + "\n")
		}
		return nil
	},
}

var builtinCommandIR = &command{
	name: "ir",
	desc: "print the lowered IR of a function",
	args: []*commandArg{
		{name: "function", desc: "the function to print"},
	},
	completesFunctions: true,
	fn: func(_ context.Context, s *session, bt *bufio.Writer, args []string, _ map[string]string) error {
		if !requireProgram(s, bt) {
			return nil
		}
		for _, fn := range shellFunctions(s, bt, args[0]) {
			fn.WriteTo(bt)
			bt.WriteString("\n")
		}
		return nil
	},
}

var builtinCommandLoops = &command{
	name: "loops",
	desc: "print the natural loops of a function",
	args: []*commandArg{
		{name: "function", desc: "the function to inspect"},
	},
	completesFunctions: true,
	fn: func(_ context.Context, s *session, bt *bufio.Writer, args []string, _ map[string]string) error {
		if !requireProgram(s, bt) {
			return nil
		}
		for _, fn := range shellFunctions(s, bt, args[0]) {
			loops := ir.Loops(fn)
			bt.WriteString(styleFunction(fn.Name) + " " + styleFaint.Render(fmt.Sprintf("%d loops", len(loops))) + "\n")
			for _, l := range loops {
				var blocks []string
				for _, id := range l.Blocks {
					blocks = append(blocks, fn.Block(id).Name)
				}
				bt.WriteString("  " + styleNumber.Render(fn.Block(l.Header).Name) + styleArrow.Render(" ⟲ ") + styleSubtle.Render(strings.Join(blocks, ", ")) + "\n")
			}
		}
		return nil
	},
}

var builtinCommandInspect = &command{
	name: "inspect",
	desc: "show every cataloged variable of a function and which are input bound",
	args: []*commandArg{
		{name: "function", desc: "the function to inspect"},
	},
	completesFunctions: true,
	fn: func(_ context.Context, s *session, bt *bufio.Writer, args []string, _ map[string]string) error {
		if !requireProgram(s, bt) {
			return nil
		}

		d, err := s.settings.detector(s.target)
		if err != nil {
			writeFailure(bt, "invalid input sources", err)
			return nil
		}

		for _, fn := range shellFunctions(s, bt, args[0]) {
			insp := d.Inspect(fn)
			bt.WriteString(styleFunction(fn.Name) + "\n")
			for _, r := range insp.Catalog.Records() {
				mark := styleFaint.Render("·")
				name := r.Name
				if insp.IO.Has(r.Name) {
					mark = styleWarning.Render("IO")
					name = styleVariable.Render(r.Name)
				}
				bt.WriteString(fmt.Sprintf("  %s %s %s\n", mark, name, styleNumber.Render(fmt.Sprint(r.Line))))
			}
		}
		return nil
	},
}

var builtinCommandAnalyze = &command{
	name: "analyze",
	desc: "find input-influenced variables",
	args: []*commandArg{
		{name: "function", desc: "only analyze functions matching the pattern", optional: true},
	},
	completesFunctions: true,
	fn: func(ctx context.Context, s *session, bt *bufio.Writer, args []string, _ map[string]string) error {
		if !requireProgram(s, bt) {
			return nil
		}

		fns := s.prog.Functions
		if len(args) > 0 {
			if fns = shellFunctions(s, bt, args[0]); fns == nil {
				return nil
			}
		}

		d, err := s.settings.detector(s.target)
		if err != nil {
			writeFailure(bt, "invalid input sources", err)
			return nil
		}

		report, err := d.Analyze(irutil.WithLogger(ctx, s.settings.logger), fns)
		if err != nil {
			writeFailure(bt, "analysis interrupted", err)
			return nil
		}
		s.report = report

		writeReport(bt, report)
		return nil
	},
}

var builtinCommandReport = &command{
	name: "report",
	desc: "print the last report as JSON",
	fn: func(_ context.Context, s *session, bt *bufio.Writer, _ []string, _ map[string]string) error {
		if s.report == nil {
			bt.WriteString("no report yet, use " + styleCommand.Render("analyze") + " first\n")
			return nil
		}
		if err := s.report.Encode(bt, seminal.FormatJSON); err != nil {
			writeFailure(bt, "failed to encode report", err)
		}
		return nil
	},
}

var builtinCommandSave = &command{
	name: "save",
	desc: "save the last report",
	args: []*commandArg{
		{name: "path", desc: "the file to write (default from the configuration)", optional: true},
	},
	flags: []*commandFlag{
		{name: "format", desc: "json, yaml, msgpack or csv"},
	},
	fn: func(_ context.Context, s *session, bt *bufio.Writer, args []string, flags map[string]string) error {
		if s.report == nil {
			bt.WriteString("no report yet, use " + styleCommand.Render("analyze") + " first\n")
			return nil
		}

		path := s.settings.cfg.Output
		format, err := s.settings.cfg.ReportFormat()
		if len(args) > 0 {
			path = args[0]
			format, err = seminal.FormatFromPath(path), nil
		}
		if v, ok := flags["format"]; ok {
			format, err = seminal.ParseFormat(v)
		}
		if err != nil {
			writeFailure(bt, "invalid format", err)
			return nil
		}

		if err := s.report.Save(path, format); err != nil {
			writeFailure(bt, "failed to save report", err)
			return nil
		}
		bt.WriteString("✓ " + styleSuccess.Render("saved ") + styleNumber.Render(fmt.Sprintf("%d", s.report.Len())) + styleSuccess.Render(" functions to ") + styleArgument.Render(path) + "\n")
		return nil
	},
}

var builtinCommands = commands{
	builtinCommandExit,
	builtinCommandClear,
	builtinCommandLoad,
	builtinCommandFuncs,
	builtinCommandIR,
	builtinCommandLoops,
	builtinCommandInspect,
	builtinCommandAnalyze,
	builtinCommandReport,
	builtinCommandSave,
}

// complete implements tab completion: command names, paths for load and
// function names for commands that take one.
func complete(s *session, line string) (string, bool) {
	if strings.HasPrefix(line, "load ") {
		return completePath("load ", strings.TrimPrefix(line, "load "))
	}

	if name, arg, ok := strings.Cut(line, " "); ok {
		cmd := builtinCommands.lookup(name)
		if cmd == nil || !cmd.completesFunctions || strings.Contains(arg, " ") {
			return line, false
		}
		for _, fn := range s.functionNames() {
			if strings.HasPrefix(fn, arg) {
				return name + " " + fn, true
			}
		}
		return line, false
	}

	for _, cmd := range builtinCommands {
		if strings.HasPrefix(cmd.name, line) {
			return cmd.name, true
		}
	}
	return line, false
}

func completePath(prefix, path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return prefix + path, true
	}

	trimmed := strings.TrimSuffix(path, "/")
	parent := filepath.Dir(trimmed)
	base := filepath.Base(trimmed)

	entries, err := os.ReadDir(parent)
	if err != nil {
		return prefix + path, false
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), base) {
			return prefix + filepath.Join(parent, entry.Name()), true
		}
	}
	return prefix + path, false
}

func startShell(ctx context.Context, s *session) error {
	t, restore, err := makeRawTerminal()
	if err != nil {
		return err
	}
	defer restore()

	bt := bufio.NewWriter(t)

	// Log through the terminal, which translates line endings in raw mode.
	s.settings.logger = irutil.NewLogger(s.settings.logger.Level(), t)

	t.AutoCompleteCallback = func(line string, pos int, key rune) (string, int, bool) {
		if key != '\t' {
			return line, pos, false
		}
		newLine, ok := complete(s, line)
		if !ok {
			return line, pos, false
		}
		return newLine, len(newLine), true
	}

	bt.WriteString(styleHeader.Render("Commands") + styleSubtle.Render(" (tab complete)") + "\n\n")
	bt.WriteString(builtinCommands.help())
	bt.Flush()

	for {
		// Move to left edge.
		bt.WriteString("\033[0G")
		bt.WriteString(styleBold.Render("> "))
		bt.Flush()

		input, err := t.ReadLine()
		if err != nil {
			return err
		}

		if err := builtinCommands.eval(ctx, s, bt, input); err != nil {
			return err
		}
	}
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return startShell(cmd.Context(), &session{settings: s})
		},
	}
}
