// Command seminal finds the variables of C and Go programs that are
// influenced by input functions such as scanf, fopen and getc.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	initStyles()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, styleError.Render("error:")+" "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seminal",
		Short:         "Find variables influenced by program input",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "", "log level: silent, info, debug or trace")
	root.PersistentFlags().String("lang", "auto", "source language of the target: auto, c or go")

	root.AddCommand(
		newAnalyzeCmd(),
		newIRCmd(),
		newDOTCmd(),
		newShellCmd(),
	)

	return root
}
