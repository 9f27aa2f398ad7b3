package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/picatz/seminal/irutil"
	"github.com/picatz/seminal/ssair"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	patterns := os.Args[1:]

	if len(patterns) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s <patterns>\n", os.Args[0])
		os.Exit(1)
	}

	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get current working directory: %v\n", err.Error())
		os.Exit(1)
	}

	// package load errors are reported as warnings
	ctx = irutil.WithLogger(ctx, irutil.NewLogger(irutil.LogLevelInfo, os.Stderr))

	pkgs, err := ssair.Load(ctx, dir, patterns...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err.Error())
		os.Exit(1)
	}

	for _, fn := range ssair.SourceFunctions(pkgs) {
		lowered, err := ssair.Lower(fn)
		if err != nil {
			// functions without a body, such as assembly stubs
			fmt.Fprintf(os.Stderr, "%v\n", err.Error())
			continue
		}
		lowered.WriteTo(os.Stdout)
		fmt.Fprintln(os.Stdout)
	}
}
