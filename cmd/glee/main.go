package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glee",
		Short: "Compositional symbolic execution of Go code",
		Long: `Glee explores Go functions symbolically and records a summary of
every path: its precondition, its outcome and its effects on globals
and pointer arguments. Summaries of callees are reused at call sites.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newSummarizeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("glee version %s\n", Version)
			cmd.Printf("Go version: %s\n", runtime.Version())
		},
	}
}
