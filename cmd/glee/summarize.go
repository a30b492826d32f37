package main

import (
	"fmt"
	"io"
	"regexp"
	"sort"

	"github.com/glee-cse/glee/cse"
	"github.com/glee-cse/glee/internal/logging"
	"github.com/glee-cse/glee/summary"
	"github.com/glee-cse/glee/z3"
	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

type summarizeOptions struct {
	config   string
	strategy string
	haltOn   []string
	run      string
	format   string
}

func newSummarizeCmd() *cobra.Command {
	var opts summarizeOptions

	cmd := &cobra.Command{
		Use:   "summarize [packages...]",
		Short: "Summarize the functions of one or more packages",
		Long: `Summarize explores every function declared in the given packages and
prints its summary. Calls between summarized functions are answered from
the callee's summary unless composition is disabled in the config.

Strategies:
  bu    bottom-up, unconstrained arguments (default)
  ctx   bottom-up narrowed by argument ranges seen at call sites
  td    top-down, effects recorded as ordered write logs
  none  summaries disabled`,
		Example: `  glee summarize ./...
  glee summarize --strategy td --run '^parse' ./internal/codec
  glee summarize --config glee.yaml --format yaml .`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "summary strategy (bu, ctx, td, none)")
	cmd.Flags().StringSliceVar(&opts.haltOn, "halt-on", nil, "error reasons that stop a function's exploration")
	cmd.Flags().StringVarP(&opts.run, "run", "r", "", "only summarize functions matching this regular expression")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format (table, yaml)")
	return cmd
}

func runSummarize(cmd *cobra.Command, args []string, opts *summarizeOptions) error {
	cfg, err := cse.LoadConfig(opts.config)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Strategy = cse.Strategy(opts.strategy)
	}
	if cmd.Flags().Changed("halt-on") {
		cfg.HaltOn = opts.haltOn
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var match *regexp.Regexp
	if opts.run != "" {
		if match, err = regexp.Compile(opts.run); err != nil {
			return fmt.Errorf("invalid --run pattern: %w", err)
		}
	}

	var write func(io.Writer, *summary.Summary) error
	switch opts.format {
	case "table":
		write = func(w io.Writer, s *summary.Summary) error {
			fmt.Fprintf(w, "%s\n", s.Function())
			if err := summary.WriteTable(w, s); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return nil
		}
	case "yaml":
		write = func(w io.Writer, s *summary.Summary) error {
			fmt.Fprintln(w, "---")
			return summary.NewReport(s).WriteYAML(w)
		}
	default:
		return fmt.Errorf("unknown format: %q", opts.format)
	}

	cfg.Log.Output = cmd.ErrOrStderr()
	logger := logging.NewWithComponent(cfg.Log, "summarize")

	prog, fns, err := loadFunctions(args)
	if err != nil {
		return err
	}

	solver := z3.NewSolver()
	solver.Timeout = cfg.SolverTimeout
	defer logging.DeferClose(logger, solver, "close solver")

	m, err := cse.NewManager(prog, solver, cfg, cse.WithLogger(logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, fn := range fns {
		if match != nil && !match.MatchString(fn.Name()) {
			continue
		}

		s, err := m.Summary(cmd.Context(), fn)
		if err != nil {
			return err
		} else if s == nil {
			fmt.Fprintln(out, "summaries disabled")
			return nil
		}
		if err := write(out, s); err != nil {
			return err
		}
	}

	stats := m.Stats()
	logger.Info().
		Int("runs", stats.Runs).
		Int("hits", stats.Hits).
		Int("halted", stats.Halted).
		Str("paths", stats.Paths.String()).
		Msg("done")
	return nil
}

// loadFunctions builds the program for patterns and returns the functions
// declared in the matched packages, ordered by name.
func loadFunctions(patterns []string) (*ssa.Program, []*ssa.Function, error) {
	initial, err := packages.Load(&packages.Config{Mode: packages.LoadAllSyntax}, patterns...)
	if err != nil {
		return nil, nil, err
	} else if packages.PrintErrors(initial) > 0 {
		return nil, nil, fmt.Errorf("packages contain errors")
	}

	prog, pkgs := ssautil.AllPackages(initial, ssa.BuilderMode(0))
	for i, pkg := range pkgs {
		if pkg == nil {
			return nil, nil, fmt.Errorf("cannot build SSA for package %s", initial[i])
		}
	}
	prog.Build()

	var fns []*ssa.Function
	for _, pkg := range pkgs {
		for _, member := range pkg.Members {
			fn, ok := member.(*ssa.Function)
			if !ok || fn.Blocks == nil || fn.Synthetic != "" || fn.TypeParams().Len() > 0 {
				continue
			} else if fn.Name() == "init" {
				continue
			}
			fns = append(fns, fn)
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	return prog, fns, nil
}
