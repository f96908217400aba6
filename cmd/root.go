package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sse-sim/sse-sim/sim"
	"github.com/sse-sim/sse-sim/sim/trace"
	"github.com/sse-sim/sse-sim/sim/tree"
)

var (
	// CLI flags
	scenarioPath  string // Scenario YAML file
	seed          uint64 // Master seed override
	workers       int    // Concurrent replicate workers (0 = GOMAXPROCS)
	logLevel      string // Log verbosity level
	reconstructed bool   // Print reconstructed instead of complete trees
	annotate      bool   // Annotate Newick nodes with [&state=k]
	outPath       string // Newick output file ("" = stdout)
	traceLevel    string // Attempt trace verbosity
	summary       bool   // Print the batch summary to stderr
	metricsPath   string // Write Prometheus metrics in text format to this file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "sse-sim",
	Short: "Stochastic simulator for state-dependent speciation-extinction trees",
}

// runOptions carries everything a run needs, so tests can drive it without
// going through cobra.
type runOptions struct {
	Scenario      string
	Seed          *uint64
	Workers       int
	Reconstructed bool
	Annotate      bool
	TraceLevel    string
	Summary       bool
	MetricsPath   string
}

// runCmd simulates a batch of trees from a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate trees from a scenario and print them in Newick format",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		opts := runOptions{
			Scenario:      scenarioPath,
			Workers:       workers,
			Reconstructed: reconstructed,
			Annotate:      annotate,
			TraceLevel:    traceLevel,
			Summary:       summary,
			MetricsPath:   metricsPath,
		}
		if cmd.Flags().Changed("seed") {
			opts.Seed = &seed
		}

		out := io.Writer(os.Stdout)
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				logrus.Fatalf("Could not create output file: %v", err)
			}
			defer f.Close()
			out = f
		}

		startTime := time.Now()
		if err := runSimulation(cmd.Context(), opts, out, os.Stderr); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// validateCmd loads and checks a scenario without simulating
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario file for configuration errors",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg, err := loadConfig(scenarioPath)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d sample(s) x %d replicate(s), stop=%s)\n",
			scenarioPath, cfg.N, cfg.NR, cfg.Stop)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadConfig(path string) (*sim.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("no scenario given; use --config")
	}
	sc, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	cfg, _, err := sc.Build()
	return cfg, err
}

// runSimulation runs the batch described by opts, writes one Newick tree per
// line to out and, if requested, the summary to report.
func runSimulation(ctx context.Context, opts runOptions, out, report io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !trace.IsValidTraceLevel(opts.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", opts.TraceLevel)
	}
	sc, err := LoadScenario(opts.Scenario)
	if err != nil {
		return err
	}
	if opts.Seed != nil {
		sc.Seed = *opts.Seed
	}
	cfg, stash, err := sc.Build()
	if err != nil {
		return err
	}
	cfg.Workers = opts.Workers

	level := trace.TraceLevel(opts.TraceLevel)
	if opts.Summary && level != trace.TraceLevelAttempts {
		level = trace.TraceLevelAttempts
	}
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: level})
	reg := prometheus.NewRegistry()
	metrics := sim.NewMetrics(reg)

	logrus.Infof("Starting %d sample(s) x %d replicate(s), stop=%s, seed=%d", cfg.N, cfg.NR, cfg.Stop, cfg.Seed)
	b, err := sim.NewBatch(cfg, stash, metrics, st)
	if err != nil {
		return err
	}
	trees, runErr := b.Run(ctx)

	if opts.MetricsPath != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsPath, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	if runErr != nil {
		if opts.Summary {
			printTraceSummary(report, st)
		}
		return runErr
	}

	for _, tr := range trees {
		if err := writeNewick(out, tr, opts); err != nil {
			return err
		}
	}
	if opts.Summary {
		bs, err := sim.SummarizeTrees(trees)
		if err != nil {
			return err
		}
		st.Sort()
		bs.Print(report, trace.Summarize(st))
	}
	return nil
}

func writeNewick(w io.Writer, tr *tree.Tree, opts runOptions) error {
	if opts.Reconstructed {
		rec, err := tr.Reconstructed()
		if err != nil {
			return err
		}
		tr = rec
	}
	_, err := fmt.Fprintln(w, tr.Newick(opts.Annotate))
	return err
}

func printTraceSummary(w io.Writer, st *trace.SimulationTrace) {
	ts := trace.Summarize(st)
	fmt.Fprintf(w, "Attempts: %d, accepted: %d, recovered: %d, terminal failures: %d\n",
		ts.TotalAttempts, ts.Accepted, ts.Recovered, ts.TerminalFailures)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "config", "", "Scenario YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Uint64Var(&seed, "seed", 0, "Master seed (overrides the scenario's seed)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent replicate workers (0 = GOMAXPROCS)")
	runCmd.Flags().BoolVar(&reconstructed, "reconstructed", false, "Print reconstructed trees (observed tips only)")
	runCmd.Flags().BoolVar(&annotate, "annotate", false, "Annotate nodes with their state as [&state=k]")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write Newick trees to this file instead of stdout")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Attempt trace level (none, attempts)")
	runCmd.Flags().BoolVar(&summary, "summary", true, "Print the batch summary to stderr")
	runCmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus metrics in text format to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
