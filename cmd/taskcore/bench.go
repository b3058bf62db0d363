package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tupyy/taskcore/internal/bench"
	"github.com/tupyy/taskcore/internal/config"
)

func newBenchCommand(v *viper.Viper, defaults *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare the serial, per-task and work-stealing executors on a workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			defer func() { _ = logger.Sync() }()

			report, err := bench.Run(cmd.Context(), cfg)
			if err != nil {
				zap.S().Named("bench").Errorw("bench failed", "error", err)
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("workers", defaults.Scheduler.Workers, "Scheduler workers, 0 for one per CPU")
	flags.Int("max-pending", defaults.Scheduler.MaxPending, "Cap on queued and running tasks, 0 for none")
	flags.Int("steal-batch", defaults.Scheduler.StealBatch, "Max tasks moved from the injector per pull")
	flags.String("workload", defaults.Bench.Workload, "Workload: skewed or uniform")
	flags.Int("tasks", defaults.Bench.Tasks, "Number of tasks")
	flags.Int("big-cost", defaults.Bench.BigCost, "Cost units of the expensive task (skewed)")
	flags.Duration("cost-unit", defaults.Bench.CostUnit, "Duration of one cost unit (skewed)")
	flags.Duration("compute-time", defaults.Bench.ComputeTime, "Duration of one task (uniform)")
	flags.StringSlice("variants", defaults.Bench.Variants, "Executors to compare")

	bindFlags(v, flags, map[string]string{
		"scheduler.workers":     "workers",
		"scheduler.max-pending": "max-pending",
		"scheduler.steal-batch": "steal-batch",
		"bench.workload":        "workload",
		"bench.tasks":           "tasks",
		"bench.big-cost":        "big-cost",
		"bench.cost-unit":       "cost-unit",
		"bench.compute-time":    "compute-time",
		"bench.variants":        "variants",
	})

	return cmd
}

func printReport(w io.Writer, r *bench.Report) {
	title := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	ko := color.New(color.FgRed, color.Bold)

	title.Fprintf(w, "workload=%s tasks=%d workers=%d\n", r.Workload, r.Tasks, r.Workers)
	if r.Bound > 0 {
		fmt.Fprintf(w, "balanced bound: %s\n", r.Bound)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tELAPSED\tTASKS\tFAILED")
	for _, m := range r.Measurements {
		failed := ok.Sprint(m.Failed)
		if m.Failed > 0 {
			failed = ko.Sprint(m.Failed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.Variant, m.Elapsed.Round(time.Millisecond), m.Tasks, failed)
	}
	_ = tw.Flush()

	for _, variant := range []string{config.VariantPerTask, config.VariantScheduler} {
		if speedup, found := r.Speedup(config.VariantSerial, variant); found {
			fmt.Fprintf(w, "%s speedup over serial: %s\n", variant, ok.Sprintf("%.2fx", speedup))
		}
	}
}

// bindFlags maps configuration keys onto the flags that set them.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}
