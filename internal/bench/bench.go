package bench

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/tupyy/taskcore/internal/config"
	"github.com/tupyy/taskcore/internal/models"
	"github.com/tupyy/taskcore/internal/workload"
	"github.com/tupyy/taskcore/pkg/executor"
	"github.com/tupyy/taskcore/pkg/scheduler"
	"github.com/tupyy/taskcore/pkg/shared"
)

// Measurement is the wall-clock time of one executor on the workload.
type Measurement struct {
	Variant string
	Elapsed time.Duration
	Tasks   int
	Failed  int
	// Calls counts how many times the task function was entered.
	Calls int
}

type Report struct {
	Workload string
	Tasks    int
	Workers  int
	// Bound is the best time a perfectly balanced pool could reach on the
	// skewed workload. It is zero for the uniform one.
	Bound        time.Duration
	Measurements []Measurement
}

// Speedup returns how many times faster variant ran compared to baseline.
func (r *Report) Speedup(baseline, variant string) (float64, bool) {
	var b, v time.Duration
	for _, m := range r.Measurements {
		switch m.Variant {
		case baseline:
			b = m.Elapsed
		case variant:
			v = m.Elapsed
		}
	}
	if b == 0 || v == 0 {
		return 0, false
	}
	return float64(b) / float64(v), true
}

// Run executes the configured workload through each variant and checks that
// all of them produced the same results, compared by task id.
func Run(ctx context.Context, cfg *config.Configuration) (*Report, error) {
	sched, err := scheduler.NewScheduler(cfg.Scheduler.Options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	defer sched.Close()

	report := &Report{
		Workload: cfg.Bench.Workload,
		Tasks:    cfg.Bench.Tasks,
		Workers:  sched.Workers(),
	}

	switch cfg.Bench.Workload {
	case config.WorkloadUniform:
		calc := workload.Calculator{ComputeTime: cfg.Bench.ComputeTime}
		err = compare(ctx, report, sched, cfg.Bench.Variants, workload.Uniform(cfg.Bench.Tasks), calc.Calculate)
	default:
		jobs := workload.Skewed(cfg.Bench.Tasks, cfg.Bench.BigCost)
		report.Bound = time.Duration(workload.BalancedBound(jobs, sched.Workers())) * cfg.Bench.CostUnit
		runner := workload.Runner{Unit: cfg.Bench.CostUnit}
		err = compare(ctx, report, sched, cfg.Bench.Variants, jobs, runner.Run)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func compare[I any, O comparable](ctx context.Context, report *Report, sched *scheduler.Scheduler, variants []string, inputs []I, fn func(context.Context, I) (O, error)) error {
	log := zap.S().Named("bench")

	var reference []models.Result[O]
	var referenceName string
	for _, variant := range variants {
		calls := shared.New(0)
		start := time.Now()
		results, err := execute(ctx, sched, variant, inputs, counted(calls, fn))
		if err != nil {
			calls.Release()
			return fmt.Errorf("%s: %w", variant, err)
		}
		elapsed := time.Since(start)

		n, err := calls.Load()
		calls.Release()
		if err != nil {
			return fmt.Errorf("%s: call counter: %w", variant, err)
		}

		m := Measurement{Variant: variant, Elapsed: elapsed, Tasks: len(results), Calls: n}
		for _, r := range results {
			if r.Failed() {
				m.Failed++
			}
		}
		report.Measurements = append(report.Measurements, m)
		log.Infow("variant finished", "variant", variant, "elapsed", elapsed, "tasks", m.Tasks, "failed", m.Failed)

		results = models.SortByTaskID(results)
		if reference == nil {
			reference, referenceName = results, variant
			continue
		}
		if !sameResults(reference, results) {
			return fmt.Errorf("results of %s differ from %s", variant, referenceName)
		}
	}
	return nil
}

func counted[I, O any](calls *shared.Handle[int], fn func(context.Context, I) (O, error)) func(context.Context, I) (O, error) {
	return func(ctx context.Context, in I) (O, error) {
		h := calls.Clone()
		defer h.Release()
		if err := h.With(func(n *int) { *n++ }); err != nil {
			zap.S().Named("bench").Warnw("call counter not updated", "error", err)
		}
		return fn(ctx, in)
	}
}

func execute[I, O any](ctx context.Context, sched *scheduler.Scheduler, variant string, inputs []I, fn func(context.Context, I) (O, error)) ([]models.Result[O], error) {
	switch variant {
	case config.VariantSerial:
		return executor.Serial[I, O](ctx, inputs, fn), nil
	case config.VariantPerTask:
		return executor.PerTask[I, O](ctx, inputs, fn), nil
	case config.VariantScheduler:
		return scheduler.Run[I, O](ctx, sched, inputs, fn)
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
}

func sameResults[O comparable](a, b []models.Result[O]) bool {
	return slices.EqualFunc(a, b, func(x, y models.Result[O]) bool {
		return x.TaskID == y.TaskID && x.Data == y.Data && x.Failed() == y.Failed()
	})
}
