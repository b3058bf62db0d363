package workload

import (
	"context"
	"time"
)

// Data is the input of the doubling calculation.
type Data uint64

// ComputationResult is the output of the doubling calculation.
type ComputationResult uint64

// Calculator doubles its input after simulating a fixed amount of work.
type Calculator struct {
	ComputeTime time.Duration
}

// Calculate returns 2*d once ComputeTime has elapsed, or the context error
// if ctx ends first.
func (c Calculator) Calculate(ctx context.Context, d Data) (ComputationResult, error) {
	if err := simulate(ctx, c.ComputeTime); err != nil {
		return 0, err
	}
	return ComputationResult(d * 2), nil
}

// Job is a unit of work whose cost is expressed in cost units.
type Job struct {
	ID   int
	Cost int
}

// Runner executes jobs, one cost unit taking Unit.
type Runner struct {
	Unit time.Duration
}

// Run simulates the job and returns its cost.
func (r Runner) Run(ctx context.Context, j Job) (int, error) {
	if err := simulate(ctx, time.Duration(j.Cost)*r.Unit); err != nil {
		return 0, err
	}
	return j.Cost, nil
}

// Uniform returns n data items 1..n.
func Uniform(n int) []Data {
	data := make([]Data, n)
	for i := range data {
		data[i] = Data(i + 1)
	}
	return data
}

// Skewed returns one job of bigCost followed by n-1 jobs of cost 1.
func Skewed(n, bigCost int) []Job {
	if n <= 0 {
		return nil
	}
	jobs := make([]Job, n)
	jobs[0] = Job{ID: 0, Cost: bigCost}
	for i := 1; i < n; i++ {
		jobs[i] = Job{ID: i, Cost: 1}
	}
	return jobs
}

// TotalCost sums the cost of jobs.
func TotalCost(jobs []Job) int {
	total := 0
	for _, j := range jobs {
		total += j.Cost
	}
	return total
}

// BalancedBound is the best wall-clock cost, in units, a pool of workers can
// reach on jobs: max(largest job, total/workers).
func BalancedBound(jobs []Job, workers int) int {
	if workers < 1 {
		workers = 1
	}
	largest := 0
	for _, j := range jobs {
		largest = max(largest, j.Cost)
	}
	return max(largest, (TotalCost(jobs)+workers-1)/workers)
}

func simulate(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
