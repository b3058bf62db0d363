package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metric label values.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	sourceInjector  = "injector"
	sourcePeer      = "peer"
)

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskcore_scheduler_tasks_total",
			Help: "Total number of tasks finished by scheduler workers.",
		},
		[]string{"status"},
	)

	pullsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskcore_scheduler_pulls_total",
			Help: "Total number of tasks a worker took from a queue other than its own.",
		},
		[]string{"source"},
	)

	taskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskcore_scheduler_task_duration_seconds",
			Help:    "Task execution time, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskcore_scheduler_workers",
			Help: "Number of running scheduler workers.",
		},
	)

	pendingTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskcore_scheduler_pending_tasks",
			Help: "Number of queued or running tasks.",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal)
	prometheus.MustRegister(pullsTotal)
	prometheus.MustRegister(taskDuration)
	prometheus.MustRegister(activeWorkers)
	prometheus.MustRegister(pendingTasks)

	for _, s := range []string{statusCompleted, statusFailed} {
		tasksTotal.WithLabelValues(s)
	}
	for _, s := range []string{sourceInjector, sourcePeer} {
		pullsTotal.WithLabelValues(s)
	}
}
