package scheduler

import (
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	srvErrors "github.com/tupyy/taskcore/pkg/errors"
)

// MaxWorkers is the largest pool NewScheduler agrees to create.
const MaxWorkers = 4096

type options struct {
	workers     int
	maxPending  int
	stealBatch  int
	idleInitial time.Duration
	idleMax     time.Duration
	logger      *zap.SugaredLogger
}

func defaultOptions() options {
	return options{
		workers:     runtime.GOMAXPROCS(0),
		stealBatch:  32,
		idleInitial: 50 * time.Microsecond,
		idleMax:     10 * time.Millisecond,
	}
}

// Option configures a Scheduler.
type Option func(*options)

// WithWorkers sets the pool size. Zero means one worker per CPU usable by
// the Go runtime (GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(o *options) {
		if n == 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithMaxPending caps the number of queued and running tasks. Zero means
// no cap.
func WithMaxPending(n int) Option {
	return func(o *options) {
		o.maxPending = n
	}
}

// WithStealBatch caps how many tasks a worker moves from the injector to
// its own deque in one pull.
func WithStealBatch(n int) Option {
	return func(o *options) {
		o.stealBatch = n
	}
}

// WithIdleBackoff sets the bounds of the exponential backoff idle workers
// park with between two empty lookups.
func WithIdleBackoff(initial, maxInterval time.Duration) Option {
	return func(o *options) {
		o.idleInitial = initial
		o.idleMax = maxInterval
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func (o options) validate() error {
	if o.workers < 0 {
		return fmt.Errorf("invalid number of workers: %d", o.workers)
	}
	if o.workers > MaxWorkers {
		return srvErrors.NewResourceExhaustedError("workers", o.workers, MaxWorkers)
	}
	if o.maxPending < 0 {
		return fmt.Errorf("invalid max pending tasks: %d", o.maxPending)
	}
	if o.stealBatch < 1 {
		return fmt.Errorf("invalid steal batch: %d", o.stealBatch)
	}
	if o.idleInitial <= 0 || o.idleMax < o.idleInitial {
		return fmt.Errorf("invalid idle backoff: initial %s, max %s", o.idleInitial, o.idleMax)
	}
	return nil
}
