package scheduler_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tupyy/taskcore/internal/models"
	srvErrors "github.com/tupyy/taskcore/pkg/errors"
	"github.com/tupyy/taskcore/pkg/executor"
	"github.com/tupyy/taskcore/pkg/scheduler"
)

func newScheduler(opts ...scheduler.Option) *scheduler.Scheduler {
	s, err := scheduler.NewScheduler(opts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func sleepFor(_ context.Context, d time.Duration) (time.Duration, error) {
	time.Sleep(d)
	return d, nil
}

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler

	AfterEach(func() {
		if s != nil {
			s.Close()
		}
	})

	Describe("NewScheduler", func() {
		It("should default to one worker per usable CPU", func() {
			s = newScheduler()
			Expect(s.Workers()).To(Equal(runtime.GOMAXPROCS(0)))
			Expect(s.ID()).NotTo(BeEmpty())
		})

		It("should reject a negative pool size", func() {
			_, err := scheduler.NewScheduler(scheduler.WithWorkers(-1))
			Expect(err).To(HaveOccurred())
		})

		It("should fail explicitly when the pool cannot be created", func() {
			_, err := scheduler.NewScheduler(scheduler.WithWorkers(scheduler.MaxWorkers + 1))
			Expect(srvErrors.IsResourceExhaustedError(err)).To(BeTrue())
		})

		It("should reject an invalid idle backoff", func() {
			_, err := scheduler.NewScheduler(scheduler.WithIdleBackoff(time.Second, time.Millisecond))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Submit", func() {
		It("should add work and return a future", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			future := s.Submit(func(ctx context.Context) (any, error) {
				return "done", nil
			})
			Expect(future).NotTo(BeNil())

			var result models.Result[any]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(result.Data).To(Equal("done"))
			Expect(result.TaskID).To(Equal(future.ID()))
			Expect(future.State()).To(Equal(models.TaskStateCompleted))
		})

		It("should execute multiple work items", func() {
			s = newScheduler(scheduler.WithWorkers(2))

			results := make(chan int, 3)
			for i := range 3 {
				s.Submit(func(ctx context.Context) (any, error) {
					results <- i
					return i, nil
				})
			}

			Eventually(func() int {
				return len(results)
			}, 2*time.Second, 10*time.Millisecond).Should(Equal(3))
		})

		It("should go through the task states", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			started := make(chan struct{})
			unblock := make(chan struct{})
			blocker := s.Submit(func(ctx context.Context) (any, error) {
				close(started)
				<-unblock
				return nil, nil
			})
			Eventually(started, time.Second).Should(BeClosed())
			Expect(blocker.State()).To(Equal(models.TaskStateRunning))

			queued := s.Submit(func(ctx context.Context) (any, error) {
				return nil, errors.New("nope")
			})
			Expect(queued.State()).To(Equal(models.TaskStatePending))

			close(unblock)
			Eventually(queued.C(), time.Second).Should(Receive())
			Expect(queued.State()).To(Equal(models.TaskStateFailed))
			Expect(blocker.State()).To(Equal(models.TaskStateCompleted))
		})

		// Given a task that panics
		// When it runs on a pool with a single worker
		// Then its future gets a worker crash and the worker runs the next task
		It("should survive a panicking task", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			crashed := s.Submit(func(ctx context.Context) (any, error) {
				panic("kaboom")
			})
			next := s.Submit(func(ctx context.Context) (any, error) {
				return 1, nil
			})

			var result models.Result[any]
			Eventually(crashed.C(), time.Second).Should(Receive(&result))
			Expect(srvErrors.IsTaskFailureError(result.Err)).To(BeTrue())
			Expect(srvErrors.IsWorkerCrashError(result.Err)).To(BeTrue())

			Eventually(next.C(), time.Second).Should(Receive(&result))
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Data).To(Equal(1))
		})

		It("should fail a task whose goroutine exits and keep serving", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			exited := s.Submit(func(ctx context.Context) (any, error) {
				runtime.Goexit()
				return nil, nil
			})
			var result models.Result[any]
			Eventually(exited.C(), time.Second).Should(Receive(&result))
			Expect(srvErrors.IsWorkerCrashError(result.Err)).To(BeTrue())

			next := s.Submit(func(ctx context.Context) (any, error) {
				return "alive", nil
			})
			Eventually(next.C(), time.Second).Should(Receive(&result))
			Expect(result.Data).To(Equal("alive"))
		})

		It("should reject work past the pending cap", func() {
			s = newScheduler(scheduler.WithWorkers(1), scheduler.WithMaxPending(1))

			unblock := make(chan struct{})
			s.Submit(func(ctx context.Context) (any, error) {
				<-unblock
				return nil, nil
			})

			var result models.Result[any]
			Eventually(s.Submit(func(ctx context.Context) (any, error) {
				return nil, nil
			}).C(), time.Second).Should(Receive(&result))
			Expect(srvErrors.IsResourceExhaustedError(result.Err)).To(BeTrue())
			close(unblock)
		})
	})

	Describe("Cancel work", func() {
		It("should cancel work via future.Stop()", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			cancelled := make(chan bool, 1)
			future := s.Submit(func(ctx context.Context) (any, error) {
				select {
				case <-ctx.Done():
					cancelled <- true
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return "completed", nil
				}
			})
			time.Sleep(50 * time.Millisecond)
			future.Stop()

			Eventually(cancelled, 2*time.Second).Should(Receive(BeTrue()))
			var result models.Result[any]
			Eventually(future.C(), time.Second).Should(Receive(&result))
			Expect(result.Err).To(MatchError(context.Canceled))
		})

		It("should not run a task stopped before it started", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			unblock := make(chan struct{})
			s.Submit(func(ctx context.Context) (any, error) {
				<-unblock
				return nil, nil
			})

			var ran atomic.Bool
			future := s.Submit(func(ctx context.Context) (any, error) {
				ran.Store(true)
				return nil, nil
			})
			future.Stop()
			close(unblock)

			var result models.Result[any]
			Eventually(future.C(), time.Second).Should(Receive(&result))
			Expect(result.Err).To(MatchError(context.Canceled))
			Expect(ran.Load()).To(BeFalse())
			Expect(future.State()).To(Equal(models.TaskStateFailed))
		})

		It("should cancel work when the shutdown deadline passes", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			cancelled := make(chan bool, 1)
			s.Submit(func(ctx context.Context) (any, error) {
				select {
				case <-ctx.Done():
					cancelled <- true
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return "completed", nil
				}
			})
			time.Sleep(50 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			Expect(s.Shutdown(ctx)).To(MatchError(context.DeadlineExceeded))
			s = nil // prevent AfterEach from closing again

			Eventually(cancelled, 2*time.Second).Should(Receive(BeTrue()))
		})
	})

	Describe("Goroutine cleanup", func() {
		It("should not leak goroutines after Close under load", func() {
			base := runtime.NumGoroutine()
			s = newScheduler(scheduler.WithWorkers(4))

			for i := 0; i < 200; i++ {
				s.Submit(func(ctx context.Context) (any, error) {
					time.Sleep(time.Millisecond)
					return nil, nil
				})
			}

			s.Close()
			Expect(s.Stats().Completed).To(BeEquivalentTo(200))
			s = nil // prevent AfterEach from closing again

			Eventually(func() int {
				return runtime.NumGoroutine()
			}, 5*time.Second, 100*time.Millisecond).Should(BeNumerically("<=", base+10))
		})
	})

	Describe("Close behavior", func() {
		It("should return ErrSchedulerClosed when Submit is called after Close", func() {
			s = newScheduler(scheduler.WithWorkers(1))
			s.Close()

			future := s.Submit(func(ctx context.Context) (any, error) {
				return "done", nil
			})

			var result models.Result[any]
			Eventually(future.C(), 1*time.Second).Should(Receive(&result))
			Expect(result.Err).To(MatchError(srvErrors.ErrSchedulerClosed))
			Expect(future.State()).To(Equal(models.TaskStateFailed))
		})

		It("should wait for in-flight work to finish on Close", func() {
			s = newScheduler(scheduler.WithWorkers(1))

			started := make(chan struct{})
			unblock := make(chan struct{})
			s.Submit(func(ctx context.Context) (any, error) {
				close(started)
				<-unblock
				return "done", nil
			})

			Eventually(started, 1*time.Second).Should(BeClosed())

			closeDone := make(chan struct{})
			go func() {
				s.Close()
				close(closeDone)
			}()

			Consistently(closeDone, 200*time.Millisecond).ShouldNot(BeClosed())
			close(unblock)
			Eventually(closeDone, 1*time.Second).Should(BeClosed())
			s = nil // prevent AfterEach from closing again
		})

		It("should drain queued work before stopping", func() {
			s = newScheduler(scheduler.WithWorkers(2))

			var done atomic.Int32
			futures := make([]*models.Future[models.Result[any]], 20)
			for i := range futures {
				futures[i] = s.Submit(func(ctx context.Context) (any, error) {
					time.Sleep(5 * time.Millisecond)
					done.Add(1)
					return nil, nil
				})
			}
			s.Close()
			s = nil // prevent AfterEach from closing again

			Expect(done.Load()).To(BeEquivalentTo(20))
			for _, f := range futures {
				Expect(f.State()).To(Equal(models.TaskStateCompleted))
			}
		})
	})

	Describe("Run", func() {
		double := func(_ context.Context, x int) (int, error) {
			time.Sleep(time.Millisecond)
			return x * 2, nil
		}

		It("should match the naive executor", func() {
			s = newScheduler(scheduler.WithWorkers(3))

			inputs := make([]int, 100)
			for i := range inputs {
				inputs[i] = i
			}

			results, err := scheduler.Run(context.Background(), s, inputs, double)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(len(inputs)))

			naive := executor.PerTask(context.Background(), inputs, executor.Func[int, int](double))
			Expect(models.SortByTaskID(results)).To(Equal(models.SortByTaskID(naive)))
		})

		It("should keep failures local to their slot", func() {
			s = newScheduler(scheduler.WithWorkers(2))

			results, err := scheduler.Run(context.Background(), s, []int{0, 1, 2, 3}, func(_ context.Context, x int) (int, error) {
				if x == 1 {
					panic("bad")
				}
				if x == 2 {
					return 0, errors.New("bad input")
				}
				return x, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Data).To(Equal(0))
			Expect(srvErrors.IsWorkerCrashError(results[1].Err)).To(BeTrue())
			Expect(results[2].Err).To(MatchError(ContainSubstring("bad input")))
			Expect(srvErrors.IsTaskFailureError(results[2].Err)).To(BeTrue())
			Expect(results[3].Data).To(Equal(3))
		})

		It("should fail the whole batch when it does not fit", func() {
			s = newScheduler(scheduler.WithWorkers(2), scheduler.WithMaxPending(2))

			var ran atomic.Int32
			_, err := scheduler.Run(context.Background(), s, []int{1, 2, 3}, func(_ context.Context, x int) (int, error) {
				ran.Add(1)
				return x, nil
			})
			Expect(srvErrors.IsResourceExhaustedError(err)).To(BeTrue())
			Consistently(ran.Load, 50*time.Millisecond).Should(BeZero())
		})

		It("should fail the whole batch after Close", func() {
			s = newScheduler(scheduler.WithWorkers(1))
			s.Close()

			_, err := scheduler.Run(context.Background(), s, []int{1}, double)
			Expect(err).To(MatchError(srvErrors.ErrSchedulerClosed))
		})

		It("should not run tasks of a cancelled batch", func() {
			s = newScheduler(scheduler.WithWorkers(2))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var ran atomic.Int32
			results, err := scheduler.Run(ctx, s, []int{1, 2, 3}, func(_ context.Context, x int) (int, error) {
				ran.Add(1)
				return x, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ran.Load()).To(BeZero())
			for _, r := range results {
				Expect(r.Err).To(MatchError(context.Canceled))
			}
		})

		It("should handle an empty batch", func() {
			s = newScheduler(scheduler.WithWorkers(1))
			results, err := scheduler.Run(context.Background(), s, []int{}, double)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Stream", func() {
		It("should publish one result per task then end the stream", func() {
			s = newScheduler(scheduler.WithWorkers(4))

			rx, err := scheduler.Stream(context.Background(), s, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, func(_ context.Context, x int) (int, error) {
				return x, nil
			})
			Expect(err).NotTo(HaveOccurred())

			var got []int
			for r := range rx.All() {
				Expect(r.Err).NotTo(HaveOccurred())
				Expect(r.Data).To(Equal(r.TaskID))
				got = append(got, r.Data)
			}
			Expect(got).To(ConsistOf(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))
		})

		It("should fail the whole batch after Close", func() {
			s = newScheduler(scheduler.WithWorkers(1))
			s.Close()

			_, err := scheduler.Stream(context.Background(), s, []int{1, 2}, func(_ context.Context, x int) (int, error) {
				return x, nil
			})
			Expect(err).To(MatchError(srvErrors.ErrSchedulerClosed))
		})
	})

	Describe("Load balancing", func() {
		// Given one task far more expensive than the others
		// When the batch runs on a small pool
		// Then every cheap task finishes while the expensive one is still running
		It("should not let an expensive task block the pool", func() {
			s = newScheduler(scheduler.WithWorkers(4))

			inputs := []time.Duration{300 * time.Millisecond}
			for range 30 {
				inputs = append(inputs, 2*time.Millisecond)
			}

			start := time.Now()
			rx, err := scheduler.Stream(context.Background(), s, inputs, sleepFor)
			Expect(err).NotTo(HaveOccurred())

			var order []int
			for r := range rx.All() {
				Expect(r.Err).NotTo(HaveOccurred())
				order = append(order, r.TaskID)
			}
			elapsed := time.Since(start)

			Expect(order).To(HaveLen(len(inputs)))
			Expect(order[len(order)-1]).To(Equal(0))
			Expect(elapsed).To(BeNumerically("<", 600*time.Millisecond))
			Expect(s.Stats().Stolen).To(BeNumerically(">", 0))
		})

		It("should finish close to max(big task, rest/workers)", func() {
			s = newScheduler(scheduler.WithWorkers(4))

			inputs := []time.Duration{200 * time.Millisecond}
			for range 40 {
				inputs = append(inputs, 10*time.Millisecond)
			}

			start := time.Now()
			results, err := scheduler.Run(context.Background(), s, inputs, sleepFor)
			Expect(err).NotTo(HaveOccurred())
			elapsed := time.Since(start)

			// serial cost is 600ms; the balanced bound is max(200ms, 400ms/4)
			Expect(elapsed).To(BeNumerically("<", 400*time.Millisecond))
			Expect(results).To(HaveLen(41))

			st := s.Stats()
			Expect(st.Completed).To(BeEquivalentTo(41))
			var executed uint64
			for _, n := range st.Executed {
				executed += n
			}
			Expect(executed).To(BeEquivalentTo(41))
		})
	})
})
