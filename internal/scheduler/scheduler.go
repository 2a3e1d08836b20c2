// Package scheduler periodically runs a job in a background goroutine.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/util"
)

type Job func(ctx context.Context) error

type RunResult struct {
	StartTime time.Time
	Duration  time.Duration
	Err       error
}

// Scheduler runs the job every period. Runs never overlap: a trigger during a run is served after it.
type Scheduler struct {
	name   string
	job    Job
	period time.Duration

	force     chan struct{}
	stopped   chan struct{}
	waitGroup sync.WaitGroup

	last util.Guarded[mo.Option[RunResult]]
}

func New(name string, period time.Duration, job Job) *Scheduler {
	return &Scheduler{
		name:   name,
		job:    job,
		period: period,

		force:   make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Start starts the scheduler. The first run happens immediately if runNow is set or after a random delay
// within the period otherwise.
func (s *Scheduler) Start(ctx context.Context, runNow bool) {
	if runNow {
		s.Trigger()
	}
	s.waitGroup.Go(func() {
		s.daemon(ctx, runNow)
	})
}

func (s *Scheduler) Stop(ctx context.Context) {
	logging.L(ctx).Infof("Stopping %s scheduler...", s.name)
	close(s.stopped)
	s.waitGroup.Wait()
	logging.L(ctx).Infof("The %s scheduler has stopped.", s.name)
}

// Trigger requests an immediate run. It returns false if a run has already been requested.
func (s *Scheduler) Trigger() bool {
	select {
	case s.force <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Last() (RunResult, bool) {
	return s.last.Load().Get()
}

func (s *Scheduler) daemon(ctx context.Context, runNow bool) {
	delay := s.period
	if !runNow {
		delay = rand.N(s.period)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:

		case <-s.force:
			timer.Stop()

		case <-s.stopped:
			return

		case <-ctx.Done():
			return
		}

		result := s.run(ctx)

		s.last.Store(mo.Some(result))

		timer.Reset(s.period)
	}
}

func (s *Scheduler) run(ctx context.Context) RunResult {
	logging.L(ctx).Infof("Running %s...", s.name)

	startTime := time.Now()
	err := func() (err error) {
		defer func() {
			if panicErr := recover(); panicErr != nil {
				stack := debug.Stack()
				err = fmt.Errorf("%s has panicked: %v\n%s", s.name, panicErr, bytes.TrimRight(stack, "\n"))
			}
		}()
		return s.job(ctx)
	}()

	result := RunResult{
		StartTime: startTime,
		Duration:  time.Since(startTime),
		Err:       err,
	}

	if util.IsTemporaryError(err) {
		logging.L(ctx).Warnf("%s has failed: %s.", s.name, err)
	} else if err != nil {
		logging.L(ctx).Errorf("%s has failed: %s.", s.name, err)
	} else {
		logging.L(ctx).Infof("%s has finished in %s.", s.name, result.Duration.Round(time.Millisecond))
	}

	return result
}
