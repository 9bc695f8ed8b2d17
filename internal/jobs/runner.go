// Package jobs runs fire-and-forget background work enqueued after the
// synchronous write path commits. Each job carries its own failure
// handling; a failing job is logged and never surfaces to the enqueuer.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner executes named jobs on a bounded number of goroutines
type Runner struct {
	sem     chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a runner with the given concurrency bound and per-job
// timeout
func NewRunner(concurrency int, timeout time.Duration) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Runner{
		sem:     make(chan struct{}, concurrency),
		timeout: timeout,
	}
}

// Submit enqueues a job. It never blocks the caller beyond the concurrency
// bound and never returns the job's error; failures are logged under the
// job's name.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		r.sem <- struct{}{}
		defer func() { <-r.sem }()

		defer func() {
			if rec := recover(); rec != nil {
				logrus.Errorf("Background job %s panicked: %v", name, rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logrus.Errorf("Background job %s failed: %v", name, err)
			return
		}

		logrus.Debugf("Background job %s completed", name)
	}()
}

// Wait blocks until all submitted jobs have finished. Used on shutdown and
// in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
