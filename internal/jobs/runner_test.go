package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunnerRunsJobs(t *testing.T) {
	runner := NewRunner(2, time.Second)

	var counter int64
	for i := 0; i < 5; i++ {
		runner.Submit("increment", func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			return nil
		})
	}

	runner.Wait()
	assert.Equal(t, int64(5), atomic.LoadInt64(&counter))
}

func TestRunnerIsolatesFailures(t *testing.T) {
	runner := NewRunner(1, time.Second)

	var ran int64
	runner.Submit("failing", func(ctx context.Context) error {
		return fmt.Errorf("boom")
	})
	runner.Submit("panicking", func(ctx context.Context) error {
		panic("boom")
	})
	runner.Submit("healthy", func(ctx context.Context) error {
		atomic.AddInt64(&ran, 1)
		return nil
	})

	// Failures and panics in earlier jobs never prevent later ones
	runner.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&ran))
}

func TestRunnerAppliesTimeout(t *testing.T) {
	runner := NewRunner(1, 20*time.Millisecond)

	var got error
	done := make(chan struct{})
	runner.Submit("slow", func(ctx context.Context) error {
		defer close(done)
		select {
		case <-ctx.Done():
			got = ctx.Err()
		case <-time.After(time.Second):
		}
		return got
	})

	<-done
	runner.Wait()
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}
