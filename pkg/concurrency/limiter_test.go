package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AcquireRelease(t *testing.T) {
	l := NewLimiter(2)

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, int64(2), l.CurrentActive())

	l.Release()
	l.Release()
	assert.Equal(t, int64(0), l.CurrentActive())
}

func TestLimiter_AcquireBlocksUntilRelease(t *testing.T) {
	l := NewLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		_ = l.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
}

func TestLimiter_AcquireHonorsContextCancel(t *testing.T) {
	l := NewLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_BoundsPeakConcurrency(t *testing.T) {
	l := NewLimiter(3)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.GoSync(context.Background(), func() error {
				time.Sleep(5 * time.Millisecond)
				return nil
			})
		}()
	}
	wg.Wait()

	metrics := l.GetMetrics()
	assert.Equal(t, int64(20), metrics.TotalAcquired)
	assert.Equal(t, int64(20), metrics.TotalReleased)
	assert.LessOrEqual(t, metrics.PeakConcurrent, int64(3))
	assert.Equal(t, int64(0), l.CurrentActive())
}

func TestLimiter_ZeroLimitClampsToOne(t *testing.T) {
	l := NewLimiter(0)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Acquire(ctx))
}

func TestLimiter_AverageWaitTime(t *testing.T) {
	l := NewLimiter(1)
	assert.Equal(t, time.Duration(0), l.GetAverageWaitTime())

	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
	assert.GreaterOrEqual(t, l.GetAverageWaitTime(), time.Duration(0))
}
