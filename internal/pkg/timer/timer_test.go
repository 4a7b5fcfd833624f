package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T) (*Scheduler, context.CancelFunc) {
	t.Helper()
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, cancel
}

func TestTasksFireInOrder(t *testing.T) {
	s, _ := start(t)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i, delay := range []time.Duration{60, 20, 40} {
		s.Schedule(delay*time.Millisecond, func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, []int{1, 2, 0}, order)
	assert.Equal(t, 0, s.Pending())
}

func TestCancel(t *testing.T) {
	s, _ := start(t)

	fired := make(chan string, 2)
	keep := s.Schedule(30*time.Millisecond, func(context.Context) { fired <- "keep" })
	drop := s.Schedule(10*time.Millisecond, func(context.Context) { fired <- "drop" })
	require.NotEqual(t, keep, drop)

	assert.True(t, s.Cancel(drop))
	assert.False(t, s.Cancel(drop))
	assert.Equal(t, 1, s.Pending())

	select {
	case got := <-fired:
		assert.Equal(t, "keep", got)
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}
	assert.False(t, s.Cancel(keep), "fired tasks can't be cancelled")
}

func TestPanickingTaskDoesNotStopScheduler(t *testing.T) {
	s, _ := start(t)

	s.Schedule(0, func(context.Context) { panic("boom") })
	fired := make(chan struct{})
	s.Schedule(5*time.Millisecond, func(context.Context) { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped after a panic")
	}
}

func TestRunWaitsForCallbacks(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	var finished bool
	s.Schedule(0, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished = true
	})

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	<-started
	cancel()
	<-done
	assert.True(t, finished)
}
