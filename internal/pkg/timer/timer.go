// Package timer runs delayed one-shot tasks from a single heap-ordered
// queue. Each task gets a uuid so callers can cancel it later.
package timer

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Task struct {
	ID       string
	Execute  time.Time
	Callback func(ctx context.Context)
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[:n-1]
	return task
}

// Scheduler fires tasks once their time comes. Callbacks run on their own
// goroutine with the context Run was started with.
type Scheduler struct {
	mu    sync.Mutex
	queue taskQueue
	byID  map[string]*Task
	wake  chan struct{}
	wg    sync.WaitGroup
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		byID: make(map[string]*Task),
		wake: make(chan struct{}, 1),
	}
	heap.Init(&s.queue)
	return s
}

// Schedule queues callback to run after delay and returns the task id.
func (s *Scheduler) Schedule(delay time.Duration, callback func(ctx context.Context)) string {
	task := &Task{
		ID:       uuid.NewString(),
		Execute:  time.Now().Add(delay),
		Callback: callback,
	}

	s.mu.Lock()
	heap.Push(&s.queue, task)
	s.byID[task.ID] = task
	s.mu.Unlock()

	s.poke()
	return task.ID
}

// Cancel removes a task that has not fired yet.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, task.index)
	delete(s.byID, id)
	return true
}

// Pending returns the number of tasks waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// due pops every task whose time has come and returns how long to sleep
// until the next one.
func (s *Scheduler) due(now time.Time) ([]*Task, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fire []*Task
	for s.queue.Len() > 0 {
		task := s.queue[0]
		if task.Execute.After(now) {
			return fire, task.Execute.Sub(now)
		}
		heap.Pop(&s.queue)
		delete(s.byID, task.ID)
		fire = append(fire, task)
	}
	return fire, time.Hour
}

// Run fires tasks until ctx is done, then waits for running callbacks.
// Tasks still queued at that point are dropped.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-s.wake:
		case <-timer.C:
		}

		fire, wait := s.due(time.Now())
		for _, task := range fire {
			s.wg.Add(1)
			go s.execute(ctx, task)
		}
		timer.Reset(wait)
	}
}

func (s *Scheduler) execute(ctx context.Context, task *Task) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("task_id", task.ID).Msg("Timer task panicked")
		}
	}()
	task.Callback(ctx)
}
