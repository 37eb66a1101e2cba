// Package scheduler provides a cooperative timer queue for deferred callbacks.
//
// Callbacks never run on their own goroutine. They run inside RunDue, which the
// owner calls from its loop (a frame tick, a TUI tick message, or Run). Due tasks
// execute in deadline order; tasks with equal deadlines execute in the order they
// were scheduled.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

// Task is a scheduled callback. It can be canceled until it starts running.
type Task struct {
	deadline time.Time
	seq      uint64
	fn       func()
	index    int
	state    taskState
	owner    *Scheduler
}

type taskState int

const (
	taskPending taskState = iota
	taskCanceled
	taskFired
)

// Deadline returns the time at which the task becomes due.
func (t *Task) Deadline() time.Time {
	return t.deadline
}

// Cancel stops the task from running. It reports false if the task already
// ran, is running, or was canceled before.
func (t *Task) Cancel() bool {
	s := t.owner
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.state != taskPending {
		return false
	}
	t.state = taskCanceled
	if t.index >= 0 {
		heap.Remove(&s.timers, t.index)
	}

	return true
}

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool {
	s := t.owner
	s.mu.Lock()
	defer s.mu.Unlock()

	return t.state == taskPending
}

// Scheduler is a min-heap of tasks keyed by (deadline, sequence).
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	timers taskHeap
	seq    uint64
}

// New returns a Scheduler reading time from clock. A nil clock means SystemClock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}

	return &Scheduler{clock: clock}
}

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// Schedule registers fn to run once delay has elapsed. It never blocks and
// never runs fn inline.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &Task{
		deadline: s.clock.Now().Add(delay),
		seq:      s.seq,
		fn:       fn,
		index:    -1,
		owner:    s,
	}
	heap.Push(&s.timers, t)

	return t
}

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.timers.Len()
}

// Next returns the deadline of the earliest pending task.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timers.Len() == 0 {
		return time.Time{}, false
	}

	return s.timers[0].deadline, true
}

// RunDue runs every task whose deadline is at or before the clock's current
// time and returns how many ran. Tasks scheduled by a running callback are
// not considered until the next call, even if already due.
func (s *Scheduler) RunDue() int {
	now := s.clock.Now()
	due := queue.New()

	s.mu.Lock()
	for s.timers.Len() > 0 && !s.timers[0].deadline.After(now) {
		t, _ := heap.Pop(&s.timers).(*Task)
		t.state = taskFired
		due.Add(t)
	}
	s.mu.Unlock()

	ran := 0
	for due.Length() > 0 {
		t, _ := due.Remove().(*Task)
		s.run(t)
		ran++
	}

	return ran
}

func (s *Scheduler) run(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", "scheduled_task_panic").
				Interface("panic", r).
				Time("deadline", t.deadline).
				Msg("scheduled task panicked")
		}
	}()
	t.fn()
}

// Run calls RunDue every interval until ctx is done. It is the scheduler's
// cooperative loop for hosts that have no frame loop of their own.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunDue()
		}
	}
}

// taskHeap implements heap.Interface ordered by deadline, then sequence.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}

	return h[i].deadline.Before(h[j].deadline)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t, _ := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]

	return t
}
