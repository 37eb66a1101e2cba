package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRunDueOrdersByDeadlineThenSequence(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(epoch)
	s := New(clock)

	var order []string
	s.Schedule(3*time.Second, func() { order = append(order, "c") })
	s.Schedule(1*time.Second, func() { order = append(order, "a1") })
	s.Schedule(2*time.Second, func() { order = append(order, "b") })
	s.Schedule(1*time.Second, func() { order = append(order, "a2") })

	require.Equal(t, 4, s.Pending())

	clock.Advance(500 * time.Millisecond)
	assert.Zero(t, s.RunDue())
	assert.Empty(t, order)

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 3, s.RunDue())
	assert.Equal(t, []string{"a1", "a2", "b"}, order)

	clock.Advance(time.Second)
	assert.Equal(t, 1, s.RunDue())
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, order)
	assert.Zero(t, s.Pending())
}

func TestCancelPreventsRun(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(epoch)
	s := New(clock)

	ran := false
	task := s.Schedule(time.Second, func() { ran = true })
	other := s.Schedule(time.Second, func() {})

	require.True(t, task.Pending())
	require.True(t, task.Cancel())
	require.False(t, task.Cancel(), "second cancel reports false")
	require.False(t, task.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, 1, s.RunDue())
	assert.False(t, ran)
	assert.False(t, other.Cancel(), "fired task cannot be canceled")
}

func TestTasksScheduledFromCallbackWaitForNextRun(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(epoch)
	s := New(clock)

	count := 0
	s.Schedule(0, func() {
		count++
		s.Schedule(0, func() { count++ })
	})

	assert.Equal(t, 1, s.RunDue())
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, s.RunDue())
	assert.Equal(t, 2, count)
}

func TestPanickingTaskDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(epoch)
	s := New(clock)

	ran := false
	s.Schedule(0, func() { panic("boom") })
	s.Schedule(0, func() { ran = true })

	assert.Equal(t, 2, s.RunDue())
	assert.True(t, ran)
}

func TestNextReportsEarliestDeadline(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(epoch)
	s := New(clock)

	_, ok := s.Next()
	require.False(t, ok)

	s.Schedule(5*time.Second, func() {})
	s.Schedule(2*time.Second, func() {})

	next, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(2*time.Second), next)
}

func TestRunLoopWithSystemClock(t *testing.T) {
	t.Parallel()

	s := New(nil)

	var fired atomic.Int32
	s.Schedule(5*time.Millisecond, func() { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
