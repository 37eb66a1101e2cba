package pool

import (
	"context"
	"testing"
	"time"

	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTimedPool(t *testing.T, delay time.Duration, size int) (*TimedPool[*testEntity], *scheduler.ManualClock) {
	t.Helper()

	clock := scheduler.NewManualClock(epoch)
	tp := NewTimedPool[*testEntity](scheduler.New(clock), delay, WithName("bullets"))
	require.NoError(t, tp.InitializeWithSource(context.Background(), newSource(), size))

	return tp, clock
}

func TestTimedPoolAutoReturn(t *testing.T) {
	t.Parallel()

	tp, clock := newTimedPool(t, 2*time.Second, 2)

	var returned []*testEntity
	tp.SetOnReturned(func(e *testEntity) {
		assert.False(t, e.Active(), "hook runs after the entity is back in the pool")
		returned = append(returned, e)
	})

	e, err := tp.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tp.Leased())

	clock.Advance(1999 * time.Millisecond)
	assert.Zero(t, tp.Scheduler().RunDue())
	assert.True(t, e.Active())
	assert.Empty(t, returned)

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, tp.Scheduler().RunDue())
	assert.False(t, e.Active())
	assert.Equal(t, []*testEntity{e}, returned)
	assert.Zero(t, tp.Leased())

	clock.Advance(time.Hour)
	assert.Zero(t, tp.Scheduler().RunDue())
	assert.Len(t, returned, 1)
}

func TestTimedPoolGetMatchingIsLeased(t *testing.T) {
	t.Parallel()

	tp, clock := newTimedPool(t, time.Second, 3)

	hooks := 0
	tp.SetOnReturned(func(*testEntity) { hooks++ })

	e, err := tp.GetMatching(context.Background(), func(e *testEntity) bool { return e.id == 2 }, 1)
	require.NoError(t, err)
	require.Equal(t, 2, e.id)
	assert.True(t, e.Active())

	clock.Advance(time.Second)
	tp.Scheduler().RunDue()
	assert.False(t, e.Active())
	assert.Equal(t, 1, hooks)
}

func TestTimedPoolManualReturnCancelsLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tp, clock := newTimedPool(t, time.Second, 1)

	hooks := 0
	tp.SetOnReturned(func(*testEntity) { hooks++ })

	e, task, err := tp.Lease(ctx, 1)
	require.NoError(t, err)
	require.True(t, task.Pending())

	tp.ReturnToPool(e)
	assert.False(t, task.Pending())
	assert.Zero(t, tp.Leased())

	clock.Advance(500 * time.Millisecond)
	again, err := tp.Get(ctx, 1)
	require.NoError(t, err)
	require.Same(t, e, again)

	// The first lease would have expired here.
	clock.Advance(500 * time.Millisecond)
	tp.Scheduler().RunDue()
	assert.True(t, again.Active())
	assert.Zero(t, hooks)

	clock.Advance(500 * time.Millisecond)
	tp.Scheduler().RunDue()
	assert.False(t, again.Active())
	assert.Equal(t, 1, hooks)
}

func TestTimedPoolCanceledLeaseKeepsEntity(t *testing.T) {
	t.Parallel()

	tp, clock := newTimedPool(t, time.Second, 1)

	e, task, err := tp.Lease(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, task.Cancel())

	clock.Advance(time.Minute)
	tp.Scheduler().RunDue()
	assert.True(t, e.Active())

	tp.ReturnToPool(e)
	assert.False(t, e.Active())
}

func TestTimedPoolReturnAllAndReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tp, clock := newTimedPool(t, time.Second, 2)

	hooks := 0
	tp.SetOnReturned(func(*testEntity) { hooks++ })

	for i := 0; i < 3; i++ {
		_, err := tp.Get(ctx, 1)
		require.NoError(t, err)
	}
	require.Equal(t, 3, tp.Leased())

	tp.ReturnAll()
	assert.Zero(t, tp.Leased())
	assert.Equal(t, 3, tp.Stats().Available)

	_, err := tp.Get(ctx, 1)
	require.NoError(t, err)
	tp.Reset(ctx)
	assert.Zero(t, tp.Leased())

	clock.Advance(time.Minute)
	assert.Zero(t, tp.Scheduler().RunDue())
	assert.Zero(t, hooks)
}

func TestTimedPoolDoesNotBlockGet(t *testing.T) {
	t.Parallel()

	clock := scheduler.NewManualClock(epoch)
	sched := scheduler.New(clock)
	tp := NewTimedPool[*testEntity](sched, time.Hour)
	require.NoError(t, tp.InitializeWithSource(context.Background(), newSource(), 1))

	for i := 0; i < 10; i++ {
		_, err := tp.Get(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, tp.Len())
	assert.Equal(t, 10, sched.Pending())
	assert.Equal(t, time.Hour, tp.ReturnDelay())
}

func TestTimedPoolExpiryRacingManualReturn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tp, clock := newTimedPool(t, time.Second, 1)

	for i := 0; i < 500; i++ {
		e, err := tp.Get(ctx, 1)
		require.NoError(t, err)
		clock.Advance(time.Second)

		done := make(chan struct{})
		go func() {
			defer close(done)
			tp.Scheduler().RunDue()
		}()

		tp.ReturnToPool(e)
		again, err := tp.Get(ctx, 1)
		require.NoError(t, err)
		<-done

		// The new lease is not due, so whichever return won, the holder of
		// again still owns an active entity.
		assert.Same(t, e, again)
		require.True(t, again.Active(), "iteration %d", i)
		assert.Equal(t, 1, tp.Leased())

		tp.ReturnToPool(again)
	}
	assert.Equal(t, 1, tp.Len())
}
