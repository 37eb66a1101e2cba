package pool

import (
	"context"
	"sync"
	"time"

	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
)

// TimedPool is an EntityPool whose acquisitions are leases: every Get or
// GetMatching schedules a return of the entity after the return delay, followed
// by the OnReturned hook.
//
// Returning an entity by hand cancels its pending lease, so a timer from an
// earlier lease can never return an entity that has since been re-acquired.
type TimedPool[E Template[E]] struct {
	*EntityPool[E]

	sched *scheduler.Scheduler
	delay time.Duration

	mu         sync.Mutex
	gen        uint64
	leases     map[E]lease
	onReturned func(E)
}

type lease struct {
	gen  uint64
	task *scheduler.Task
}

// NewTimedPool returns a TimedPool whose returns run on sched after delay.
func NewTimedPool[E Template[E]](sched *scheduler.Scheduler, delay time.Duration, opts ...Option) *TimedPool[E] {
	if sched == nil {
		sched = scheduler.New(nil)
	}

	return &TimedPool[E]{
		EntityPool: NewEntityPool[E](opts...),
		sched:      sched,
		delay:      delay,
		leases:     make(map[E]lease),
	}
}

// ReturnDelay returns the lease duration.
func (tp *TimedPool[E]) ReturnDelay() time.Duration {
	return tp.delay
}

// Scheduler returns the scheduler the returns run on.
func (tp *TimedPool[E]) Scheduler() *scheduler.Scheduler {
	return tp.sched
}

// SetOnReturned sets the hook called after each timed return. Use it for
// custom de-initialization of the entity.
func (tp *TimedPool[E]) SetOnReturned(fn func(E)) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	tp.onReturned = fn
}

// Get acquires an entity like EntityPool.Get and schedules its return.
func (tp *TimedPool[E]) Get(ctx context.Context, expandBy int) (E, error) {
	e, _, err := tp.Lease(ctx, expandBy)

	return e, err
}

// GetMatching acquires an entity like EntityPool.GetMatching and schedules its return.
func (tp *TimedPool[E]) GetMatching(ctx context.Context, match func(E) bool, expandBy int) (E, error) {
	e, _, err := tp.LeaseMatching(ctx, match, expandBy)

	return e, err
}

// Lease is Get that also returns the pending return task. Canceling the task
// keeps the entity out of the pool until it is returned by hand.
func (tp *TimedPool[E]) Lease(ctx context.Context, expandBy int) (E, *scheduler.Task, error) {
	e, err := tp.EntityPool.Get(ctx, expandBy)
	if err != nil {
		return e, nil, err
	}

	return e, tp.scheduleReturn(e), nil
}

// LeaseMatching is GetMatching that also returns the pending return task.
func (tp *TimedPool[E]) LeaseMatching(ctx context.Context, match func(E) bool, expandBy int) (E, *scheduler.Task, error) {
	e, err := tp.EntityPool.GetMatching(ctx, match, expandBy)
	if err != nil {
		return e, nil, err
	}

	return e, tp.scheduleReturn(e), nil
}

// ReturnToPool returns e now and cancels its pending lease. OnReturned is not
// called for manual returns.
func (tp *TimedPool[E]) ReturnToPool(e E) {
	tp.mu.Lock()
	if l, ok := tp.leases[e]; ok {
		l.task.Cancel()
		delete(tp.leases, e)
	}
	tp.mu.Unlock()

	tp.EntityPool.ReturnToPool(e)
}

// ReturnAll returns every entity and cancels all pending leases.
func (tp *TimedPool[E]) ReturnAll() {
	tp.cancelLeases()
	tp.EntityPool.ReturnAll()
}

// Reset cancels all pending leases and discards every slot.
func (tp *TimedPool[E]) Reset(ctx context.Context) {
	tp.cancelLeases()
	tp.EntityPool.Reset(ctx)
}

// Leased returns the number of entities with a pending timed return.
func (tp *TimedPool[E]) Leased() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	return len(tp.leases)
}

func (tp *TimedPool[E]) cancelLeases() {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	for e, l := range tp.leases {
		l.task.Cancel()
		delete(tp.leases, e)
	}
}

func (tp *TimedPool[E]) scheduleReturn(e E) *scheduler.Task {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if old, ok := tp.leases[e]; ok {
		old.task.Cancel()
	}
	tp.gen++
	gen := tp.gen
	task := tp.sched.Schedule(tp.delay, func() { tp.expire(e, gen) })
	tp.leases[e] = lease{gen: gen, task: task}

	return task
}

// expire is the scheduled return. A lease superseded by a manual return or a
// newer lease is ignored. The entity goes back under tp.mu so a manual
// return and re-acquisition cannot interleave with it.
func (tp *TimedPool[E]) expire(e E, gen uint64) {
	tp.mu.Lock()
	l, ok := tp.leases[e]
	if !ok || l.gen != gen {
		tp.mu.Unlock()
		return
	}
	delete(tp.leases, e)
	tp.EntityPool.ReturnToPool(e)
	hook := tp.onReturned
	tp.mu.Unlock()

	tp.opts.logger.Debug().Str("event", "pool_auto_return").Dur("delay", tp.delay).Msg("leased entity returned")

	if hook != nil {
		hook(e)
	}
}
