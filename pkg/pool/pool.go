package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
)

// Policy supplies the per-kind behavior of a Pool: how a fresh item is built
// and what "available" means. Every callback runs under the pool lock and must
// not call back into the same pool.
type Policy[T any] struct {
	// Construct builds the item for a new slot. Required.
	Construct func(ctx context.Context) (T, error)

	// Available reports whether an item may be handed out by Get.
	// Nil means every item is always available.
	Available func(item T) bool

	// Stale reports whether an unavailable item may be released and handed
	// out in the same scan that found it. Nil disables in-place reclaim.
	Stale func(item T) bool

	// Prepare readies an item right before it is handed to the caller.
	Prepare func(item T)

	// Release marks an item available again. It must be idempotent.
	Release func(item T)
}

// Pool is an array-backed store of reusable items that grows when no slot is
// available. Slots are scanned in storage order, so acquisition is
// deterministic for a given activity pattern. Storage never shrinks except
// through Reset.
type Pool[T any] struct {
	policy Policy[T]
	opts   options

	mu          sync.Mutex
	slots       []T
	initialized bool
	initializer func(T)
	parent      Parent

	gets    uint64
	grows   uint64
	returns uint64
}

// New returns an empty pool governed by policy. Call Initialize before Get.
func New[T any](policy Policy[T], opts ...Option) *Pool[T] {
	if policy.Construct == nil {
		policy.Construct = func(context.Context) (T, error) {
			var zero T

			return zero, nil
		}
	}

	o := buildOptions(opts)

	return &Pool[T]{policy: policy, opts: o, parent: o.parent}
}

// NewObjectPool returns a pool of *T where every slot holds new(T) and every
// slot is always available, so Get hands back slot 0 once populated.
func NewObjectPool[T any](opts ...Option) *Pool[*T] {
	return New(Policy[*T]{
		Construct: func(context.Context) (*T, error) {
			return new(T), nil
		},
	}, opts...)
}

// Name returns the pool label.
func (p *Pool[T]) Name() string {
	return p.opts.name
}

// Initialize populates size slots. It fails with errorcodes.ErrAlreadyInitialized
// on a populated pool; call Reset first to repopulate. A construction failure
// leaves the pool uninitialized.
func (p *Pool[T]) Initialize(ctx context.Context, size int) error {
	if size < 0 {
		return fmt.Errorf("%w: pool %q: negative size %d", errorcodes.ErrInvalidArgument, p.opts.name, size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("%w: pool %q holds %d slots", errorcodes.ErrAlreadyInitialized, p.opts.name, len(p.slots))
	}
	if p.opts.maxSize > 0 && size > p.opts.maxSize {
		return fmt.Errorf("%w: pool %q: size %d exceeds cap %d",
			errorcodes.ErrAllocationFailure, p.opts.name, size, p.opts.maxSize)
	}

	items, err := p.constructLocked(ctx, 0, size)
	if err != nil {
		p.opts.logger.Error().Err(err).Str("event", "pool_initialize_failed").Int("size", size).Msg("pool population failed")

		return err
	}
	p.slots = items
	p.initialized = true
	p.opts.observer.ObserveSize(p.opts.name, size)

	p.opts.logger.Debug().Str("event", "pool_initialized").Int("size", size).Msg("pool populated")

	return nil
}

// Initialized reports whether Initialize has completed successfully.
func (p *Pool[T]) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.initialized
}

// Reset discards every slot, disposing items that implement Disposable, and
// marks the pool uninitialized. References to discarded items held by callers
// are no longer tracked by the pool.
func (p *Pool[T]) Reset(ctx context.Context) {
	p.mu.Lock()
	discarded := p.slots
	p.slots = nil
	p.initialized = false
	p.opts.observer.ObserveSize(p.opts.name, 0)
	p.mu.Unlock()

	p.dispose(ctx, discarded)

	p.opts.logger.Debug().Str("event", "pool_reset").Int("discarded", len(discarded)).Msg("pool reset")
}

// SetCustomInitializer sets a callback run once on every item created after
// this call. Items that already exist are not touched.
func (p *Pool[T]) SetCustomInitializer(fn func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.initializer = fn
}

// SetCustomParent attaches every Attachable item created after this call to
// parent. Items that already exist are not reparented.
func (p *Pool[T]) SetCustomParent(parent Parent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.parent = parent
}

// Get returns the first available slot in storage order. If none is available
// the pool grows by expandBy and the first new slot is returned.
func (p *Pool[T]) Get(ctx context.Context, expandBy int) (T, error) {
	item, _, err := p.acquire(ctx, p.available, true, expandBy)

	return item, err
}

// GetMatching is Get with a caller-supplied availability predicate in place of
// the pool's own. Stale items are not reclaimed.
func (p *Pool[T]) GetMatching(ctx context.Context, match func(T) bool, expandBy int) (T, error) {
	if match == nil {
		var zero T

		return zero, fmt.Errorf("%w: pool %q: nil predicate", errorcodes.ErrInvalidArgument, p.opts.name)
	}
	item, _, err := p.acquire(ctx, match, false, expandBy)

	return item, err
}

// ReturnToPool marks item available again. Returning an item twice is a no-op.
func (p *Pool[T]) ReturnToPool(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked(item)
}

// ReturnAll returns every slot, in storage order.
func (p *Pool[T]) ReturnAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range p.slots {
		p.releaseLocked(item)
	}
}

// ForEach calls fn for every slot in storage order. fn runs outside the pool
// lock on a snapshot of the slots, so it may call ReturnToPool.
func (p *Pool[T]) ForEach(fn func(T)) {
	p.mu.Lock()
	snapshot := make([]T, len(p.slots))
	copy(snapshot, p.slots)
	p.mu.Unlock()

	for _, item := range snapshot {
		fn(item)
	}
}

// Len returns the number of slots.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.slots)
}

// At returns the item in slot i.
func (p *Pool[T]) At(i int) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.slots) {
		var zero T

		return zero, false
	}

	return p.slots[i], true
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	available := len(p.slots)
	if p.policy.Available != nil {
		available = 0
		for _, item := range p.slots {
			if p.policy.Available(item) {
				available++
			}
		}
	}

	return Stats{
		Name:        p.opts.name,
		Initialized: p.initialized,
		Size:        len(p.slots),
		Available:   available,
		InUse:       len(p.slots) - available,
		Gets:        p.gets,
		Grows:       p.grows,
		Returns:     p.returns,
	}
}

func (p *Pool[T]) available(item T) bool {
	if p.policy.Available == nil {
		return true
	}

	return p.policy.Available(item)
}

func (p *Pool[T]) acquire(ctx context.Context, match func(T) bool, reclaim bool, expandBy int) (T, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	if !p.initialized {
		return zero, -1, fmt.Errorf("%w: pool %q is not initialized", errorcodes.ErrNotReady, p.opts.name)
	}

	for i, item := range p.slots {
		if match(item) {
			p.handOutLocked(item, false)

			return item, i, nil
		}
		if reclaim && p.policy.Stale != nil && p.policy.Stale(item) {
			p.releaseLocked(item)
			p.opts.logger.Debug().Str("event", "pool_reclaim").Int("slot", i).Msg("stale slot reclaimed")
			p.handOutLocked(item, false)

			return item, i, nil
		}
	}

	item, i, err := p.growLocked(ctx, expandBy)
	if err != nil {
		return zero, -1, err
	}
	p.handOutLocked(item, true)

	return item, i, nil
}

func (p *Pool[T]) handOutLocked(item T, grown bool) {
	if p.policy.Prepare != nil {
		p.policy.Prepare(item)
	}
	p.gets++
	p.opts.observer.ObserveGet(p.opts.name, grown)
}

func (p *Pool[T]) releaseLocked(item T) {
	if p.policy.Release != nil {
		p.policy.Release(item)
	}
	p.returns++
	p.opts.observer.ObserveReturn(p.opts.name)
}

// growLocked appends up to expandBy slots and returns the first new one.
func (p *Pool[T]) growLocked(ctx context.Context, expandBy int) (T, int, error) {
	var zero T
	if expandBy <= 0 {
		expandBy = DefaultExpandBy
	}

	n := len(p.slots)
	if p.opts.maxSize > 0 {
		room := p.opts.maxSize - n
		if room <= 0 {
			return zero, -1, fmt.Errorf("%w: pool %q reached its cap of %d slots",
				errorcodes.ErrAllocationFailure, p.opts.name, p.opts.maxSize)
		}
		expandBy = min(expandBy, room)
	}

	items, err := p.constructLocked(ctx, n, expandBy)
	if err != nil {
		p.opts.logger.Error().Err(err).Str("event", "pool_grow_failed").Int("size", n).Msg("pool growth failed")

		return zero, -1, err
	}
	p.slots = append(p.slots, items...)
	p.grows++
	p.opts.observer.ObserveGrow(p.opts.name, expandBy, len(p.slots))

	p.opts.logger.Debug().
		Str("event", "pool_grow").
		Int("added", expandBy).
		Int("size", len(p.slots)).
		Msg("pool expanded")

	return p.slots[n], n, nil
}

// constructLocked builds n items for slots start..start+n-1. Either all n are
// returned or none: partial results are disposed.
func (p *Pool[T]) constructLocked(ctx context.Context, start, n int) ([]T, error) {
	items := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, err := p.policy.Construct(ctx)
		if err != nil {
			p.dispose(ctx, items)

			return nil, fmt.Errorf("%w: pool %q slot %d: %w", errorcodes.ErrAllocationFailure, p.opts.name, start+i, err)
		}
		if p.parent != nil {
			if a, ok := any(item).(Attachable); ok {
				a.AttachTo(p.parent)
			}
		}
		if p.initializer != nil {
			p.initializer(item)
		}
		items = append(items, item)
	}

	return items, nil
}

func (p *Pool[T]) dispose(ctx context.Context, items []T) {
	for _, item := range items {
		d, ok := any(item).(Disposable)
		if !ok {
			continue
		}
		if err := d.Dispose(ctx); err != nil {
			p.opts.logger.Warn().Err(err).Str("event", "pool_dispose_failed").Msg("failed to dispose pooled item")
		}
	}
}
