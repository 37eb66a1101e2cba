package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/loader"
)

// EntityPool pools clones of a source template. A slot is available while its
// entity is inactive; Get activates it, ReturnToPool deactivates it.
//
// Fresh entities are cloned from the source, deactivated, attached to the
// custom parent and passed to the custom initializer, in that order.
type EntityPool[E Template[E]] struct {
	*Pool[E]

	srcMu  sync.RWMutex
	source E
	key    string
	ready  bool
}

// NewEntityPool returns an EntityPool without a source. Use InitializeFromSource
// or InitializeWithSource to populate it.
func NewEntityPool[E Template[E]](opts ...Option) *EntityPool[E] {
	ep := &EntityPool[E]{}
	ep.Pool = New(Policy[E]{
		Construct: ep.spawn,
		Available: func(e E) bool { return !e.Active() },
		Prepare:   func(e E) { e.Activate() },
		Release:   func(e E) { e.Deactivate() },
	}, opts...)

	return ep
}

// Source returns the loaded source template.
func (ep *EntityPool[E]) Source() (E, bool) {
	ep.srcMu.RLock()
	defer ep.srcMu.RUnlock()

	return ep.source, ep.ready
}

// SourceKey returns the key the source was loaded from, if any.
func (ep *EntityPool[E]) SourceKey() string {
	ep.srcMu.RLock()
	defer ep.srcMu.RUnlock()

	return ep.key
}

// Ready reports whether a source template is present.
func (ep *EntityPool[E]) Ready() bool {
	ep.srcMu.RLock()
	defer ep.srcMu.RUnlock()

	return ep.ready
}

// Initialize populates size slots from the current source. It fails with
// errorcodes.ErrNotReady while no source is set.
func (ep *EntityPool[E]) Initialize(ctx context.Context, size int) error {
	if !ep.Ready() {
		return fmt.Errorf("%w: pool %q has no source", errorcodes.ErrNotReady, ep.Name())
	}

	return ep.Pool.Initialize(ctx, size)
}

// InitializeWithSource installs an already loaded source and populates size slots.
func (ep *EntityPool[E]) InitializeWithSource(ctx context.Context, source E, size int) error {
	return ep.install(ctx, "", source, size)
}

// InitializeFromSource loads the source under key through l, waits for it and
// populates size slots. A failed load leaves the pool uninitialized.
func (ep *EntityPool[E]) InitializeFromSource(
	ctx context.Context,
	l loader.Loader[E],
	key string,
	size int,
) error {
	if ep.Initialized() {
		return fmt.Errorf("%w: pool %q", errorcodes.ErrAlreadyInitialized, ep.Name())
	}

	ep.opts.logger.Debug().Str("event", "pool_source_load").Str("key", key).Msg("loading pool source")

	source, err := l.Load(ctx, key).Await(ctx)
	if err != nil {
		ep.opts.logger.Error().Err(err).Str("event", "pool_source_load_failed").Str("key", key).Msg("pool source load failed")

		return fmt.Errorf("%w: pool %q source %q: %w", errorcodes.ErrLoadFailed, ep.Name(), key, err)
	}

	return ep.install(ctx, key, source, size)
}

// InitializeFromSourceAsync runs InitializeFromSource on a new goroutine. The
// returned future resolves once the pool is populated; Get fails with
// errorcodes.ErrNotReady until then.
func (ep *EntityPool[E]) InitializeFromSourceAsync(
	ctx context.Context,
	l loader.Loader[E],
	key string,
	size int,
) *loader.Future[struct{}] {
	return loader.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, ep.InitializeFromSource(ctx, l, key, size)
	})
}

func (ep *EntityPool[E]) install(ctx context.Context, key string, source E, size int) error {
	if ep.Initialized() {
		return fmt.Errorf("%w: pool %q", errorcodes.ErrAlreadyInitialized, ep.Name())
	}

	ep.srcMu.Lock()
	ep.source, ep.key, ep.ready = source, key, true
	ep.srcMu.Unlock()

	return ep.Pool.Initialize(ctx, size)
}

func (ep *EntityPool[E]) spawn(ctx context.Context) (E, error) {
	source, ok := ep.Source()
	if !ok {
		var zero E

		return zero, fmt.Errorf("%w: pool %q has no source", errorcodes.ErrNotReady, ep.Name())
	}

	e, err := source.Clone(ctx)
	if err != nil {
		return e, fmt.Errorf("clone source: %w", err)
	}
	e.Deactivate()

	return e, nil
}
