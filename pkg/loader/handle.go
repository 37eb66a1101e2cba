package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/google/uuid"
)

// Handle tracks one in-flight or completed load. It carries a single result
// slot that stays empty until a load it tracks succeeds. Handles are meant to
// be recycled through a LoaderHandlePool.
type Handle[E any] struct {
	id uuid.UUID

	mu     sync.Mutex
	key    string
	result E
	filled bool
}

// NewHandle returns a handle with an empty result slot.
func NewHandle[E any]() *Handle[E] {
	return &Handle[E]{id: uuid.New()}
}

// ID identifies the handle for logging.
func (h *Handle[E]) ID() uuid.UUID {
	return h.id
}

// Key returns the key of the last load started through Instantiate or Load.
func (h *Handle[E]) Key() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.key
}

// Result returns the stored result and whether one is present.
func (h *Handle[E]) Result() (E, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.result, h.filled
}

// Empty reports whether the result slot is unset.
func (h *Handle[E]) Empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return !h.filled
}

// SetResult stores v in the result slot.
func (h *Handle[E]) SetResult(v E) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.result, h.filled = v, true
}

// Clear empties the result slot.
func (h *Handle[E]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var zero E
	h.result, h.filled = zero, false
}

// Track subscribes the handle to f: a successful completion fills the result
// slot, a failure leaves it empty.
func (h *Handle[E]) Track(f *Future[E]) {
	f.OnComplete(func(v E, err error) {
		if err == nil {
			h.SetResult(v)
		}
	})
}

// Instantiate asks l for a fresh instance of key, waits for it and stores it.
func (h *Handle[E]) Instantiate(ctx context.Context, l Loader[E], key string) (E, error) {
	return h.await(ctx, key, l.Instantiate(ctx, key))
}

// Load asks l for the asset stored under key, waits for it and stores it.
func (h *Handle[E]) Load(ctx context.Context, l Loader[E], key string) (E, error) {
	return h.await(ctx, key, l.Load(ctx, key))
}

func (h *Handle[E]) await(ctx context.Context, key string, f *Future[E]) (E, error) {
	h.mu.Lock()
	h.key = key
	h.mu.Unlock()

	h.Track(f)

	v, err := f.Await(ctx)
	if err != nil {
		return v, fmt.Errorf("%w: handle %s: %w", errorcodes.ErrLoadFailed, h.id, err)
	}

	return v, nil
}
