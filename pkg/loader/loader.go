package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
)

// Loader asynchronously produces assets by key. Every failure reported through
// the returned future wraps errorcodes.ErrLoadFailed.
type Loader[E any] interface {
	// Load resolves the asset stored under key, e.g. a template to clone from.
	Load(ctx context.Context, key string) *Future[E]

	// Instantiate resolves a fresh, independent instance of the asset under key.
	Instantiate(ctx context.Context, key string) *Future[E]
}

// Factory builds one asset value.
type Factory[E any] func(ctx context.Context) (E, error)

// Static is an in-memory Loader over registered factories.
// Load and Instantiate both call the factory on a new goroutine.
type Static[E any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[E]
}

// NewStatic returns an empty Static loader.
func NewStatic[E any]() *Static[E] {
	return &Static[E]{factories: make(map[string]Factory[E])}
}

// Register adds or replaces the factory for key.
func (s *Static[E]) Register(key string, factory Factory[E]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.factories[key] = factory
}

// Keys returns the registered keys in no particular order.
func (s *Static[E]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.factories))
	for k := range s.factories {
		keys = append(keys, k)
	}

	return keys
}

// Load implements Loader.
func (s *Static[E]) Load(ctx context.Context, key string) *Future[E] {
	return s.run(ctx, key)
}

// Instantiate implements Loader.
func (s *Static[E]) Instantiate(ctx context.Context, key string) *Future[E] {
	return s.run(ctx, key)
}

func (s *Static[E]) run(ctx context.Context, key string) *Future[E] {
	s.mu.RLock()
	factory, ok := s.factories[key]
	s.mu.RUnlock()

	if !ok {
		return Failed[E](fmt.Errorf("%w: key %q: %w", errorcodes.ErrLoadFailed, key, errorcodes.ErrUnknownAsset))
	}

	return Go(ctx, func(ctx context.Context) (E, error) {
		v, err := factory(ctx)
		if err != nil {
			return v, fmt.Errorf("%w: key %q: %w", errorcodes.ErrLoadFailed, key, err)
		}

		return v, nil
	})
}
