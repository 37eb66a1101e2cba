package pool

import (
	"context"

	"github.com/andrei-cloud/go_assetpool/pkg/loader"
)

// LoaderHandlePool recycles load handles. A handle is available while its
// result slot is empty; Get reclaims a handle still holding a result from an
// earlier load in the same scan that finds it.
type LoaderHandlePool[E any] struct {
	*Pool[*loader.Handle[E]]
}

// NewLoaderHandlePool returns an empty handle pool. Call Initialize before Get.
func NewLoaderHandlePool[E any](opts ...Option) *LoaderHandlePool[E] {
	return &LoaderHandlePool[E]{
		Pool: New(Policy[*loader.Handle[E]]{
			Construct: func(context.Context) (*loader.Handle[E], error) {
				return loader.NewHandle[E](), nil
			},
			Available: func(h *loader.Handle[E]) bool { return h.Empty() },
			Stale:     func(h *loader.Handle[E]) bool { return !h.Empty() },
			Release:   func(h *loader.Handle[E]) { h.Clear() },
		}, opts...),
	}
}
