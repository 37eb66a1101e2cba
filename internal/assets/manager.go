// Package assets is the loading front end shared by every pool of a process:
// it loads and instantiates assets through one Loader and builds pools sized
// from common settings.
package assets

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/loader"
	"github.com/andrei-cloud/go_assetpool/pkg/pool"
	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultLoaderHandles is the size of the handle pool created on first use.
const DefaultLoaderHandles = 10

// Settings size the pools a Manager builds.
type Settings struct {
	InitialSize   int
	ExpandBy      int
	MaxSize       int
	ReturnDelay   time.Duration
	LoaderHandles int
	Observer      pool.Observer
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		InitialSize:   4,
		ExpandBy:      pool.DefaultExpandBy,
		ReturnDelay:   5 * time.Second,
		LoaderHandles: DefaultLoaderHandles,
	}
}

// Manager loads assets of type E. Its lifetime is owned by the caller; pass
// it to the components that need pooling.
type Manager[E pool.Template[E]] struct {
	loader   loader.Loader[E]
	settings Settings

	loading atomic.Int64

	handlesMu sync.Mutex
	handles   *pool.LoaderHandlePool[E]
}

// NewManager returns a Manager loading through l.
func NewManager[E pool.Template[E]](l loader.Loader[E], s Settings) *Manager[E] {
	if s.LoaderHandles <= 0 {
		s.LoaderHandles = DefaultLoaderHandles
	}

	return &Manager[E]{loader: l, settings: s}
}

// Settings returns the pool settings.
func (m *Manager[E]) Settings() Settings {
	return m.settings
}

// CurrentlyLoading reports whether any load started by the Manager is in flight.
func (m *Manager[E]) CurrentlyLoading() bool {
	return m.loading.Load() > 0
}

// Load returns the asset stored under key.
func (m *Manager[E]) Load(ctx context.Context, key string) (E, error) {
	return m.track(ctx, key, m.loader.Load(ctx, key))
}

// Instantiate returns a fresh instance of the asset under key.
func (m *Manager[E]) Instantiate(ctx context.Context, key string) (E, error) {
	return m.track(ctx, key, m.loader.Instantiate(ctx, key))
}

func (m *Manager[E]) track(ctx context.Context, key string, f *loader.Future[E]) (E, error) {
	m.loading.Add(1)
	defer m.loading.Add(-1)

	v, err := f.Await(ctx)
	if err != nil {
		log.Error().Err(err).Str("event", "asset_load_failed").Str("key", key).Msg("asset load failed")
	}

	return v, err
}

// Release gives back an asset or instance obtained from the Manager. Entities
// holding resources beyond memory are disposed; a nil entity is ignored.
func (m *Manager[E]) Release(ctx context.Context, e E) error {
	var zero E
	if e == zero {
		return nil
	}

	d, ok := any(e).(pool.Disposable)
	if !ok {
		return nil
	}
	if err := d.Dispose(ctx); err != nil {
		log.Error().Err(err).Str("event", "asset_release_failed").Msg("asset release failed")

		return err
	}
	log.Debug().Str("event", "asset_released").Msg("asset released")

	return nil
}

// LoadMany loads keys concurrently and returns them by key. The first failure
// cancels the remaining loads.
func (m *Manager[E]) LoadMany(ctx context.Context, keys []string) (map[string]E, error) {
	var mu sync.Mutex
	out := make(map[string]E, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		g.Go(func() error {
			v, err := m.Load(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = v
			mu.Unlock()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// LoaderHandles returns the handle pool, populating it on first use.
func (m *Manager[E]) LoaderHandles(ctx context.Context) (*pool.LoaderHandlePool[E], error) {
	m.handlesMu.Lock()
	defer m.handlesMu.Unlock()

	if m.handles != nil {
		return m.handles, nil
	}

	hp := pool.NewLoaderHandlePool[E](pool.WithName("loader-handles"))
	if err := hp.Initialize(ctx, m.settings.LoaderHandles); err != nil {
		return nil, fmt.Errorf("%w: %w", errorcodes.ErrLoaderHandleFailed, err)
	}
	m.handles = hp

	return hp, nil
}

// TryInstantiate instantiates key through a pooled handle. The result stays
// in the handle until a later acquisition reclaims it.
func (m *Manager[E]) TryInstantiate(ctx context.Context, key string) (E, error) {
	var zero E

	hp, err := m.LoaderHandles(ctx)
	if err != nil {
		return zero, err
	}

	h, err := hp.Get(ctx, m.settings.ExpandBy)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", errorcodes.ErrLoaderHandleFailed, err)
	}

	m.loading.Add(1)
	defer m.loading.Add(-1)

	v, err := h.Instantiate(ctx, m.loader, key)
	if err != nil {
		hp.ReturnToPool(h)

		return zero, err
	}

	log.Debug().
		Str("event", "asset_instantiated").
		Str("key", key).
		Str("handle", h.ID().String()).
		Msg("asset instantiated through loader handle")

	return v, nil
}

func (m *Manager[E]) poolOptions(name string, opts []pool.Option) []pool.Option {
	base := []pool.Option{pool.WithName(name), pool.WithMaxSize(m.settings.MaxSize)}
	if m.settings.Observer != nil {
		base = append(base, pool.WithObserver(m.settings.Observer))
	}

	return append(base, opts...)
}

// NewEntityPool builds an EntityPool whose source is key, populated with
// Settings.InitialSize entities. opts are applied after the defaults.
func (m *Manager[E]) NewEntityPool(ctx context.Context, key string, opts ...pool.Option) (*pool.EntityPool[E], error) {
	ep := pool.NewEntityPool[E](m.poolOptions(key, opts)...)
	if err := m.initialize(ctx, ep, key); err != nil {
		return nil, err
	}

	return ep, nil
}

// NewTimedPool builds a TimedPool whose source is key and whose returns run
// on sched after Settings.ReturnDelay.
func (m *Manager[E]) NewTimedPool(
	ctx context.Context,
	key string,
	sched *scheduler.Scheduler,
	opts ...pool.Option,
) (*pool.TimedPool[E], error) {
	tp := pool.NewTimedPool[E](sched, m.settings.ReturnDelay, m.poolOptions(key, opts)...)
	if err := m.initialize(ctx, tp.EntityPool, key); err != nil {
		return nil, err
	}

	return tp, nil
}

func (m *Manager[E]) initialize(ctx context.Context, ep *pool.EntityPool[E], key string) error {
	m.loading.Add(1)
	defer m.loading.Add(-1)

	return ep.InitializeFromSource(ctx, m.loader, key, m.settings.InitialSize)
}
