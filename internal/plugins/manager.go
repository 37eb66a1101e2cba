// Package plugins serves WASM asset commands from per-command entity pools.
package plugins

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_assetpool/internal/assets"
	"github.com/andrei-cloud/go_assetpool/internal/wasm"
	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/pool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PoolConfig sizes the pool created for every command. ReturnDelay is unused:
// command instances are returned as soon as the command completes.
type PoolConfig = assets.Settings

// DefaultPoolConfig returns the sizing used when none is configured.
func DefaultPoolConfig() PoolConfig {
	return assets.DefaultSettings()
}

type commandPool = pool.EntityPool[*wasm.Instance]

// PluginManager keeps one EntityPool of WASM instances per command. The
// compiled module is the pool's source; every slot is an instantiation of it.
type PluginManager struct {
	rt  *wasm.Runtime
	cfg PoolConfig

	mu       sync.RWMutex
	loader   *wasm.Loader
	pools    map[string]*commandPool
	registry *PluginRegistry
}

var _ Executor = (*PluginManager)(nil)

// NewPluginManager returns a PluginManager with its own WASM runtime.
func NewPluginManager(ctx context.Context, cfg PoolConfig) (*PluginManager, error) {
	rt, err := wasm.NewRuntime(ctx)
	if err != nil {
		return nil, err
	}

	return &PluginManager{
		rt:       rt,
		cfg:      cfg,
		loader:   wasm.NewLoader(rt, ""),
		pools:    make(map[string]*commandPool),
		registry: NewPluginRegistry(),
	}, nil
}

// Settings returns the sizing of every command pool.
func (pm *PluginManager) Settings() PoolConfig {
	return pm.cfg
}

// LoadAll replaces the loaded commands with the modules found in dir. Pools
// are populated concurrently; a module that fails to load is logged and
// skipped.
func (pm *PluginManager) LoadAll(ctx context.Context, dir string) error {
	ld := wasm.NewLoader(pm.rt, dir)
	keys, err := ld.Keys()
	if err != nil {
		return err
	}

	pools := make(map[string]*commandPool, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, key := range keys {
		g.Go(func() error {
			ep, err := pm.buildPool(gctx, ld, key)
			if err != nil {
				log.Error().Err(err).Str("plugin", key).Msg("failed to load plugin")

				return nil
			}
			mu.Lock()
			pools[key] = ep
			mu.Unlock()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	pm.swap(ctx, ld, pools)

	return nil
}

// Register loads code under key next to the already loaded commands.
func (pm *PluginManager) Register(ctx context.Context, key string, code []byte) error {
	pm.mu.RLock()
	ld := pm.loader
	pm.mu.RUnlock()

	ld.Register(key, code)
	ep, err := pm.buildPool(ctx, ld, key)
	if err != nil {
		return err
	}

	pm.mu.Lock()
	old := pm.pools[key]
	pm.pools[key] = ep
	pm.registerInfo(key, ep)
	pm.mu.Unlock()

	if old != nil {
		old.Reset(ctx)
	}

	return nil
}

func (pm *PluginManager) buildPool(ctx context.Context, ld *wasm.Loader, key string) (*commandPool, error) {
	m := assets.NewManager[*wasm.Instance](ld, pm.cfg)

	ep, err := m.NewEntityPool(ctx, key, pool.WithParent(pool.NewGroup(key)))
	if err != nil {
		return nil, err
	}

	log.Info().Str("plugin", key).Int("instances", ep.Len()).Msg("loaded wasm plugin")

	return ep, nil
}

func (pm *PluginManager) swap(ctx context.Context, ld *wasm.Loader, pools map[string]*commandPool) {
	pm.mu.Lock()
	old := pm.pools
	pm.loader = ld
	pm.pools = pools
	pm.registry = NewPluginRegistry()
	for key, ep := range pools {
		pm.registerInfo(key, ep)
	}
	pm.mu.Unlock()

	for _, ep := range old {
		ep.Reset(ctx)
	}
}

func (pm *PluginManager) registerInfo(key string, ep *commandPool) {
	info := &PluginInfo{CommandCode: key}
	if src, ok := ep.Source(); ok {
		info.Exports = src.Exports()
	}
	pm.registry.Register(info)
}

// ExecuteCommand acquires an instance of cmd, runs input through it and
// returns the instance to its pool.
func (pm *PluginManager) ExecuteCommand(ctx context.Context, cmd string, input []byte) ([]byte, error) {
	pm.mu.RLock()
	ep, ok := pm.pools[cmd]
	pm.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: command %q", errorcodes.ErrUnknownAsset, cmd)
	}

	inst, err := ep.Get(ctx, pm.cfg.ExpandBy)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", cmd, err)
	}
	defer ep.ReturnToPool(inst)

	resp, err := inst.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("event", "plugin_response").
		Str("command", cmd).
		Str("instance", inst.ID().String()).
		Str("response_hex", hex.EncodeToString(resp)).
		Msg("plugin execution response")

	return resp, nil
}

// ListPlugins describes every loaded command with its current pool stats.
func (pm *PluginManager) ListPlugins() []PluginInfo {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	infos := pm.registry.List()
	out := make([]PluginInfo, 0, len(infos))
	for _, info := range infos {
		cp := *info
		if ep, ok := pm.pools[info.CommandCode]; ok {
			cp.Stats = ep.Stats()
		}
		out = append(out, cp)
	}

	return out
}

// Stats returns the pool stats of every loaded command.
func (pm *PluginManager) Stats() []pool.Stats {
	infos := pm.ListPlugins()
	out := make([]pool.Stats, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Stats)
	}

	return out
}

// Close disposes every pooled instance and the WASM runtime.
func (pm *PluginManager) Close(ctx context.Context) error {
	pm.mu.Lock()
	pools := pm.pools
	pm.pools = make(map[string]*commandPool)
	pm.registry = NewPluginRegistry()
	pm.mu.Unlock()

	for _, ep := range pools {
		ep.Reset(ctx)
	}

	return pm.rt.Close(ctx)
}
