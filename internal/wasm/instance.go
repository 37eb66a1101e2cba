package wasm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/guest"
	"github.com/andrei-cloud/go_assetpool/pkg/pool"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Export names every asset module must provide.
const (
	ExportAlloc   = "Alloc"
	ExportExecute = "Execute"
)

// Instance is one WASM asset. A template holds only the compiled module and is
// never executed; Clone instantiates it into an executable entity.
type Instance struct {
	id       uuid.UUID
	key      string
	rt       *Runtime
	compiled wazero.CompiledModule

	mu      sync.Mutex
	module  api.Module
	alloc   api.Function
	execute api.Function

	active atomic.Bool
	parent pool.Parent
}

func newTemplate(rt *Runtime, key string, compiled wazero.CompiledModule) *Instance {
	return &Instance{id: uuid.New(), key: key, rt: rt, compiled: compiled}
}

// ID identifies the instance; it is also part of its module name.
func (i *Instance) ID() uuid.UUID {
	return i.id
}

// Key returns the asset key the instance was loaded from.
func (i *Instance) Key() string {
	return i.key
}

// Template reports whether i is an uninstantiated source.
func (i *Instance) Template() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.module == nil
}

func (i *Instance) Activate()    { i.active.Store(true) }
func (i *Instance) Deactivate()  { i.active.Store(false) }
func (i *Instance) Active() bool { return i.active.Load() }

// AttachTo records the group the instance belongs to.
func (i *Instance) AttachTo(p pool.Parent) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.parent = p
}

// Parent returns the group set by AttachTo.
func (i *Instance) Parent() (pool.Parent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.parent, i.parent != nil
}

// Clone instantiates the compiled module under a unique name. Start functions
// are not run. It fails with errorcodes.ErrMissingExport if the module does not
// export Alloc and Execute.
func (i *Instance) Clone(ctx context.Context) (*Instance, error) {
	id := uuid.New()
	cfg := wazero.NewModuleConfig().
		WithName(i.key + "-" + id.String()).
		WithStartFunctions()

	mod, err := i.rt.rt.InstantiateModule(ctx, i.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %q: %w", i.key, err)
	}

	alloc := mod.ExportedFunction(ExportAlloc)
	execute := mod.ExportedFunction(ExportExecute)
	if alloc == nil || execute == nil {
		_ = mod.Close(ctx)

		return nil, fmt.Errorf("%w: module %q needs %s and %s",
			errorcodes.ErrMissingExport, i.key, ExportAlloc, ExportExecute)
	}

	log.Debug().
		Str("event", "wasm_instantiate").
		Str("key", i.key).
		Str("instance", id.String()).
		Msg("asset module instantiated")

	return &Instance{
		id:       id,
		key:      i.key,
		rt:       i.rt,
		compiled: i.compiled,
		module:   mod,
		alloc:    alloc,
		execute:  execute,
	}, nil
}

// Execute writes input into guest memory, calls Execute and returns a copy of
// the guest's response.
func (i *Instance) Execute(ctx context.Context, input []byte) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.module == nil {
		return nil, fmt.Errorf("%w: %q is a template", errorcodes.ErrNotReady, i.key)
	}

	ptr, err := allocAndWrite(ctx, i.module, i.alloc, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errorcodes.ErrExecutionFailed, i.key, err)
	}

	packed, err := callExecute(ctx, i.execute, ptr, uint32(len(input)))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errorcodes.ErrExecutionFailed, i.key, err)
	}

	outPtr, outLen := guest.UnpackResult(packed)
	resp, err := readMemory(i.module, outPtr, outLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errorcodes.ErrExecutionFailed, i.key, err)
	}

	return resp, nil
}

// Exports returns the names of the functions the module exports, sorted.
func (i *Instance) Exports() []string {
	defs := i.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Dispose closes the instantiated module. Templates have nothing to close.
func (i *Instance) Dispose(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.module == nil {
		return nil
	}
	err := i.module.Close(ctx)
	i.module, i.alloc, i.execute = nil, nil, nil

	return err
}
