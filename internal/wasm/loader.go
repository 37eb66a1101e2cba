package wasm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/loader"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Ext is the file extension of asset modules.
const Ext = ".wasm"

// Loader resolves asset keys to WASM modules: "<dir>/<key>.wasm" or code
// registered in memory. Each key is compiled at most once; concurrent loads
// of the same key share one compilation.
type Loader struct {
	rt  *Runtime
	dir string

	mu        sync.RWMutex
	code      map[string][]byte
	templates map[string]*Instance

	group singleflight.Group
}

var _ loader.Loader[*Instance] = (*Loader)(nil)

// NewLoader returns a Loader reading modules from dir. An empty dir means
// only registered code is available.
func NewLoader(rt *Runtime, dir string) *Loader {
	return &Loader{
		rt:        rt,
		dir:       dir,
		code:      make(map[string][]byte),
		templates: make(map[string]*Instance),
	}
}

// Dir returns the asset directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Register makes code available under key, ahead of any file with that name.
func (l *Loader) Register(key string, code []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.code[key] = code
	delete(l.templates, key)
}

// Keys returns every loadable key, sorted: registered code plus the .wasm
// files of the asset directory.
func (l *Loader) Keys() ([]string, error) {
	seen := make(map[string]bool)

	l.mu.RLock()
	for k := range l.code {
		seen[k] = true
	}
	l.mu.RUnlock()

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read asset dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != Ext {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), Ext)] = true
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

// Load resolves the template of key. The template is shared; clone it to
// execute.
func (l *Loader) Load(ctx context.Context, key string) *loader.Future[*Instance] {
	return loader.Go(ctx, func(ctx context.Context) (*Instance, error) {
		return l.template(ctx, key)
	})
}

// Instantiate resolves a fresh executable instance of key.
func (l *Loader) Instantiate(ctx context.Context, key string) *loader.Future[*Instance] {
	return loader.Go(ctx, func(ctx context.Context) (*Instance, error) {
		tpl, err := l.template(ctx, key)
		if err != nil {
			return nil, err
		}

		inst, err := tpl.Clone(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", errorcodes.ErrLoadFailed, key, err)
		}

		return inst, nil
	})
}

func (l *Loader) template(ctx context.Context, key string) (*Instance, error) {
	l.mu.RLock()
	tpl, ok := l.templates[key]
	l.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	v, err, shared := l.group.Do(key, func() (any, error) {
		code, err := l.read(key)
		if err != nil {
			return nil, err
		}

		compiled, err := l.rt.Compile(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", errorcodes.ErrLoadFailed, key, err)
		}

		tpl := newTemplate(l.rt, key, compiled)
		l.mu.Lock()
		l.templates[key] = tpl
		l.mu.Unlock()

		log.Info().Str("event", "wasm_compile").Str("key", key).Msg("asset module compiled")

		return tpl, nil
	})
	if err != nil {
		log.Error().Err(err).Str("event", "wasm_load_failed").Str("key", key).Msg("asset load failed")

		return nil, err
	}
	if shared {
		log.Debug().Str("event", "wasm_load_shared").Str("key", key).Msg("joined in-flight compilation")
	}

	tpl, _ = v.(*Instance)

	return tpl, nil
}

func (l *Loader) read(key string) ([]byte, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return nil, fmt.Errorf("%w: %w: key %q", errorcodes.ErrLoadFailed, errorcodes.ErrInvalidArgument, key)
	}

	l.mu.RLock()
	code, ok := l.code[key]
	l.mu.RUnlock()
	if ok {
		return code, nil
	}

	if l.dir == "" {
		return nil, fmt.Errorf("%w: %w: key %q", errorcodes.ErrLoadFailed, errorcodes.ErrUnknownAsset, key)
	}

	code, err := os.ReadFile(filepath.Join(l.dir, key+Ext))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w: key %q", errorcodes.ErrLoadFailed, errorcodes.ErrUnknownAsset, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", errorcodes.ErrLoadFailed, key, err)
	}

	return code, nil
}
