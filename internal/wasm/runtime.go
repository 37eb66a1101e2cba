// Package wasm serves WASM modules as pooled assets: a compiled module is the
// source template and every pooled entity is a fresh instantiation of it.
package wasm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Runtime owns a wazero runtime with WASI and the "env" host module installed.
type Runtime struct {
	rt wazero.Runtime
}

// NewRuntime creates a runtime ready to compile asset modules.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	rt := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)

		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	if err := registerHostFunctions(ctx, rt); err != nil {
		_ = rt.Close(ctx)

		return nil, err
	}

	return &Runtime{rt: rt}, nil
}

// Compile validates and compiles code. The result is safe to instantiate
// concurrently.
func (r *Runtime) Compile(ctx context.Context, code []byte) (wazero.CompiledModule, error) {
	compiled, err := r.rt.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	return compiled, nil
}

// Close releases every module instantiated in the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

func registerHostFunctions(ctx context.Context, rt wazero.Runtime) error {
	env := rt.NewHostModuleBuilder("env")

	env.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr, size uint32) {
			hostLog(m, ptr, size, "debug")
		}).
		Export("log_debug")

	env.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr, size uint32) {
			hostLog(m, ptr, size, "info")
		}).
		Export("log_info")

	env.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr, size uint32) {
			hostLog(m, ptr, size, "error")
		}).
		Export("log_error")

	if _, err := env.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate env module: %w", err)
	}

	return nil
}

func hostLog(m api.Module, ptr, size uint32, level string) {
	data, err := readMemory(m, ptr, size)
	if err != nil {
		log.Error().Err(err).Str("module", m.Name()).Msg("failed to read guest log message")

		return
	}

	ev := log.Debug()
	switch level {
	case "info":
		ev = log.Info()
	case "error":
		ev = log.Error()
	}
	ev.Str("source", "wasm").Str("module", m.Name()).Msg(string(data))
}
