// Package server provides server-related CLI commands.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/andrei-cloud/go_assetpool/internal/config"
	"github.com/andrei-cloud/go_assetpool/internal/metrics"
	"github.com/andrei-cloud/go_assetpool/internal/plugins"
	"github.com/andrei-cloud/go_assetpool/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the asset command server",
		Long: `Load every WASM asset in the asset directory into its own instance pool
and serve commands over TCP. SIGHUP reloads the asset directory.`,
		RunE: runServe,
	}

	// Serve flags override config.
	cmd.Flags().String("host", "localhost", "Server host")
	cmd.Flags().Int("port", 1500, "Server port")
	cmd.Flags().String("metrics-address", "", "address of the Prometheus /metrics endpoint (disabled when empty)")

	v := config.GetViper()
	for key, flag := range map[string]string{
		"server.host":     "host",
		"server.port":     "port",
		"metrics.address": "metrics-address",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}

	return cmd, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := os.MkdirAll(cfg.Assets.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	poolCfg := cfg.AssetSettings()
	poolCfg.Observer = metrics.NewPoolObserver(reg)

	pm, err := loadPlugins(ctx, poolCfg, cfg.Assets.Path)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg.Address(), pm, server.DefaultConfig())
	if err != nil {
		_ = pm.Close(ctx)

		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Address, reg); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	// Reload assets on SIGHUP.
	reloadChan := make(chan os.Signal, 1)
	signal.Notify(reloadChan, syscall.SIGHUP)
	defer signal.Stop(reloadChan)

	var mu sync.Mutex
	active := pm
	go func() {
		for range reloadChan {
			log.Info().Msg("reloading assets...")

			next, err := loadPlugins(ctx, poolCfg, cfg.Assets.Path)
			if err != nil {
				log.Error().Err(err).Msg("failed to reload assets")

				continue
			}

			mu.Lock()
			old := active
			active = next
			srv.SetExecutor(next)
			mu.Unlock()

			if err := old.Close(ctx); err != nil {
				log.Error().Err(err).Msg("failed to close previous plugin manager")
			}
			log.Info().Int("plugins", len(next.ListPlugins())).Msg("assets reloaded")
		}
	}()

	startErr := make(chan error, 1)
	go func() {
		startErr <- srv.Start()
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopChan)

	select {
	case <-stopChan:
	case <-ctx.Done():
	case err := <-startErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		<-stopChan
	}
	log.Info().Msg("shutting down server...")

	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	mu.Lock()
	defer mu.Unlock()

	return active.Close(context.Background())
}

func loadPlugins(ctx context.Context, cfg plugins.PoolConfig, dir string) (*plugins.PluginManager, error) {
	pm, err := plugins.NewPluginManager(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize plugin manager: %w", err)
	}

	if err := pm.LoadAll(ctx, dir); err != nil {
		_ = pm.Close(ctx)

		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	for _, info := range pm.ListPlugins() {
		log.Debug().
			Str("command", info.CommandCode).
			Strs("exports", info.Exports).
			Int("instances", info.Stats.Size).
			Msg("plugin details")
	}

	return pm, nil
}
