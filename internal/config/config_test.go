package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "localhost:1500", cfg.Address())
	assert.Equal(t, "assets", cfg.Assets.Path)
	assert.Equal(t, 4, cfg.Pool.InitialSize)
	assert.Equal(t, 1, cfg.Pool.ExpandBy)
	assert.Zero(t, cfg.Pool.MaxSize)
	assert.Equal(t, 5*time.Second, cfg.Pool.ReturnDelay)
	assert.Equal(t, 10, cfg.Pool.LoaderHandles)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "human", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 1600
pool:
  initial_size: 2
  max_size: 16
  return_delay: 250ms
log:
  format: json
`)
	t.Setenv("GOASSETPOOL_POOL_EXPAND_BY", "3")
	t.Setenv("GOASSETPOOL_ASSETS_PATH", "/srv/assets")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:1600", cfg.Address())
	assert.Equal(t, 2, cfg.Pool.InitialSize)
	assert.Equal(t, 3, cfg.Pool.ExpandBy)
	assert.Equal(t, 16, cfg.Pool.MaxSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Pool.ReturnDelay)
	assert.Equal(t, "/srv/assets", cfg.Assets.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsInvalidPools(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative initial", "pool:\n  initial_size: -1\n"},
		{"initial over max", "pool:\n  initial_size: 8\n  max_size: 4\n"},
		{"negative delay", "pool:\n  return_delay: -1s\n"},
		{"port", "server:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.body))
			require.ErrorIs(t, err, errorcodes.ErrInvalidArgument)
		})
	}
}

func TestInitializeWritesDefaultFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	v = viper.New()

	require.NoError(t, Initialize(""))

	data, err := os.ReadFile(filepath.Join(home, dirName, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "return_delay: 5s")
	assert.Equal(t, 4, Get().Pool.InitialSize)
	assert.Same(t, v, GetViper())
}

func TestAssetSettings(t *testing.T) {
	path := writeConfig(t, `
pool:
  initial_size: 3
  expand_by: 2
  max_size: 12
  return_delay: 750ms
  loader_handles: 6
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	s := cfg.AssetSettings()
	assert.Equal(t, 3, s.InitialSize)
	assert.Equal(t, 2, s.ExpandBy)
	assert.Equal(t, 12, s.MaxSize)
	assert.Equal(t, 750*time.Millisecond, s.ReturnDelay)
	assert.Equal(t, 6, s.LoaderHandles)
	assert.Nil(t, s.Observer)
}
