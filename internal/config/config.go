// Package config loads go_assetpool settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andrei-cloud/go_assetpool/internal/assets"
	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/spf13/viper"
)

const (
	dirName   = ".go_assetpool"
	envPrefix = "GOASSETPOOL"
)

var (
	configData Config
	v          = viper.New()
)

// Config holds all configuration settings.
type Config struct {
	Server struct {
		Host string
		Port int
	}
	Assets struct {
		Path string
	}
	Pool struct {
		InitialSize   int           `mapstructure:"initial_size"`
		ExpandBy      int           `mapstructure:"expand_by"`
		MaxSize       int           `mapstructure:"max_size"`
		ReturnDelay   time.Duration `mapstructure:"return_delay"`
		LoaderHandles int           `mapstructure:"loader_handles"`
	}
	Metrics struct {
		Address string
	}
	Log struct {
		Level  string
		Format string
	}
}

const defaultConfig = `# go_assetpool configuration
server:
  host: localhost
  port: 1500

assets:
  path: assets

pool:
  initial_size: 4
  expand_by: 1
  max_size: 0
  return_delay: 5s
  loader_handles: 10

metrics:
  address: ""

log:
  level: info
  format: human
`

// Initialize sets up the global configuration. An empty cfgFile searches
// ".", $HOME/.go_assetpool and /etc/go_assetpool, creating a default file in
// $HOME/.go_assetpool on first run.
func Initialize(cfgFile string) error {
	if cfgFile == "" {
		if err := ensureConfig(); err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	cfg, err := Load(v, cfgFile)
	if err != nil {
		return err
	}
	configData = *cfg

	return nil
}

// Load configures vp with defaults, search paths and environment binding,
// reads the config file and decodes it.
func Load(vp *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath(".")
		vp.AddConfigPath(filepath.Join("$HOME", dirName))
		vp.AddConfigPath("/etc/go_assetpool/")
	}

	setDefaults(vp)

	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("server.host", "localhost")
	vp.SetDefault("server.port", 1500)

	vp.SetDefault("assets.path", "assets")

	vp.SetDefault("pool.initial_size", 4)
	vp.SetDefault("pool.expand_by", 1)
	vp.SetDefault("pool.max_size", 0)
	vp.SetDefault("pool.return_delay", "5s")
	vp.SetDefault("pool.loader_handles", 10)

	vp.SetDefault("metrics.address", "")

	vp.SetDefault("log.level", "info")
	vp.SetDefault("log.format", "human")
}

// ensureConfig creates $HOME/.go_assetpool/config.yaml if it is missing.
func ensureConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// Validate rejects settings no pool can be built from.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d", errorcodes.ErrInvalidArgument, c.Server.Port)
	case c.Pool.InitialSize < 0:
		return fmt.Errorf("%w: pool.initial_size %d", errorcodes.ErrInvalidArgument, c.Pool.InitialSize)
	case c.Pool.MaxSize < 0:
		return fmt.Errorf("%w: pool.max_size %d", errorcodes.ErrInvalidArgument, c.Pool.MaxSize)
	case c.Pool.MaxSize > 0 && c.Pool.InitialSize > c.Pool.MaxSize:
		return fmt.Errorf("%w: pool.initial_size %d exceeds pool.max_size %d",
			errorcodes.ErrInvalidArgument, c.Pool.InitialSize, c.Pool.MaxSize)
	case c.Pool.ReturnDelay < 0:
		return fmt.Errorf("%w: pool.return_delay %s", errorcodes.ErrInvalidArgument, c.Pool.ReturnDelay)
	case c.Pool.LoaderHandles < 0:
		return fmt.Errorf("%w: pool.loader_handles %d", errorcodes.ErrInvalidArgument, c.Pool.LoaderHandles)
	}

	return nil
}

// AssetSettings returns the pool sizing as assets.Settings. The observer is
// left for the caller to set.
func (c *Config) AssetSettings() assets.Settings {
	return assets.Settings{
		InitialSize:   c.Pool.InitialSize,
		ExpandBy:      c.Pool.ExpandBy,
		MaxSize:       c.Pool.MaxSize,
		ReturnDelay:   c.Pool.ReturnDelay,
		LoaderHandles: c.Pool.LoaderHandles,
	}
}

// Address returns the server listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}

// GetViper returns the viper instance flags are bound to.
func GetViper() *viper.Viper {
	return v
}
