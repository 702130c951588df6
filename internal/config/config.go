// Package config loads tncctl's configuration from a YAML file plus
// TNC_-prefixed environment overrides, the way the original's command-line
// flags and config.yaml together selected the registry store path,
// credential directories, and discovery parameters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds tncctl's whole runtime configuration.
type Config struct {
	Registry    RegistryConfig    `mapstructure:"registry"`
	Discovery   DiscoveryConfig   `mapstructure:"discovery"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Log         LogConfig         `mapstructure:"log"`
}

// RegistryConfig points at the Registry's on-disk JSON store.
type RegistryConfig struct {
	StorePath string `mapstructure:"store_path"`
}

// DiscoveryConfig configures the mDNS Border Agent discovery engine.
type DiscoveryConfig struct {
	Interface   string        `mapstructure:"interface"`
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`
	Enable      bool          `mapstructure:"enable"`
}

// CredentialsConfig points at the cert/key/PSKc directory tree.
type CredentialsConfig struct {
	Root string `mapstructure:"root"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	configDir, _ := os.UserConfigDir()
	return &Config{
		Registry: RegistryConfig{
			StorePath: filepath.Join(configDir, "tncctl", "registry.json"),
		},
		Discovery: DiscoveryConfig{
			ScanTimeout: 3 * time.Second,
			Enable:      true,
		},
		Credentials: CredentialsConfig{
			Root: filepath.Join(configDir, "tncctl", "credentials"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from file and environment, falling back to
// DefaultConfig for anything neither source sets.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("tncctl")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tncctl")
		v.AddConfigPath("/etc/tncctl")
	}

	v.SetEnvPrefix("TNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("registry.store_path", cfg.Registry.StorePath)

	v.SetDefault("discovery.interface", cfg.Discovery.Interface)
	v.SetDefault("discovery.scan_timeout", cfg.Discovery.ScanTimeout)
	v.SetDefault("discovery.enable", cfg.Discovery.Enable)

	v.SetDefault("credentials.root", cfg.Credentials.Root)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// WriteExample writes an example config file.
func WriteExample(path string) error {
	example := `# tncctl configuration

registry:
  store_path: ~/.config/tncctl/registry.json

discovery:
  interface: ""         # empty = default multicast-capable interface
  scan_timeout: 3s
  enable: true

credentials:
  root: ~/.config/tncctl/credentials

log:
  level: info            # debug, info, warn, error
  format: console         # console, json
  # file: /var/log/tncctl.log
`
	return os.WriteFile(path, []byte(example), 0644)
}
