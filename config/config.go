// Package config loads rxserver's startup configuration: listen address,
// display number, virtual display resolution, Xauthority override, log
// format, and plugin search paths. Values come from a TOML file merged
// through spf13/viper with RXSERVER_*-prefixed environment overrides,
// following the same defaults-then-merge shape as the teacher's am
// package.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/rxserver/rxserver/errors"
)

// Config is the resolved, typed configuration for one server instance.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
	Plugin PluginConfig `mapstructure:"plugin"`
}

type ServerConfig struct {
	DisplayNumber int    `mapstructure:"display_number"`
	ListenAddress string `mapstructure:"listen_address"`
	UnixSocket    bool   `mapstructure:"unix_socket"`
	Width         uint16 `mapstructure:"width"`
	Height        uint16 `mapstructure:"height"`
	WidthMM       uint16 `mapstructure:"width_mm"`
	HeightMM      uint16 `mapstructure:"height_mm"`
	Vendor        string `mapstructure:"vendor"`
}

type AuthConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	XauthorityPath  string `mapstructure:"xauthority_path"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Theme string `mapstructure:"theme"`
}

type PluginConfig struct {
	Enabled []string `mapstructure:"enabled"`
	Paths   []string `mapstructure:"paths"`
}

// TCPPort is the TCP port this server listens on: 6000 + display number,
// the X11 convention.
func (c *Config) TCPPort() int {
	return 6000 + c.Server.DisplayNumber
}

// UnixSocketPath is the conventional Unix-domain socket path for this
// display number.
func (c *Config) UnixSocketPath() string {
	return "/tmp/.X11-unix/X" + itoa(c.Server.DisplayNumber)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

var (
	globalConfig *Config
	viperInstance *viper.Viper
)

// SetDefaults installs the defaults documented in the [server]/[auth]/[log]/
// [plugin] sections: every field has a usable zero-config value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.display_number", 0)
	v.SetDefault("server.listen_address", "127.0.0.1")
	v.SetDefault("server.unix_socket", true)
	v.SetDefault("server.width", 1024)
	v.SetDefault("server.height", 768)
	v.SetDefault("server.width_mm", 270)
	v.SetDefault("server.height_mm", 203)
	v.SetDefault("server.vendor", "rxserver")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.xauthority_path", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")

	v.SetDefault("plugin.enabled", []string{})
	v.SetDefault("plugin.paths", []string{
		"~/.rxserver/plugins",
		"./plugins",
	})
}

// Load reads configuration from configPath (if non-empty) merged with
// RXSERVER_*-prefixed environment overrides and the defaults above. An
// absent config file is not an error: Load returns pure defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("RXSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "config: reading %s", configPath)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}

	viperInstance = v
	globalConfig = &cfg
	return &cfg, nil
}

// Global returns the most recently Load-ed configuration, or nil if Load
// has not been called yet.
func Global() *Config { return globalConfig }

// Reset clears cached load state, used by tests and by ConfigWatcher reload.
func Reset() {
	globalConfig = nil
	viperInstance = nil
}
