// Package config loads the ratefunc command configuration from defaults,
// an optional YAML file and RATEFUNC_* environment variables, in increasing
// order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to the upper-cased key path of every setting, with
// dots replaced by underscores: RATEFUNC_THROTTLE_COOLDOWN.
const EnvPrefix = "RATEFUNC"

// Store drivers.
const (
	DriverNone    = "none"
	DriverMemory  = "memory"
	DriverGoRedis = "goredis"
	DriverRedigo  = "redigo"
)

// ErrInvalid is returned by Validate, wrapped with the offending setting.
var ErrInvalid = errors.New("config: invalid setting")

type Config struct {
	Debounce DebounceConfig `mapstructure:"debounce"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DebounceConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type ThrottleConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	MaxKeys  int           `mapstructure:"max_keys"`
}

// StoreConfig selects where throttle cooldown windows live.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	MaxKeys  int    `mapstructure:"max_keys"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	VaryBy          string        `mapstructure:"vary_by"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// New returns a viper instance carrying the defaults and the environment
// bindings. Flags may be bound to it before Load is called.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("debounce.delay", 300*time.Millisecond)
	v.SetDefault("throttle.cooldown", 500*time.Millisecond)
	v.SetDefault("throttle.max_keys", 1024)
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.addr", "localhost:6379")
	v.SetDefault("store.password", "")
	v.SetDefault("store.db", 0)
	v.SetDefault("store.prefix", "ratefunc:")
	v.SetDefault("store.max_keys", 65536)
	v.SetDefault("server.addr", ":9000")
	v.SetDefault("server.vary_by", "path")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v when it is not empty, then decodes and validates
// the merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Debounce.Delay < 0:
		return errors.Wrapf(ErrInvalid, "debounce.delay %s is negative", c.Debounce.Delay)
	case c.Throttle.Cooldown < 0:
		return errors.Wrapf(ErrInvalid, "throttle.cooldown %s is negative", c.Throttle.Cooldown)
	case c.Server.ShutdownTimeout < 0:
		return errors.Wrapf(ErrInvalid, "server.shutdown_timeout %s is negative", c.Server.ShutdownTimeout)
	}

	switch c.Store.Driver {
	case DriverNone, DriverMemory, DriverGoRedis, DriverRedigo:
	default:
		return errors.Wrapf(ErrInvalid, "store.driver %q is not one of none, memory, goredis, redigo", c.Store.Driver)
	}

	switch c.Server.VaryBy {
	case "path", "remote_addr", "host", "method", "none":
	default:
		return errors.Wrapf(ErrInvalid, "server.vary_by %q is not one of path, remote_addr, host, method, none", c.Server.VaryBy)
	}
	return nil
}
