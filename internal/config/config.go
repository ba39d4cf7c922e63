// Package config loads the settings of the serve and mcp commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/aretw0/formwork/pkg/schema"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Schemas SchemasConfig `mapstructure:"schemas"`
	Form    FormConfig    `mapstructure:"form"`
	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SchemasConfig locates the form definitions.
type SchemasConfig struct {
	Dir string `mapstructure:"dir"`
}

// FormConfig holds the form defaults. Options declared in a definition win.
type FormConfig struct {
	Debounce         time.Duration `mapstructure:"debounce"`
	ValidateOnChange bool          `mapstructure:"validate_on_change"`
	ValidateOnBlur   bool          `mapstructure:"validate_on_blur"`
}

// SessionConfig bounds idle sessions.
type SessionConfig struct {
	MaxIdle       time.Duration `mapstructure:"max_idle"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RedisConfig enables the "unique" rule. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Enabled reports whether a redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns a viper instance carrying the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("schemas.dir", "./schemas")
	v.SetDefault("form.debounce", "300ms")
	v.SetDefault("form.validate_on_change", true)
	v.SetDefault("form.validate_on_blur", true)
	v.SetDefault("session.max_idle", "30m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "formwork:index:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	return v
}

// Load reads configuration from the defaults, an optional file and FORMWORK_
// environment variables, in increasing precedence. A missing file is not an
// error; a malformed one is.
func Load(configPath string) (*Config, error) {
	return LoadInto(Defaults(), configPath)
}

// LoadInto is Load over a caller-provided viper, e.g. one with bound flags.
func LoadInto(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	v.SetEnvPrefix("FORMWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Form.Debounce < 0 {
		return fmt.Errorf("form.debounce must not be negative")
	}
	if c.Session.MaxIdle > 0 && c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive when session.max_idle is set")
	}
	return nil
}

// FormDefaults converts the form section to definition options, so it
// applies beneath each definition's own options.
func (c FormConfig) FormDefaults() schema.OptionsDefinition {
	debounce := c.Debounce
	onChange := c.ValidateOnChange
	onBlur := c.ValidateOnBlur
	return schema.OptionsDefinition{
		Debounce:         &debounce,
		ValidateOnChange: &onChange,
		ValidateOnBlur:   &onBlur,
	}
}
