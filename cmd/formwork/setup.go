package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/formwork/internal/config"
	"github.com/aretw0/formwork/internal/logging"
	"github.com/aretw0/formwork/pkg/adapters/redis"
	"github.com/aretw0/formwork/pkg/rules"
	"github.com/aretw0/formwork/pkg/schema"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// environment is what every command builds from its configuration.
type environment struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *schema.Registry
	redis    *backend.Client // nil unless redis.addr is set
}

func (e *environment) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
}

// loadEnvironment reads the configuration, letting the given command flags
// override their viper keys.
func loadEnvironment(cmd *cobra.Command, bindings map[string]string) (*environment, error) {
	v := config.Defaults()
	for key, flag := range bindings {
		if err := bindFlag(v, key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInto(v, configPath)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	env := &environment{
		cfg:      cfg,
		logger:   logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format == "json"),
		registry: rules.NewRegistry(),
	}
	if cfg.Redis.Enabled() {
		env.redis = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redis.Register(env.registry, env.redis, cfg.Redis.Prefix)
		env.logger.Debug("Redis uniqueness index enabled", "addr", cfg.Redis.Addr)
	}
	return env, nil
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("unknown flag for %s", key)
	}
	return v.BindPFlag(key, flag)
}
