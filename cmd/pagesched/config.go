package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is cmd/pagesched's layered configuration: flags override
// environment variables, which override a config file, which overrides
// the defaults set below.
type Config struct {
	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`

	UserAgent string `mapstructure:"user_agent"`
	BaseURL   string `mapstructure:"base_url"`

	Scheduler struct {
		Concurrency int           `mapstructure:"concurrency"`
		BatchSize   int           `mapstructure:"batch_size"`
		IdleFlush   time.Duration `mapstructure:"idle_flush"`
	} `mapstructure:"scheduler"`

	LogLevel string `mapstructure:"log_level"`
}

// loadConfig builds a Config from (in increasing priority) defaults, an
// optional config file, PAGESCHED_-prefixed environment variables, and the
// already-bound cobra flags on v.
func loadConfig(v *viper.Viper, configPath string) (*Config, error) {
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("user_agent", "pagesched/0.1.0")
	v.SetDefault("scheduler.concurrency", 5)
	v.SetDefault("scheduler.batch_size", 1)
	v.SetDefault("scheduler.idle_flush", 100*time.Millisecond)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PAGESCHED")
	v.AutomaticEnv()
	v.BindEnv("redis.addr", "PAGESCHED_REDIS_ADDR")
	v.BindEnv("user_agent", "PAGESCHED_USER_AGENT")
	v.BindEnv("base_url", "PAGESCHED_BASE_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pagesched")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required (set --base-url, PAGESCHED_BASE_URL, or base_url in config file)")
	}

	return &cfg, nil
}
