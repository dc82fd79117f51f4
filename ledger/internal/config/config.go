// Package config loads ledger gateway configuration.
package config

import (
	"fmt"
	"strings"

	commoncfg "github.com/sentinelvnc/sentinel/common/config"
)

type Config struct {
	Server  commoncfg.ServerConfig  `mapstructure:"server"`
	Store   StoreConfig             `mapstructure:"store"`
	Redis   RedisConfig             `mapstructure:"redis"`
	Auth    commoncfg.AuthConfig    `mapstructure:"auth"`
	Logging commoncfg.LoggingConfig `mapstructure:"logging"`
}

type StoreConfig struct {
	Type    string `mapstructure:"type"` // file or redis
	DataDir string `mapstructure:"data_dir"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

func Load(configPath string) (*Config, error) {
	loader := commoncfg.NewLoader("ledger", 8080).
		Default("server.read_timeout", "10s").
		Default("server.write_timeout", "10s").
		Default("store.type", "file").
		Default("store.data_dir", "./ledger_data").
		Default("redis.addr", "localhost:6379").
		Default("redis.password", "").
		Default("redis.db", 0).
		Default("redis.key", "sentinel:anchors")

	var cfg Config
	if err := loader.Load(configPath, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Type {
	case "file":
		if strings.TrimSpace(c.Store.DataDir) == "" {
			return fmt.Errorf("store.data_dir is required for the file store")
		}
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("store.type must be file or redis, got %q", c.Store.Type)
	}
	return nil
}
