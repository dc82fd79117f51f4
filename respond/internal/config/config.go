// Package config provides configuration loading for the respond service.
package config

import (
	"fmt"
	"time"

	commoncfg "github.com/sentinelvnc/sentinel/common/config"
)

// Config holds all configuration for the respond service.
type Config struct {
	Server    commoncfg.ServerConfig  `mapstructure:"server"`
	Proxy     ProxyConfig             `mapstructure:"proxy"`
	Forensics ForensicsConfig         `mapstructure:"forensics"`
	Actions   ActionsConfig           `mapstructure:"actions"`
	NATS      commoncfg.NATSConfig    `mapstructure:"nats"`
	Auth      commoncfg.AuthConfig    `mapstructure:"auth"`
	Logging   commoncfg.LoggingConfig `mapstructure:"logging"`
}

// ProxyConfig points at the VNC proxy's admin API.
type ProxyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ForensicsConfig points at the forensics orchestrator.
type ForensicsConfig struct {
	StartURL string `mapstructure:"start_url"`
	APIKey   string `mapstructure:"api_key"`
}

// ActionsConfig bounds each background dispatch.
type ActionsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and RESPOND_ environment variables.
func Load(configPath string) (*Config, error) {
	loader := commoncfg.NewLoader("respond", 9200).
		Default("proxy.base_url", "http://localhost:8000").
		Default("proxy.api_key", "").
		Default("forensics.start_url", "http://localhost:9100/forensics/start").
		Default("forensics.api_key", "").
		Default("actions.timeout", "10s")

	var cfg Config
	if err := loader.Load(configPath, &cfg); err != nil {
		return nil, err
	}
	if cfg.Actions.Timeout <= 0 {
		return nil, fmt.Errorf("actions.timeout must be positive")
	}
	return &cfg, nil
}
